package usecase

import "context"

// DataProducer is the sink the dispatcher workers publish to.
type DataProducer interface {
	// Produce 发送数据到指定 Topic
	Produce(ctx context.Context, topic string, key string, data interface{}) error
}
