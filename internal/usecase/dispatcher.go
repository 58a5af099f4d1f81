package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultQueueSize = 1024

// job is one payload queued for publishing.
type job struct {
	topic   string
	key     string
	payload interface{}
}

// DataDispatcher publishes payloads from a bounded queue on a fixed pool of
// workers, off the transport event loop.
type DataDispatcher struct {
	jobs        chan job
	producer    DataProducer
	logger      *zap.Logger
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewDataDispatcher 创建一个新的数据分发器
func NewDataDispatcher(producer DataProducer, workerCount int, logger *zap.Logger) *DataDispatcher {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DataDispatcher{
		jobs:        make(chan job, defaultQueueSize),
		producer:    producer,
		workerCount: workerCount,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start 启动 worker 协程池
func (d *DataDispatcher) Start() {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("DataDispatcher started", zap.Int("workers", d.workerCount))
}

// Stop 停止分发器, 发送完已排队的数据后退出
func (d *DataDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
	d.logger.Info("DataDispatcher stopped")
}

// Dispatch 非阻塞投递, 队列满时丢弃并返回 false
func (d *DataDispatcher) Dispatch(topic, key string, payload interface{}) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return false
	}
	select {
	case d.jobs <- job{topic: topic, key: key, payload: payload}:
		return true
	default:
		d.logger.Warn("DataDispatcher queue full, dropping payload", zap.String("topic", topic), zap.String("key", key))
		return false
	}
}

func (d *DataDispatcher) worker(id int) {
	defer d.wg.Done()
	for j := range d.jobs {
		d.process(id, j)
	}
}

func (d *DataDispatcher) process(id int, j job) {
	if err := d.producer.Produce(d.ctx, j.topic, j.key, j.payload); err != nil {
		d.logger.Error("DataDispatcher failed to send data",
			zap.Int("worker", id),
			zap.String("topic", j.topic),
			zap.Error(err))
	}
}
