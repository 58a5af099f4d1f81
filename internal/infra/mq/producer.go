package mq

import (
	"context"
	"encoding/json"
	"sync"
)

// Producer publishes one event to a topic (Kafka) or routing key (RabbitMQ).
type Producer interface {
	Produce(ctx context.Context, topic string, key string, data interface{}) error
	Close()
}

// NoOpProducer is used when the message queue is disabled
type NoOpProducer struct{}

func NewNoOpProducer() *NoOpProducer {
	return &NoOpProducer{}
}

func (p *NoOpProducer) Produce(ctx context.Context, topic string, key string, data interface{}) error {
	return nil
}

func (p *NoOpProducer) Close() {}

// Message is one record captured by MemoryProducer.
type Message struct {
	Topic string
	Key   string
	Body  []byte
}

// MemoryProducer keeps produced records in memory, JSON encoded like the real
// producers. Selected with message_queue.type "memory".
type MemoryProducer struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryProducer() *MemoryProducer {
	return &MemoryProducer{}
}

func (p *MemoryProducer) Produce(ctx context.Context, topic string, key string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.messages = append(p.messages, Message{Topic: topic, Key: key, Body: body})
	p.mu.Unlock()
	return nil
}

func (p *MemoryProducer) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

func (p *MemoryProducer) Close() {}
