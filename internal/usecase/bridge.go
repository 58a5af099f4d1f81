package usecase

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	protocol "phev-gateway/internal/protocol/phev"
	"phev-gateway/internal/usecase/phev"
)

// Payload types published by the bridge.
const (
	PayloadConnected  = "connected"
	PayloadRegistered = "registered"
	PayloadRegister   = "register"
	PayloadBattery    = "battery"
	PayloadVIN        = "vin"
	PayloadECUVersion = "ecu_version"
	PayloadPing       = "ping"
)

// Dispatcher is satisfied by *DataDispatcher.
type Dispatcher interface {
	Dispatch(topic, key string, payload interface{}) bool
}

type BridgeOptions struct {
	// Topic is passed to the producer; empty uses the producer default.
	Topic string
	// KeyByVIN keys messages by VIN (Kafka partitioning). Otherwise the key is
	// "phev.<type>", used as the RabbitMQ routing key.
	KeyByVIN bool
	// Next, if set, also receives every event.
	Next phev.EventHandler
}

// EventBridge is an application event handler that forwards vehicle events
// to the message queue.
type EventBridge struct {
	dispatcher Dispatcher
	opts       BridgeOptions
	logger     *zap.Logger

	mu  sync.RWMutex
	vin string
}

func NewEventBridge(d Dispatcher, opts BridgeOptions, logger *zap.Logger) *EventBridge {
	return &EventBridge{
		dispatcher: d,
		opts:       opts,
		logger:     logger,
	}
}

// VIN returns the last VIN seen on the bridge.
func (b *EventBridge) VIN() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.vin
}

// Handle 实现 phev.EventHandler
func (b *EventBridge) Handle(ev *phev.Event) int {
	switch ev.Type {
	case phev.EventConnected:
		b.publish(PayloadConnected, ConnectionData{State: "connected"})
	case phev.EventRegistrationComplete:
		b.publish(PayloadRegistered, ConnectionData{State: "registered"})
	case phev.EventRegisterUpdate:
		b.publish(PayloadRegister, RegisterData{
			Register: fmt.Sprintf("%02x", ev.Reg),
			Value:    hex.EncodeToString(ev.Data),
			Length:   ev.Length,
		})
		if ev.Reg == protocol.RegBatteryLevel && len(ev.Data) > 0 {
			b.publish(PayloadBattery, BatteryData{SOC: int(ev.Data[0])})
		}
	case phev.EventVIN:
		vin := string(ev.Data)
		b.mu.Lock()
		b.vin = vin
		b.mu.Unlock()
		b.logger.Info("Vehicle identified", zap.String("vin", vin))
		b.publish(PayloadVIN, VINData{VIN: vin})
	case phev.EventECUVersion:
		b.publish(PayloadECUVersion, ECUVersionData{Version: string(ev.Data)})
	case phev.EventPingResponse:
		b.publish(PayloadPing, ConnectionData{State: "alive"})
	default:
		b.logger.Debug("Event not forwarded", zap.Stringer("type", ev.Type), zap.Int("length", ev.Length))
	}

	if b.opts.Next != nil {
		return b.opts.Next(ev)
	}
	return 0
}

func (b *EventBridge) publish(typ string, data interface{}) {
	vin := b.VIN()
	key := "phev." + typ
	if b.opts.KeyByVIN {
		key = vin
	}

	payload := MQPayload{
		Type:      typ,
		VIN:       vin,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if !b.dispatcher.Dispatch(b.opts.Topic, key, payload) {
		b.logger.Warn("Dropped vehicle event", zap.String("type", typ))
	}
}
