package main

import (
	"fmt"

	"go.uber.org/zap"

	"phev-gateway/internal/config"
	"phev-gateway/internal/infra/kafka"
	"phev-gateway/internal/infra/mq"
	"phev-gateway/internal/infra/rabbitmq"
	"phev-gateway/internal/logging"
	"phev-gateway/internal/pipe"
	"phev-gateway/internal/transport"
	"phev-gateway/internal/usecase"
	"phev-gateway/internal/usecase/phev"
)

// app wires one vehicle session: transport -> pipe -> client -> bridge -> MQ.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	producer   mq.Producer
	dispatcher *usecase.DataDispatcher
	bridge     *usecase.EventBridge
	client     *phev.Client
	transport  *transport.TCPClient

	// events mirrors application events for the one-shot commands.
	events chan *phev.Event
}

func newProducer(cfg config.MessageQueueConfig, logger *zap.Logger) (mq.Producer, error) {
	if !cfg.Enabled {
		return mq.NewNoOpProducer(), nil
	}
	switch cfg.Type {
	case "kafka":
		return kafka.NewProducer(cfg.Kafka, logger)
	case "rabbitmq":
		return rabbitmq.NewProducer(cfg.RabbitMQ, logger)
	case "memory":
		return mq.NewMemoryProducer(), nil
	default:
		return nil, fmt.Errorf("unknown message_queue.type %q", cfg.Type)
	}
}

func newApp(configPath string, console bool) (*app, error) {
	// 1. 配置加载
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	mac, err := config.ParseMAC(cfg.Vehicle.MAC)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, console)
	if err != nil {
		return nil, err
	}

	// 2. 基础设施层
	producer, err := newProducer(cfg.MessageQueue, logger)
	if err != nil {
		return nil, err
	}

	// 3. 业务逻辑层
	dispatcher := usecase.NewDataDispatcher(producer, cfg.MessageQueue.Workers, logger)

	a := &app{
		cfg:        cfg,
		logger:     logger,
		producer:   producer,
		dispatcher: dispatcher,
		events:     make(chan *phev.Event, 64),
	}

	a.bridge = usecase.NewEventBridge(dispatcher, usecase.BridgeOptions{
		Topic:    cfg.MessageQueue.Kafka.Topic,
		KeyByVIN: cfg.MessageQueue.Type == "kafka",
		Next:     a.forward,
	}, logger)

	var client *phev.Client
	p := pipe.New(pipe.Config{MAC: mac}, func(ev pipe.Event) {
		client.HandlePipeEvent(ev)
	}, logger.Named("pipe"))

	client = phev.NewClient(phev.Settings{
		Handler: a.bridge.Handle,
		MAC:     mac,
		MY18:    cfg.Vehicle.MY18,
	}, p, logger.Named("client"))
	a.client = client

	// 4. 传输层
	a.transport = transport.NewTCPClient(cfg.Vehicle, p, logger.Named("transport"),
		transport.WithRunning(client.Running))
	return a, nil
}

// forward copies the event for the command goroutine. Data and Message are
// cloned because they may alias transport buffers.
func (a *app) forward(ev *phev.Event) int {
	cp := *ev
	cp.Data = append([]byte(nil), ev.Data...)
	if ev.Message != nil {
		cp.Message = ev.Message.Clone()
	}
	select {
	case a.events <- &cp:
	default:
	}
	return 0
}

func (a *app) start() error {
	a.dispatcher.Start()
	a.client.Start()
	return a.transport.Start()
}

func (a *app) stop() {
	a.client.Exit()
	if err := a.client.Disconnect(); err != nil {
		a.logger.Warn("Disconnect failed", zap.Error(err))
	}
	if err := a.transport.Stop(); err != nil {
		a.logger.Warn("Transport stop failed", zap.Error(err))
	}
	a.dispatcher.Stop()
	a.producer.Close()
	_ = a.logger.Sync()
}
