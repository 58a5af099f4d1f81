package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/gnet/v2"
	"go.uber.org/zap"

	"phev-gateway/internal/config"
	"phev-gateway/internal/logging"
	"phev-gateway/internal/pipe"
	protocol "phev-gateway/internal/protocol/phev"
)

// FrameHandler receives one raw (still scrambled) frame at a time.
type FrameHandler interface {
	HandleFrame(raw []byte) error
}

// Session is the pipe as seen by the transport.
type Session interface {
	FrameHandler
	Attach(conn pipe.Conn) error
	Detach()
	Ping() error
}

// connContext 保存每个连接的状态
type connContext struct {
	buffer  []byte
	scanner *protocol.PacketScanner
	addr    string
}

func newConnContext(addr string) *connContext {
	return &connContext{
		buffer:  make([]byte, 0, 1024),
		scanner: protocol.NewPacketScanner(protocol.MaxPacketSize),
		addr:    addr,
	}
}

// gnetConn adapts gnet.Conn to pipe.Conn. Writes go through AsyncWrite so they
// are safe from any goroutine.
type gnetConn struct {
	conn   gnet.Conn
	logger *zap.Logger
}

func (w *gnetConn) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}

func (w *gnetConn) Close() error {
	return w.conn.Close()
}

func (w *gnetConn) Write(b []byte) (int, error) {
	err := w.conn.AsyncWrite(b, func(c gnet.Conn, err error) error {
		if err != nil {
			w.logger.Warn("Async write failed", zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// TCPClient dials the car's head unit over gnet and feeds frames to the session.
type TCPClient struct {
	gnet.BuiltinEventEngine

	addr         string
	pingInterval time.Duration
	session      Session
	logger       *zap.Logger

	running func() bool

	cli       *gnet.Client
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a TCPClient.
type Option func(*TCPClient)

// WithRunning makes the client shut down on the first tick where f reports false.
func WithRunning(f func() bool) Option {
	return func(c *TCPClient) {
		c.running = f
	}
}

func NewTCPClient(cfg config.VehicleConfig, session Session, logger *zap.Logger, opts ...Option) *TCPClient {
	c := &TCPClient{
		addr:         cfg.Address(),
		pingInterval: cfg.PingInterval,
		session:      session,
		logger:       logger,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start 启动事件循环并连接车辆
func (c *TCPClient) Start() error {
	cli, err := gnet.NewClient(c,
		gnet.WithTicker(c.pingInterval > 0 || c.running != nil),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
		gnet.WithLogger(c.logger.Sugar()),
	)
	if err != nil {
		return err
	}
	if err := cli.Start(); err != nil {
		return err
	}
	c.cli = cli

	c.logger.Info("Dialing vehicle", zap.String("address", c.addr))
	if _, err := cli.Dial("tcp", c.addr); err != nil {
		_ = cli.Stop()
		return err
	}
	return nil
}

func (c *TCPClient) Stop() error {
	if c.cli == nil {
		return errors.New("transport: not started")
	}
	c.logger.Info("Stopping TCP client")
	return c.cli.Stop()
}

// Done is closed when the vehicle connection goes away.
func (c *TCPClient) Done() <-chan struct{} {
	return c.done
}

func (c *TCPClient) OnOpen(conn gnet.Conn) (out []byte, action gnet.Action) {
	addr := conn.RemoteAddr().String()
	c.logger.Info("Connected to vehicle", zap.String("remote_addr", addr))
	conn.SetContext(newConnContext(addr))

	if err := c.session.Attach(&gnetConn{conn: conn, logger: c.logger}); err != nil {
		c.logger.Error("Failed to attach session", zap.Error(err))
		return nil, gnet.Close
	}
	return nil, gnet.None
}

func (c *TCPClient) OnTraffic(conn gnet.Conn) gnet.Action {
	ctx, ok := conn.Context().(*connContext)
	if !ok {
		return gnet.Close
	}
	buf, err := conn.Next(-1)
	if err != nil {
		c.logger.Error("Read failed", zap.Error(err), zap.String("addr", ctx.addr))
		return gnet.Close
	}
	c.consume(ctx, buf)
	return gnet.None
}

// consume 追加数据到连接缓冲区并逐帧交给 session
func (c *TCPClient) consume(ctx *connContext, data []byte) {
	if len(data) == 0 {
		return
	}
	c.logger.Debug("Traffic", logging.Raw(data)...)
	ctx.buffer = append(ctx.buffer, data...)

	for len(ctx.buffer) > 0 {
		advance, token, _ := ctx.scanner.SplitFunc(ctx.buffer, false)
		if advance == 0 {
			// 需要更多数据
			break
		}
		if token != nil {
			if err := c.session.HandleFrame(token); err != nil {
				c.logger.Warn("Handle frame failed", zap.Error(err), zap.String("addr", ctx.addr))
			}
		}
		ctx.buffer = ctx.buffer[advance:]
	}

	// compact so the backing array does not grow without bound
	ctx.buffer = append(ctx.buffer[:0:0], ctx.buffer...)
}

func (c *TCPClient) OnClose(conn gnet.Conn, err error) gnet.Action {
	c.logger.Info("Vehicle connection closed", zap.Error(err))
	c.session.Detach()
	c.closeOnce.Do(func() { close(c.done) })
	return gnet.None
}

// OnTick 定时发送心跳
func (c *TCPClient) OnTick() (delay time.Duration, action gnet.Action) {
	if c.running != nil && !c.running() {
		c.logger.Info("Session exited, shutting down transport")
		return 0, gnet.Shutdown
	}
	if c.pingInterval <= 0 {
		return time.Second, gnet.None
	}
	if err := c.session.Ping(); err != nil && !errors.Is(err, pipe.ErrNotConnected) {
		c.logger.Warn("Ping failed", zap.Error(err))
	}
	return c.pingInterval, gnet.None
}
