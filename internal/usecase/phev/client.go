package phev

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"phev-gateway/internal/pipe"
)

// ErrExited is returned by commands issued after Exit.
var ErrExited = errors.New("phev: client exited")

// RegisterWriter is what the command dispatcher needs from the pipe.
type RegisterWriter interface {
	UpdateRegister(reg, value byte) error
	UpdateRegisterWithCallback(reg, value byte, cb pipe.UpdateCallback) error
	UpdateComplexRegister(reg byte, data []byte) error
	UpdateComplexRegisterWithCallback(reg byte, data []byte, cb pipe.UpdateCallback) error
}

// Pipe is the connection state machine the client sits on.
type Pipe interface {
	RegisterWriter
	Register(done func()) error
	Close() error
}

// Settings 客户端初始化参数
type Settings struct {
	Handler     EventHandler
	UserContext any
	MAC         [6]byte
	// MY18 selects the 2018 model-year head unit. Both generations currently
	// share one encoding, so the flag is informational.
	MY18 bool
}

// Client is one session with a vehicle.
type Client struct {
	handler EventHandler
	userCtx any
	my18    bool
	pipe    Pipe
	store   *RegisterStore
	logger  *zap.Logger

	exit atomic.Bool

	mu  sync.RWMutex
	vin string
}

func NewClient(settings Settings, p Pipe, logger *zap.Logger) *Client {
	logger.Debug("Creating client",
		zap.Bool("my18", settings.MY18),
		zap.Bool("has_handler", settings.Handler != nil))

	return &Client{
		handler: settings.Handler,
		userCtx: settings.UserContext,
		my18:    settings.MY18,
		pipe:    p,
		store:   NewRegisterStore(logger),
		logger:  logger,
	}
}

func (c *Client) UserContext() any {
	if c == nil {
		return nil
	}
	return c.userCtx
}

// HandlePipeEvent 是注册给 pipe 的事件回调
// The application handler runs synchronously; its return value is passed back unused.
func (c *Client) HandlePipeEvent(ev pipe.Event) (status int) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic in event handler",
				zap.Any("recover", r),
				zap.String("event", fmt.Sprintf("%T", ev)),
				zap.String("stack", string(debug.Stack())))
			status = 0
		}
	}()

	if !c.Running() {
		c.logger.Debug("Dropping event after exit", zap.String("event", fmt.Sprintf("%T", ev)))
		return 0
	}

	switch e := ev.(type) {
	case pipe.RegUpdate:
		if e.Message != nil {
			c.store.Update(e.Message.Reg, e.Message.Data)
		}
	case pipe.GotVIN:
		c.mu.Lock()
		c.vin = boundedString(e.VIN, vinMaxLength)
		c.mu.Unlock()
	}

	out, ok := Translate(ev, c)
	if !ok {
		return 0
	}
	return c.handler(out)
}

// RegisterDevice runs the registration handshake. Completion is reported to the
// handler as EventRegistrationComplete.
func (c *Client) RegisterDevice() error {
	c.logger.Info("Registering device")
	return c.pipe.Register(func() {
		registrationComplete(c)
	})
}

func registrationComplete(c *Client) {
	c.logger.Info("Registration complete")
	if c.handler == nil || !c.Running() {
		return
	}
	c.handler(&Event{Type: EventRegistrationComplete, Client: c})
}

func (c *Client) Start() {
	c.exit.Store(false)
}

// Exit stops the session: later pipe events are dropped, commands fail with
// ErrExited and the transport shuts down on its next tick.
func (c *Client) Exit() {
	c.logger.Info("Client exiting")
	c.exit.Store(true)
}

func (c *Client) Running() bool {
	return !c.exit.Load()
}

// VIN returns the last VIN reported by the car, or "".
func (c *Client) VIN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vin
}

func (c *Client) BatteryLevel() int {
	return c.store.BatteryLevel()
}

// Register returns the last value seen for reg.
func (c *Client) Register(reg byte) (*RegisterValue, bool) {
	return c.store.Get(reg)
}

func (c *Client) StatusJSON() ([]byte, error) {
	return c.store.StatusJSON(c.VIN())
}

// Disconnect closes the car connection and forgets cached registers.
func (c *Client) Disconnect() error {
	c.logger.Info("Disconnecting")
	c.store.Reset()
	return c.pipe.Close()
}
