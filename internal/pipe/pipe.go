package pipe

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"phev-gateway/internal/logging"
	protocol "phev-gateway/internal/protocol/phev"
)

// ErrNotConnected is returned by writes issued before Attach or after Detach.
var ErrNotConnected = errors.New("pipe: not connected")

// Conn 抽象连接接口
type Conn interface {
	RemoteAddr() string
	Close() error
	Write([]byte) (int, error)
}

// EventHandler receives pipe events on the delivery goroutine.
type EventHandler func(Event)

// UpdateCallback is fired once when the car acknowledges a register write.
type UpdateCallback func(reg byte)

type Config struct {
	MAC [6]byte
}

// Pipe is the connection state machine between the transport and the client.
// It decodes inbound frames, acknowledges car reports, remembers the inbound
// scrambling key for outbound frames and owns the per-register write callbacks.
type Pipe struct {
	mac     [6]byte
	handler EventHandler
	logger  *zap.Logger

	mu         sync.Mutex
	conn       Conn
	xor        byte
	pingSeq    byte
	callbacks  map[byte]UpdateCallback
	registered func()
}

func New(cfg Config, handler EventHandler, logger *zap.Logger) *Pipe {
	return &Pipe{
		mac:       cfg.MAC,
		handler:   handler,
		logger:    logger,
		callbacks: make(map[byte]UpdateCallback),
	}
}

// Attach binds the pipe to a freshly opened connection, sends the login burst
// and emits Connected.
func (p *Pipe) Attach(conn Conn) error {
	p.mu.Lock()
	p.conn = conn
	p.xor = 0
	p.mu.Unlock()

	p.logger.Info("Pipe attached", zap.String("remote_addr", conn.RemoteAddr()))

	if _, err := conn.Write(protocol.StartMessageEncoded(p.mac)); err != nil {
		return fmt.Errorf("failed to send start burst: %w", err)
	}
	p.emit(Connected{})
	return nil
}

// Detach forgets the connection. Pending callbacks are kept; they fire if the
// acknowledgement arrives on a later connection.
func (p *Pipe) Detach() {
	p.mu.Lock()
	p.conn = nil
	p.mu.Unlock()
}

func (p *Pipe) Close() error {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// HandleFrame 处理单个原始帧 (仍是加扰状态)
func (p *Pipe) HandleFrame(raw []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Panic in HandleFrame",
				zap.Any("recover", r),
				logging.Hex("raw_hex", raw),
				zap.String("stack", string(debug.Stack())))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	msg, err := protocol.Decode(raw)
	if err != nil {
		var de *protocol.DecodeError
		if errors.As(err, &de) {
			p.logger.Error("Invalid message",
				zap.Error(de.Err),
				logging.Hex("original", de.Raw),
				logging.Hex("decoded", de.Decoded))
		}
		return err
	}

	if !protocol.VerifyChecksum(protocol.Unscramble(raw, msg.XOR)) {
		p.logger.Warn("Checksum mismatch, accepting frame", zap.Stringer("message", msg))
	}

	p.mu.Lock()
	p.xor = msg.XOR
	p.mu.Unlock()

	p.logger.Debug("Frame received", zap.Stringer("message", msg))

	switch msg.Command {
	case protocol.CmdStartResp, protocol.CmdStartRespMY18:
		p.emit(StartAck{})
		p.completeRegistration()
	case protocol.CmdPingResp, protocol.CmdPingRespMY18:
		p.emit(PingResponse{Data: msg.Data})
	case protocol.CmdBB:
		p.emit(BB{})
	case protocol.CmdCC, protocol.CmdCD:
		p.logger.Debug("Ignoring frame", zap.Uint8("command", msg.Command))
	case protocol.CmdResp, protocol.CmdRespMY18:
		if !msg.IsRequest() {
			p.completeUpdate(msg.Reg)
			return nil
		}
		return p.handleReport(msg)
	default:
		p.emit(FilteredMessage{Data: protocol.Unscramble(raw, msg.XOR)})
	}
	return nil
}

func (p *Pipe) handleReport(msg *protocol.Message) error {
	if err := p.send(protocol.AckFor(msg)); err != nil {
		p.logger.Warn("Failed to acknowledge register report", zap.Uint8("reg", msg.Reg), zap.Error(err))
	}

	switch msg.Reg {
	case protocol.RegVIN:
		if len(msg.Data) > 1 {
			p.emit(GotVIN{VIN: msg.Data[1:]})
		}
	case protocol.RegECUVersion:
		p.emit(ECUVersion{Raw: msg.Data})
	case protocol.RegDateInfo:
		p.emit(DateInfo{Data: msg.Data})
	default:
		p.emit(RegUpdate{Message: msg})
	}
	return nil
}

func (p *Pipe) UpdateRegister(reg, value byte) error {
	return p.send(protocol.SimpleRequest(reg, value))
}

func (p *Pipe) UpdateComplexRegister(reg byte, data []byte) error {
	return p.send(protocol.CommandMessage(reg, data))
}

// UpdateRegisterWithCallback writes a single byte register and arranges for cb
// to run once when the car acknowledges it.
func (p *Pipe) UpdateRegisterWithCallback(reg, value byte, cb UpdateCallback) error {
	return p.sendWithCallback(protocol.SimpleRequest(reg, value), cb)
}

func (p *Pipe) UpdateComplexRegisterWithCallback(reg byte, data []byte, cb UpdateCallback) error {
	return p.sendWithCallback(protocol.CommandMessage(reg, data), cb)
}

func (p *Pipe) sendWithCallback(msg *protocol.Message, cb UpdateCallback) error {
	p.mu.Lock()
	if _, ok := p.callbacks[msg.Reg]; ok {
		p.logger.Warn("Replacing pending register callback", zap.Uint8("reg", msg.Reg))
	}
	p.callbacks[msg.Reg] = cb
	p.mu.Unlock()

	if err := p.send(msg); err != nil {
		p.mu.Lock()
		delete(p.callbacks, msg.Reg)
		p.mu.Unlock()
		return err
	}
	return nil
}

// completeUpdate removes the callback before firing it, so a duplicate
// acknowledgement finds nothing.
func (p *Pipe) completeUpdate(reg byte) {
	p.mu.Lock()
	cb, ok := p.callbacks[reg]
	delete(p.callbacks, reg)
	p.mu.Unlock()

	if !ok {
		p.logger.Debug("Register ack without pending callback", zap.Uint8("reg", reg))
		return
	}
	cb(reg)
}

// PendingCallbacks returns the number of writes still waiting for an ack.
func (p *Pipe) PendingCallbacks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.callbacks)
}

// Ping 发送心跳, 序号自增
func (p *Pipe) Ping() error {
	p.mu.Lock()
	p.pingSeq++
	seq := p.pingSeq
	p.mu.Unlock()
	return p.send(protocol.PingMessage(seq))
}

// Register resends the login burst and calls done once, on the next start acknowledgement.
func (p *Pipe) Register(done func()) error {
	p.mu.Lock()
	p.registered = done
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if _, err := conn.Write(protocol.StartMessageEncoded(p.mac)); err != nil {
		return fmt.Errorf("failed to send registration: %w", err)
	}
	return nil
}

func (p *Pipe) completeRegistration() {
	p.mu.Lock()
	done := p.registered
	p.registered = nil
	p.mu.Unlock()
	if done != nil {
		done()
	}
}

func (p *Pipe) send(msg *protocol.Message) error {
	p.mu.Lock()
	conn, key := p.conn, p.xor
	p.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if len(msg.Data) > protocol.MaxDataLength {
		return fmt.Errorf("register 0x%02x: %w", msg.Reg, protocol.ErrPayloadTooLarge)
	}

	out := protocol.ScrambleOutbound(protocol.Encode(msg), key)
	p.logger.Debug("Sending frame",
		zap.Stringer("message", msg),
		logging.Hex("hex", out))

	if _, err := conn.Write(out); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

func (p *Pipe) emit(ev Event) {
	if p.handler != nil {
		p.handler(ev)
	}
}
