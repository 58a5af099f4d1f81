// Package simulator is a stand-in for the car's head unit, used to exercise
// the client without a vehicle. It speaks the protocol unscrambled.
package simulator

import (
	"sync"
	"time"

	"go.uber.org/zap"

	protocol "phev-gateway/internal/protocol/phev"
)

// Car 模拟车辆状态
type Car struct {
	VIN        string
	ECUVersion string
	Battery    byte

	logger *zap.Logger

	mu        sync.Mutex
	started   bool
	registers map[byte][]byte
}

func NewCar(vin string, battery byte, logger *zap.Logger) *Car {
	return &Car{
		VIN:        vin,
		ECUVersion: "1.0.0",
		Battery:    battery,
		logger:     logger,
		registers:  make(map[byte][]byte),
	}
}

// Register returns the last value the client wrote to reg.
func (c *Car) Register(reg byte) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.registers[reg]
	return v, ok
}

// Respond handles one frame from the client and returns the frames to send back.
func (c *Car) Respond(raw []byte) [][]byte {
	msg, err := protocol.Decode(raw)
	if err != nil {
		c.logger.Warn("Simulator got bad frame", zap.Error(err))
		return nil
	}

	switch msg.Command {
	case protocol.CmdStartSend, protocol.CmdStartSendMY18:
		return c.start(msg)
	case protocol.CmdPingSend, protocol.CmdPingSendMY18:
		var resp byte = protocol.CmdPingResp
		if msg.Command == protocol.CmdPingSendMY18 {
			resp = protocol.CmdPingRespMY18
		}
		return encodeAll(protocol.NewResponse(resp, msg.Reg, []byte{0x00}))
	case protocol.CmdSend, protocol.CmdSendMY18:
		if !msg.IsRequest() {
			// client acknowledging one of our reports
			return nil
		}
		if msg.Reg == protocol.RegLoginBurst {
			return nil
		}
		return c.write(msg)
	default:
		c.logger.Debug("Simulator ignoring frame", zap.Stringer("message", msg))
		return nil
	}
}

func (c *Car) start(msg *protocol.Message) [][]byte {
	var resp byte = protocol.CmdStartResp
	if msg.Command == protocol.CmdStartSendMY18 {
		resp = protocol.CmdStartRespMY18
	}
	out := encodeAll(protocol.NewResponse(resp, protocol.RegStart, []byte{0x00}))

	c.mu.Lock()
	first := !c.started
	c.started = true
	c.mu.Unlock()

	if first {
		out = append(out, c.Reports()...)
	}
	return out
}

// write stores the value, acknowledges it and reports it back like the car does.
func (c *Car) write(msg *protocol.Message) [][]byte {
	c.mu.Lock()
	c.registers[msg.Reg] = append([]byte(nil), msg.Data...)
	c.mu.Unlock()

	c.logger.Info("Simulator register written", zap.Uint8("reg", msg.Reg), zap.Binary("data", msg.Data))
	return encodeAll(
		protocol.NewResponse(protocol.CmdResp, msg.Reg, []byte{0x00}),
		report(msg.Reg, msg.Data),
	)
}

// Reports 生成车辆连接后主动上报的寄存器
func (c *Car) Reports() [][]byte {
	return encodeAll(
		report(protocol.RegVIN, append([]byte{0x01}, c.VIN...)),
		report(protocol.RegECUVersion, []byte(c.ECUVersion)),
		report(protocol.RegDateInfo, dateInfo(time.Now())),
		report(protocol.RegBatteryLevel, []byte{c.Battery}),
	)
}

func report(reg byte, data []byte) *protocol.Message {
	return protocol.NewRequest(protocol.CmdResp, reg, data)
}

// dateInfo is yy mm dd hh mm ss weekday.
func dateInfo(t time.Time) []byte {
	return []byte{
		byte(t.Year() - 2000),
		byte(t.Month()),
		byte(t.Day()),
		byte(t.Hour()),
		byte(t.Minute()),
		byte(t.Second()),
		byte(t.Weekday()),
	}
}

func encodeAll(msgs ...*protocol.Message) [][]byte {
	out := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, protocol.Encode(m))
	}
	return out
}
