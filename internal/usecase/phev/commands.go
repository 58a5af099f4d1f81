package phev

import (
	"go.uber.org/zap"

	protocol "phev-gateway/internal/protocol/phev"
)

// AirConMode 空调模式
type AirConMode byte

const (
	AirConCool       AirConMode = 0x01
	AirConHeat       AirConMode = 0x02
	AirConWindscreen AirConMode = 0x03
)

// AirConTime is the run time in minutes. 10, 20 and 30 are mapped to the
// head unit's timer codes; any other value is sent as is.
type AirConTime byte

const (
	AirCon10Min AirConTime = 10
	AirCon20Min AirConTime = 20
	AirCon30Min AirConTime = 30
)

func (t AirConTime) code() byte {
	switch t {
	case AirCon10Min:
		return 1
	case AirCon20Min:
		return 2
	case AirCon30Min:
		return 3
	default:
		return byte(t)
	}
}

// AirConModePayload builds the 4 byte schedule payload [0x02, mode, timer, 0x00].
func AirConModePayload(mode AirConMode, t AirConTime) []byte {
	return []byte{0x02, byte(mode), t.code(), 0x00}
}

func (c *Client) HeadLights(on bool, cb Callback) error {
	c.logger.Debug("Switching head lights", zap.Bool("on", on))
	return c.updateRegister(protocol.RegHeadLights, onOff(on, 1, 2), cb)
}

func (c *Client) Horn(on bool, cb Callback) error {
	c.logger.Debug("Switching horn", zap.Bool("on", on))
	return c.updateRegister(protocol.RegHorn, onOff(on, 1, 2), cb)
}

// Lock locks (on) or unlocks the doors.
func (c *Client) Lock(on bool, cb Callback) error {
	c.logger.Debug("Switching door lock", zap.Bool("on", on))
	return c.updateRegister(protocol.RegDoorLock, onOff(on, 3, 5), cb)
}

func (c *Client) ParkingLights(on bool, cb Callback) error {
	c.logger.Debug("Switching parking lights", zap.Bool("on", on))
	return c.updateRegister(protocol.RegParkingLights, onOff(on, 1, 2), cb)
}

func (c *Client) AirCon(on bool, cb Callback) error {
	c.logger.Debug("Switching air conditioning", zap.Bool("on", on))
	return c.updateRegister(protocol.RegAirConOn, onOff(on, 2, 1), cb)
}

func (c *Client) AirConMode(mode AirConMode, t AirConTime, cb Callback) error {
	data := AirConModePayload(mode, t)
	c.logger.Debug("Switching air conditioning mode",
		zap.Uint8("mode", uint8(mode)),
		zap.Uint8("time", uint8(t)),
		zap.Uint8("timer_code", data[2]))

	if !c.Running() {
		return ErrExited
	}
	if cb == nil {
		return c.pipe.UpdateComplexRegister(protocol.RegAirConSchedule, data)
	}
	cc := newCallbackContext(cb, c)
	return c.pipe.UpdateComplexRegisterWithCallback(protocol.RegAirConSchedule, data, cc.fire)
}

func (c *Client) updateRegister(reg, value byte, cb Callback) error {
	if !c.Running() {
		return ErrExited
	}
	if cb == nil {
		return c.pipe.UpdateRegister(reg, value)
	}
	cc := newCallbackContext(cb, c)
	return c.pipe.UpdateRegisterWithCallback(reg, value, cc.fire)
}

func onOff(on bool, onValue, offValue byte) byte {
	if on {
		return onValue
	}
	return offValue
}
