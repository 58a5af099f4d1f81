package pipe

import (
	protocol "phev-gateway/internal/protocol/phev"
)

// Event is a pipe-level event. The set of implementations is closed: only the
// types in this file satisfy it.
type Event interface {
	pipeEvent()
}

// Connected 连接已建立, 登入报文已发送
type Connected struct{}

// StartAck 车机应答了登入握手
type StartAck struct{}

// RegUpdate carries a register report pushed by the car.
type RegUpdate struct {
	Message *protocol.Message
}

// GotVIN carries the raw VIN bytes. The buffer may be reused after the handler returns.
type GotVIN struct {
	VIN []byte
}

// ECUVersion carries the raw ECU version bytes.
type ECUVersion struct {
	Raw []byte
}

type DateInfo struct {
	Data []byte
}

type PingResponse struct {
	Data []byte
}

// FilteredMessage is any allowed frame the pipe has no dedicated handling for.
type FilteredMessage struct {
	Data []byte
}

// BB 心跳
type BB struct{}

func (Connected) pipeEvent()       {}
func (StartAck) pipeEvent()        {}
func (RegUpdate) pipeEvent()       {}
func (GotVIN) pipeEvent()          {}
func (ECUVersion) pipeEvent()      {}
func (DateInfo) pipeEvent()        {}
func (PingResponse) pipeEvent()    {}
func (FilteredMessage) pipeEvent() {}
func (BB) pipeEvent()              {}
