package phev

import (
	"encoding/hex"
	"fmt"
)

// PHEV 车机协议常量定义
const (
	// HeaderLength: 1(Cmd) + 1(Len) + 1(Type) + 1(Reg) = 4
	HeaderLength = 4
	// MinPacketSize: Header + Checksum(1) = 5
	MinPacketSize = 5
	// MinDecodeSize is the shortest buffer Decode will look at.
	MinDecodeSize = 4
	// MaxPacketSize: declared length is one byte, frame = declared + 2
	MaxPacketSize = 0xFF + 2

	// Request and Response are the two roles carried in byte 2.
	Request  = 0x01
	Response = 0x00
)

// 命令标识
const (
	CmdStartSend     = 0xf2
	CmdStartResp     = 0x2f
	CmdSend          = 0xf6
	CmdResp          = 0x6f
	CmdPingSend      = 0xf9
	CmdPingResp      = 0x9f
	CmdStartSendMY18 = 0x5e
	CmdStartRespMY18 = 0xe5
	CmdSendMY18      = 0x4e
	CmdRespMY18      = 0xe4
	CmdPingSendMY18  = 0xa3
	CmdPingRespMY18  = 0x3a
	CmdBB            = 0xbb
	CmdCC            = 0xcc
	// CmdCD frames always carry a single data byte, whatever their length byte says.
	CmdCD = 0xcd
)

// 寄存器标识
const (
	RegStart          = 0x01
	RegAirConOn       = 0x04
	RegHeadLights     = 0x0a
	RegParkingLights  = 0x0b
	RegHorn           = 0x0c
	RegDoorLock       = 0x0f
	RegDateInfo       = 0x12
	RegVIN            = 0x15
	RegAirConSchedule = 0x1b
	RegBatteryLevel   = 0x1d
	RegLoginBurst     = 0xaa
	RegECUVersion     = 0xc0
)

var allowedCommands = [256]bool{
	CmdStartSend:     true,
	CmdStartResp:     true,
	CmdSend:          true,
	CmdResp:          true,
	CmdPingSend:      true,
	CmdPingResp:      true,
	CmdStartSendMY18: true,
	CmdStartRespMY18: true,
	CmdSendMY18:      true,
	CmdRespMY18:      true,
	CmdPingSendMY18:  true,
	CmdPingRespMY18:  true,
	CmdBB:            true,
	CmdCC:            true,
	CmdCD:            true,
}

// IsAllowedCommand reports whether cmd appears in the allowed-command table.
func IsAllowedCommand(cmd byte) bool {
	return allowedCommands[cmd]
}

// Message 代表一个解析后的 PHEV 报文
type Message struct {
	Command  byte
	Type     byte // Request / Response
	Reg      byte
	Data     []byte
	XOR      byte // key derived from the frame as it arrived
	Checksum byte // checksum byte as found on the wire (not verified)
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	out := *m
	if m.Data != nil {
		out.Data = make([]byte, len(m.Data))
		copy(out.Data, m.Data)
	}
	return &out
}

func (m *Message) String() string {
	return fmt.Sprintf("Message{cmd=0x%02x, type=%d, reg=0x%02x, len=%d, xor=0x%02x, data=%s}",
		m.Command, m.Type, m.Reg, len(m.Data), m.XOR, hex.EncodeToString(m.Data))
}

// IsRequest reports whether the message carries the request role.
func (m *Message) IsRequest() bool {
	return m.Type == Request
}
