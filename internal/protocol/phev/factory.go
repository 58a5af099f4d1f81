package phev

// Message constructors. The MY18 and pre-MY18 head units are served by the same
// code path; the model-year flag does not change anything that goes on the wire.

// NewMessage 构建报文, data 会被复制
func NewMessage(command, typ, reg byte, data []byte) *Message {
	return &Message{
		Command: command,
		Type:    typ,
		Reg:     reg,
		Data:    clone(data),
	}
}

func NewRequest(command, reg byte, data []byte) *Message {
	return NewMessage(command, Request, reg, data)
}

func NewResponse(command, reg byte, data []byte) *Message {
	return NewMessage(command, Response, reg, data)
}

// CommandMessage builds a register write request.
func CommandMessage(reg byte, data []byte) *Message {
	return NewRequest(CmdSend, reg, data)
}

func SimpleRequest(reg, value byte) *Message {
	return NewRequest(CmdSend, reg, []byte{value})
}

func SimpleResponse(reg, value byte) *Message {
	return NewResponse(CmdSend, reg, []byte{value})
}

// Ack 构建应答报文, 数据固定为 [0x00]
func Ack(command, reg byte) *Message {
	return NewResponse(command, reg, []byte{0})
}

// StartMessage 构建登入握手报文: MAC(6) + 0x00
func StartMessage(mac [6]byte) *Message {
	data := make([]byte, 7)
	copy(data, mac[:])
	return NewRequest(CmdStartSendMY18, RegStart, data)
}

// StartMessageEncoded returns the two-frame login burst sent right after connecting.
func StartMessageEncoded(mac [6]byte) []byte {
	start := Encode(StartMessage(mac))
	aa := Encode(SimpleRequest(RegLoginBurst, 0))
	return append(start, aa...)
}

// PingMessage 构建心跳报文, 序号放在寄存器字段
func PingMessage(seq byte) *Message {
	return NewRequest(CmdPingSendMY18, seq, []byte{0})
}

// AckFor builds the acknowledgement for a received message: the command with
// its nibbles swapped, echoing the register.
func AckFor(received *Message) *Message {
	return Ack(SwapNibbles(received.Command), received.Reg)
}

// SwapNibbles exchanges the high and low 4 bits of b (0xf6 -> 0x6f).
func SwapNibbles(b byte) byte {
	return b<<4 | b>>4
}
