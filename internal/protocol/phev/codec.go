package phev

// MaxDataLength is the largest payload whose declared length still fits in one byte.
const MaxDataLength = 0xFF - 3

// Validate 校验命令字节和声明长度
// 0xCD 帧只要命令合法即视为有效。
func Validate(frame []byte) bool {
	return validateFrame(frame) == nil
}

func validateFrame(frame []byte) error {
	if len(frame) == 0 {
		return ErrMalformedFrame
	}
	cmd := frame[0]
	if !IsAllowedCommand(cmd) {
		return ErrInvalidCommand
	}
	if cmd == CmdCD {
		return nil
	}
	if len(frame) < 2 {
		return ErrMalformedFrame
	}
	// length goes past end of message
	if int(frame[1])+2 > len(frame) {
		return ErrTruncatedFrame
	}
	return nil
}

// XORKey derives the scrambling key from bytes 0 and 2 of a frame.
// Frames shorter than 3 bytes and frames whose type byte is below 2 are not scrambled.
func XORKey(frame []byte) byte {
	if len(frame) < 3 || frame[2] < 2 {
		return 0
	}
	var even byte
	if frame[0]&1 == 0 {
		even = 1
	}
	return (frame[2] | even) & 0xfe
}

// Unscramble returns a copy of frame with every byte XOR-ed with key.
func Unscramble(frame []byte, key byte) []byte {
	out := make([]byte, len(frame))
	copy(out, frame)
	if key < 2 {
		return out
	}
	for i := range out {
		out[i] ^= key
	}
	return out
}

// ScrambleOutbound returns a copy of frame scrambled for sending. Unlike Unscramble
// the key is first folded with the frame's type byte, so the two are not inverses.
func ScrambleOutbound(frame []byte, key byte) []byte {
	out := make([]byte, len(frame))
	copy(out, frame)
	if key < 2 || len(out) < 3 {
		return out
	}
	key ^= out[2]
	for i := range out {
		out[i] ^= key
	}
	return out
}

// Decode 将接收到的原始字节解析为 Message
func Decode(raw []byte) (*Message, error) {
	if len(raw) < MinDecodeSize {
		return nil, &DecodeError{Err: ErrMalformedFrame, Raw: clone(raw)}
	}

	key := XORKey(raw)
	decoded := Unscramble(raw, key)

	if err := validateFrame(decoded); err != nil {
		return nil, &DecodeError{Err: err, Raw: clone(raw), Decoded: decoded}
	}

	var length int
	if decoded[0] == CmdCD {
		length = 1
		if len(decoded) < HeaderLength+length {
			return nil, &DecodeError{Err: ErrTruncatedFrame, Raw: clone(raw), Decoded: decoded}
		}
	} else {
		if decoded[1] < 3 {
			return nil, &DecodeError{Err: ErrMalformedFrame, Raw: clone(raw), Decoded: decoded}
		}
		length = int(decoded[1]) - 3
	}

	msg := &Message{
		Command: decoded[0],
		Type:    decoded[2],
		Reg:     decoded[3],
		XOR:     key,
	}
	if length > 0 {
		msg.Data = make([]byte, length)
		copy(msg.Data, decoded[HeaderLength:HeaderLength+length])
	}
	if idx := HeaderLength + length; idx < len(decoded) {
		msg.Checksum = decoded[idx]
	}
	return msg, nil
}

// Encode 将 Message 编码为字节流 (不加扰)
// 结构: [Cmd 1][Len 1][Type 1][Reg 1][Data N][Sum 1]
// The length byte wraps for payloads over MaxDataLength; senders check the
// limit first (see ErrPayloadTooLarge).
func Encode(m *Message) []byte {
	dataLen := len(m.Data)
	buf := make([]byte, dataLen+MinPacketSize)

	buf[0] = m.Command
	buf[1] = byte(dataLen + 3)
	buf[2] = m.Type
	buf[3] = m.Reg
	copy(buf[HeaderLength:], m.Data)

	buf[dataLen+HeaderLength] = sum(buf[:dataLen+HeaderLength])
	return buf
}

// ExtractFrame returns a copy of the first complete frame in buf, still scrambled,
// or nil if the buffer does not start with a valid frame.
func ExtractFrame(buf []byte) []byte {
	if len(buf) < 2 {
		return nil
	}
	decoded := Unscramble(buf, XORKey(buf))
	if validateFrame(decoded) != nil {
		return nil
	}
	n := int(decoded[1]) + 2
	if n > len(buf) {
		return nil
	}
	return clone(buf[:n])
}

// Checksum 计算校验和: 从命令字节到数据末尾的字节累加 (截断为 8 位)
func Checksum(frame []byte) byte {
	if len(frame) < 2 {
		return sum(frame)
	}
	end := int(frame[1]) + 1
	if end > len(frame) {
		end = len(frame)
	}
	return sum(frame[:end])
}

// VerifyChecksum 验证完整报文的校验和
func VerifyChecksum(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}
	idx := int(frame[1]) + 1
	if idx >= len(frame) {
		return false
	}
	return frame[idx] == Checksum(frame)
}

func sum(data []byte) byte {
	var s byte
	for _, b := range data {
		s += b
	}
	return s
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
