package phev

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrInvalidCommand 命令字节不在允许列表中
	ErrInvalidCommand  = errors.New("phev: invalid command")
	// ErrTruncatedFrame 声明长度超出缓冲区
	ErrTruncatedFrame  = errors.New("phev: truncated frame")
	// ErrMalformedFrame 缓冲区短于最小可寻址字段
	ErrMalformedFrame  = errors.New("phev: malformed frame")
	// ErrPayloadTooLarge 数据超过 MaxDataLength, 长度字节无法表示
	ErrPayloadTooLarge = errors.New("phev: payload too large")
)

// DecodeError is returned by Decode. It keeps both the buffer as received and
// the unscrambled buffer so the caller can dump them.
type DecodeError struct {
	Err     error
	Raw     []byte
	Decoded []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (raw=%s decoded=%s)", e.Err, hex.EncodeToString(e.Raw), hex.EncodeToString(e.Decoded))
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
