package phev

// PacketScanner 为 bufio.Scanner 提供 Split 函数
type PacketScanner struct {
	maxPacketSize int
}

// NewPacketScanner 创建一个新的扫描器助手。
// maxPacketSize 限制单帧大小, <= 0 时使用 MaxPacketSize。
func NewPacketScanner(maxPacketSize int) *PacketScanner {
	if maxPacketSize <= 0 || maxPacketSize > MaxPacketSize {
		maxPacketSize = MaxPacketSize
	}
	return &PacketScanner{maxPacketSize: maxPacketSize}
}

// SplitFunc 是用于 bufio.Scanner 解析 PHEV 帧的分割函数。
// Tokens are returned still scrambled; Decode does the rest.
func (ps *PacketScanner) SplitFunc(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. 至少需要 4 字节才能计算密钥并读取长度
	if len(data) < MinDecodeSize {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}

	key := XORKey(data)
	cmd, declared := data[0], data[1]
	if key >= 2 {
		cmd ^= key
		declared ^= key
	}

	// 2. 非法命令: 跳过一个字节继续搜索
	if !IsAllowedCommand(cmd) {
		return 1, nil, nil
	}
	if cmd != CmdCD && declared < 3 {
		return 1, nil, nil
	}

	totalLen := int(declared) + 2
	if cmd == CmdCD && totalLen < MinPacketSize {
		totalLen = MinPacketSize
	}
	if totalLen > ps.maxPacketSize {
		return 1, nil, nil
	}

	// 3. 检查是否拥有完整的报文
	if len(data) < totalLen {
		if atEOF {
			return len(data), nil, nil // EOF 时不完整，丢弃
		}
		return 0, nil, nil // 请求更多数据
	}

	return totalLen, data[:totalLen], nil
}
