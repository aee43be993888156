// Package itla 实现 ITLA 激光器的4字节寄存器帧编解码与单位换算。
// 帧格式：byte0 = 校验和(高4位) | 响应状态(低2位) | 方向位(bit0)，
// byte1 = 寄存器编码，byte2/byte3 = 16位数据（大端）。
package itla

import "errors"

// FrameSize 帧长度固定4字节，无长度字段，无更高层分包
const FrameSize = 4

var (
	// ErrChecksum 接收帧校验和不匹配，数据与错误位均不可信
	ErrChecksum = errors.New("itla: frame checksum mismatch")
	// ErrFrameSize 帧长度不是4字节
	ErrFrameSize = errors.New("itla: frame must be exactly 4 bytes")
)

// Direction 命令方向：只写，或写后读
type Direction byte

const (
	// WriteThenRead 写入后读回（帧方向位为0，对应读事务）
	WriteThenRead Direction = 0
	// Write 只写（帧方向位为1）
	Write Direction = 1
)

// RegisterCommand 一次寄存器事务的不可变描述
type RegisterCommand struct {
	Register  byte
	Direction Direction
	Payload   uint16
}

// Frame 编码完成的4字节线缆帧
type Frame [FrameSize]byte

// Response 解码并通过校验的响应帧内容
type Response struct {
	Status  Status // 帧首字节低2位
	Payload uint16 // byte2<<8 | byte3
}

// Checksum 计算 BIP-4 校验和：先对 byte0 低4位与其余3字节做字节异或，
// 再将结果的高低4位折叠异或。非加密校验，仅用于串口传输损伤检测，
// 算法必须与硬件逐位一致。
func Checksum(b Frame) byte {
	bip8 := (b[0] & 0x0F) ^ b[1] ^ b[2] ^ b[3]
	return ((bip8 & 0xF0) >> 4) ^ (bip8 & 0x0F)
}

// Encode 将寄存器命令编码为带校验和的4字节帧
func Encode(cmd RegisterCommand) Frame {
	f := Frame{
		byte(cmd.Direction),
		cmd.Register,
		byte(cmd.Payload >> 8),
		byte(cmd.Payload),
	}
	f[0] |= Checksum(f) << 4
	return f
}

// Decode 校验并解析响应帧。
// 校验失败返回 ErrChecksum，此时不得信任帧内任何字段（包括错误位）。
func Decode(b []byte) (Response, error) {
	if len(b) != FrameSize {
		return Response{}, ErrFrameSize
	}
	var f Frame
	copy(f[:], b)
	if Checksum(f) != f[0]>>4 {
		return Response{}, ErrChecksum
	}
	return Response{
		Status:  Status(f[0] & 0x03),
		Payload: uint16(f[2])<<8 | uint16(f[3]),
	}, nil
}
