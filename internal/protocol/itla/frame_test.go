package itla

import (
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name     string
		frame    Frame
		expected byte
	}{
		{
			name:     "全零帧",
			frame:    Frame{0x00, 0x00, 0x00, 0x00},
			expected: 0x00,
		},
		{
			name:     "Resena使能写帧",
			frame:    Frame{0x01, 0x32, 0x00, 0x08},
			expected: 0x08, // bip8 = 0x01^0x32^0x00^0x08 = 0x3B, bip4 = 0x3^0xB = 0x8
		},
		{
			name:     "校验和忽略byte0高4位",
			frame:    Frame{0xF1, 0x32, 0x00, 0x08},
			expected: 0x08,
		},
		{
			name:     "Power写帧",
			frame:    Frame{0x01, 0x31, 0x05, 0x46}, // 13.5 dBm = 1350 = 0x0546
			expected: byte((((0x01 ^ 0x31 ^ 0x05 ^ 0x46) & 0xF0) >> 4) ^ ((0x01 ^ 0x31 ^ 0x05 ^ 0x46) & 0x0F)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.frame); got != tt.expected {
				t.Errorf("Checksum() = 0x%02X, expected 0x%02X", got, tt.expected)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		cmd      RegisterCommand
		expected Frame
	}{
		{
			name:     "Nop读帧",
			cmd:      RegisterCommand{Register: RegNop, Direction: WriteThenRead, Payload: 0},
			expected: Frame{0x00, 0x00, 0x00, 0x00},
		},
		{
			name:     "Resena使能",
			cmd:      RegisterCommand{Register: RegResena, Direction: Write, Payload: ResenaOn},
			expected: Frame{0x81, 0x32, 0x00, 0x08},
		},
		{
			name:     "Fcf1写193THz",
			cmd:      RegisterCommand{Register: RegFcf1, Direction: Write, Payload: 193},
			expected: Frame{0x01 | Checksum(Frame{0x01, 0x35, 0x00, 0xC1})<<4, 0x35, 0x00, 0xC1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.cmd); got != tt.expected {
				t.Errorf("Encode() = % 02X, expected % 02X", got, tt.expected)
			}
		})
	}
}

// TestDecodeRoundTrip 编码后解码应还原寄存器数据（无注入损伤时）
func TestDecodeRoundTrip(t *testing.T) {
	cmds := []RegisterCommand{
		{Register: RegNop, Direction: WriteThenRead, Payload: 0},
		{Register: RegChannel, Direction: Write, Payload: 1},
		{Register: RegPower, Direction: Write, Payload: 1350},
		{Register: RegFcf1, Direction: Write, Payload: 193},
		{Register: RegFcf2, Direction: Write, Payload: 4144},
		{Register: RegMode, Direction: Write, Payload: 2},
		{Register: RegCjumpTHz, Direction: Write, Payload: 0xFFFF},
	}
	for _, cmd := range cmds {
		f := Encode(cmd)
		resp, err := Decode(f[:])
		if err != nil {
			t.Fatalf("Decode(% 02X) error = %v", f, err)
		}
		if resp.Payload != cmd.Payload {
			t.Errorf("payload = %d, expected %d", resp.Payload, cmd.Payload)
		}
	}
}

// TestDecodeChecksumRejection 数据位翻转必须被校验和拒绝
func TestDecodeChecksumRejection(t *testing.T) {
	f := Encode(RegisterCommand{Register: RegFcf1, Direction: Write, Payload: 193})

	// 逐位翻转 byte1..byte3（不碰校验和半字节）
	for byteIdx := 1; byteIdx < FrameSize; byteIdx++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := f
			corrupted[byteIdx] ^= 1 << bit
			if _, err := Decode(corrupted[:]); err != ErrChecksum {
				// BIP-4 折叠下任何单比特翻转都会改变校验值
				t.Errorf("byte%d bit%d 翻转未被拒绝, err = %v", byteIdx, bit, err)
			}
		}
	}
}

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		name   string
		status Status
	}{
		{"无错误", StatusOK},
		{"执行错误", StatusExecError},
		{"扩展寻址响应", StatusAEA},
		{"命令处理错误", StatusCPError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Frame{byte(tt.status), RegNop, 0x12, 0x34}
			f[0] |= Checksum(f) << 4
			resp, err := Decode(f[:])
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if resp.Status != tt.status {
				t.Errorf("status = %v, expected %v", resp.Status, tt.status)
			}
			if resp.Payload != 0x1234 {
				t.Errorf("payload = 0x%04X, expected 0x1234", resp.Payload)
			}
		})
	}
}

func TestDecodeFrameSize(t *testing.T) {
	if _, err := Decode([]byte{0x00, 0x00}); err != ErrFrameSize {
		t.Errorf("短帧应返回 ErrFrameSize, got %v", err)
	}
	if _, err := Decode(make([]byte, 8)); err != ErrFrameSize {
		t.Errorf("长帧应返回 ErrFrameSize, got %v", err)
	}
}
