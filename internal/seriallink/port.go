package seriallink

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// Port 串口能力抽象：本协议只需要读写、改读超时与清空输入缓冲。
// 生产实现基于 go.bug.st/serial，测试注入脚本化的假端口。
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(d time.Duration) error
	ResetInputBuffer() error
}

// Dialer 按设备路径与波特率打开串口
type Dialer func(device string, baud int) (Port, error)

// OpenSerial 默认 Dialer：8N1 打开物理串口
func OpenSerial(device string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}
	return &serialPort{p: p}, nil
}

type serialPort struct {
	p serial.Port
}

func (s *serialPort) Read(b []byte) (int, error)            { return s.p.Read(b) }
func (s *serialPort) Write(b []byte) (int, error)           { return s.p.Write(b) }
func (s *serialPort) Close() error                          { return s.p.Close() }
func (s *serialPort) SetReadTimeout(d time.Duration) error  { return s.p.SetReadTimeout(d) }
func (s *serialPort) ResetInputBuffer() error               { return s.p.ResetInputBuffer() }
