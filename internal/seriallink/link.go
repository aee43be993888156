// Package seriallink 持有串口连接：连接期完成波特率协商，
// 对上暴露帧级收发与链路状态。
package seriallink

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/laser-server/internal/protocol/itla"
)

var (
	// ErrNotConnected 链路未建立
	ErrNotConnected = errors.New("seriallink: not connected")
	// ErrTimeout 截止时间内收到的字节不足4个。
	// 超时是独立的错误种类，绝不折算成硬件状态码。
	ErrTimeout = errors.New("seriallink: response timeout")
	// ErrBaudNegotiation 所有候选波特率均未得到有效的Nop响应
	ErrBaudNegotiation = errors.New("seriallink: baud rate negotiation failed")
)

// BaudCandidates 协商候选序列，按升序尝试。
// 真实硬件可能以任意一档上电，故连接期必须探测。
var BaudCandidates = []int{4800, 9600, 19200, 38400, 57600, 115200}

// DefaultResponseTimeout 硬件响应默认等待时间
const DefaultResponseTimeout = 500 * time.Millisecond

// pollInterval 等待响应字节的轮询粒度
const pollInterval = 100 * time.Microsecond

// Config 链路配置
type Config struct {
	Device          string        // 设备路径，如 /dev/ttyUSB0
	InitialBaud     int           // 初始波特率
	ResponseTimeout time.Duration // 单次事务响应超时
}

// State 链路状态快照，仅由 Link 在连接/断开/通信失败时变更
type State struct {
	Connected bool
	BaudRate  int
	LastErr   error
}

// Link 串口链路管理器。并发控制由上层 sequencer 保证，
// Link 自身只在状态读写上加锁。
type Link struct {
	cfg  Config
	dial Dialer
	log  *zap.Logger

	mu    sync.Mutex
	port  Port
	state State
}

// New 创建链路管理器。dial 为空时使用物理串口。
func New(cfg Config, dial Dialer, log *zap.Logger) *Link {
	if dial == nil {
		dial = OpenSerial
	}
	if cfg.InitialBaud <= 0 {
		cfg.InitialBaud = 9600
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = DefaultResponseTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Link{cfg: cfg, dial: dial, log: log}
}

// State 返回链路状态快照
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Connect 打开串口并完成波特率协商。
// 先在初始波特率上发 Nop 探测；失败则沿候选序列逐档重开重试，
// 探测成功立即返回，候选耗尽返回 ErrBaudNegotiation。
// 协商是单线程过程，完成前不接受任何排队事务。
func (l *Link) Connect() error {
	l.mu.Lock()
	if l.state.Connected {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	baud := l.cfg.InitialBaud
	port, err := l.dial(l.cfg.Device, baud)
	if err != nil {
		l.setError(fmt.Errorf("open %s: %w", l.cfg.Device, err))
		return fmt.Errorf("seriallink: open %s: %w", l.cfg.Device, err)
	}

	for {
		if l.probe(port) {
			l.mu.Lock()
			l.port = port
			l.state = State{Connected: true, BaudRate: baud}
			l.mu.Unlock()
			l.log.Info("serial link established",
				zap.String("device", l.cfg.Device), zap.Int("baud", baud))
			return nil
		}
		l.log.Debug("nop probe failed", zap.Int("baud", baud))

		next, ok := nextBaud(baud)
		if !ok {
			_ = port.Close()
			l.setError(ErrBaudNegotiation)
			return ErrBaudNegotiation
		}
		// 硬件要求整端口重开，而非仅改速率
		_ = port.Close()
		baud = next
		port, err = l.dial(l.cfg.Device, baud)
		if err != nil {
			l.setError(fmt.Errorf("reopen %s at %d: %w", l.cfg.Device, baud, err))
			return fmt.Errorf("seriallink: reopen %s at %d: %w", l.cfg.Device, baud, err)
		}
	}
}

// nextBaud 返回候选序列中大于当前值的下一档
func nextBaud(cur int) (int, bool) {
	for _, b := range BaudCandidates {
		if b > cur {
			return b, true
		}
	}
	return 0, false
}

// probe 在给定端口上执行一次 Nop 读事务，响应有效且无错误视为成功
func (l *Link) probe(port Port) bool {
	f := itla.Encode(itla.RegisterCommand{Register: itla.RegNop, Direction: itla.WriteThenRead})
	if err := transmit(port, f); err != nil {
		return false
	}
	raw, err := receiveFrame(port, l.cfg.ResponseTimeout, l.log)
	if err != nil {
		return false
	}
	resp, err := itla.Decode(raw[:])
	return err == nil && resp.Status == itla.StatusOK
}

// Transmit 清空待读输入后写出4字节帧
func (l *Link) Transmit(f itla.Frame) error {
	l.mu.Lock()
	port := l.port
	connected := l.state.Connected
	l.mu.Unlock()
	if !connected || port == nil {
		return ErrNotConnected
	}
	if err := transmit(port, f); err != nil {
		l.setError(err)
		return fmt.Errorf("seriallink: transmit: %w", err)
	}
	return nil
}

func transmit(port Port, f itla.Frame) error {
	// 残留的陈旧字节会错位请求/响应对齐，发送前必须清空
	_ = port.ResetInputBuffer()
	_, err := port.Write(f[:])
	return err
}

// ReceiveFrame 等待响应帧：截止时间内不足4字节返回 ErrTimeout；
// 多余的尾随字节属协议违例，记录后丢弃，仅返回前4字节。
func (l *Link) ReceiveFrame(timeout time.Duration) ([itla.FrameSize]byte, error) {
	l.mu.Lock()
	port := l.port
	connected := l.state.Connected
	l.mu.Unlock()
	var zero [itla.FrameSize]byte
	if !connected || port == nil {
		return zero, ErrNotConnected
	}
	if timeout <= 0 {
		timeout = l.cfg.ResponseTimeout
	}
	raw, err := receiveFrame(port, timeout, l.log)
	if err != nil {
		l.setError(err)
		return zero, err
	}
	return raw, nil
}

func receiveFrame(port Port, timeout time.Duration, log *zap.Logger) ([itla.FrameSize]byte, error) {
	var frame [itla.FrameSize]byte
	deadline := time.Now().Add(timeout)
	_ = port.SetReadTimeout(pollInterval)

	buf := make([]byte, 64)
	got := 0
	for got < itla.FrameSize {
		if time.Now().After(deadline) {
			return frame, ErrTimeout
		}
		n, err := port.Read(buf)
		if err != nil {
			return frame, err
		}
		if n == 0 {
			continue // 读超时粒度内无数据，继续轮询
		}
		if got+n > itla.FrameSize {
			extra := got + n - itla.FrameSize
			log.Warn("protocol violation: extra response bytes dropped",
				zap.Int("extra", extra))
			n = itla.FrameSize - got
		}
		copy(frame[got:], buf[:n])
		got += n
	}
	return frame, nil
}

// Disconnect 关闭串口，可重复调用
func (l *Link) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		l.state.Connected = false
		return nil
	}
	err := l.port.Close()
	l.port = nil
	l.state.Connected = false
	return err
}

func (l *Link) setError(err error) {
	l.mu.Lock()
	l.state.LastErr = err
	l.mu.Unlock()
}
