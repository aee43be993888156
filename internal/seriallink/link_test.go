package seriallink

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/laser-server/internal/protocol/itla"
)

// fakePort 脚本化假端口：只在 answerBaud 档位上应答有效帧
type fakePort struct {
	mu         sync.Mutex
	baud       int
	answerBaud int
	rx         []byte
	closed     bool
	trailer    []byte // 模拟协议违例的多余尾随字节
	silent     bool   // 永不应答（模拟超时）
}

func (f *fakePort) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.silent || f.baud != f.answerBaud {
		return len(b), nil // 波特率不匹配时硬件收到乱码，不应答
	}
	resp, err := itla.Decode(b)
	if err != nil {
		return len(b), nil
	}
	echo := itla.Frame{0x00, b[1], byte(resp.Payload >> 8), byte(resp.Payload)}
	echo[0] |= itla.Checksum(echo) << 4
	f.rx = append(f.rx, echo[:]...)
	f.rx = append(f.rx, f.trailer...)
	return len(b), nil
}

func (f *fakePort) Read(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rx) == 0 {
		return 0, nil // 模拟读超时：无数据
	}
	n := copy(b, f.rx)
	f.rx = f.rx[n:]
	return n, nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePort) SetReadTimeout(time.Duration) error { return nil }

func (f *fakePort) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = nil
	return nil
}

// fakeDialer 记录每次打开的波特率
type fakeDialer struct {
	mu         sync.Mutex
	answerBaud int
	silent     bool
	opened     []int
	last       *fakePort
}

func (d *fakeDialer) dial(_ string, baud int) (Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = append(d.opened, baud)
	d.last = &fakePort{baud: baud, answerBaud: d.answerBaud, silent: d.silent}
	return d.last, nil
}

func newTestLink(d *fakeDialer, initialBaud int) *Link {
	return New(Config{
		Device:          "/dev/ttyUSB0",
		InitialBaud:     initialBaud,
		ResponseTimeout: 50 * time.Millisecond,
	}, d.dial, zap.NewNop())
}

// TestConnectBaudNegotiation 仅在38400应答的硬件：
// 依次尝试 4800/9600/19200 失败，38400 成功后不再尝试更高档位。
func TestConnectBaudNegotiation(t *testing.T) {
	d := &fakeDialer{answerBaud: 38400}
	l := newTestLink(d, 4800)

	require.NoError(t, l.Connect())
	assert.Equal(t, []int{4800, 9600, 19200, 38400}, d.opened)

	st := l.State()
	assert.True(t, st.Connected)
	assert.Equal(t, 38400, st.BaudRate)
}

func TestConnectFirstBaudSucceeds(t *testing.T) {
	d := &fakeDialer{answerBaud: 9600}
	l := newTestLink(d, 9600)

	require.NoError(t, l.Connect())
	assert.Equal(t, []int{9600}, d.opened)
	assert.Equal(t, 9600, l.State().BaudRate)
}

// TestConnectNegotiationExhausted 任何档位都不应答时必须以 ErrBaudNegotiation 失败
func TestConnectNegotiationExhausted(t *testing.T) {
	d := &fakeDialer{answerBaud: -1}
	l := newTestLink(d, 4800)

	err := l.Connect()
	require.ErrorIs(t, err, ErrBaudNegotiation)
	assert.Equal(t, []int{4800, 9600, 19200, 38400, 57600, 115200}, d.opened)
	assert.False(t, l.State().Connected)
}

// TestReceiveFrameTimeout 硬件永不应答时，ReceiveFrame 必须在配置的
// 截止时间附近返回 ErrTimeout，而不是提前或无限等待。
func TestReceiveFrameTimeout(t *testing.T) {
	d := &fakeDialer{answerBaud: 9600}
	l := newTestLink(d, 9600)
	require.NoError(t, l.Connect())

	d.last.mu.Lock()
	d.last.silent = true
	d.last.mu.Unlock()

	f := itla.Encode(itla.RegisterCommand{Register: itla.RegNop, Direction: itla.WriteThenRead})
	require.NoError(t, l.Transmit(f))

	start := time.Now()
	_, err := l.ReceiveFrame(50 * time.Millisecond)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

// TestReceiveFrameDropsTrailingBytes 多余尾随字节被丢弃，仅返回前4字节
func TestReceiveFrameDropsTrailingBytes(t *testing.T) {
	d := &fakeDialer{answerBaud: 9600}
	l := newTestLink(d, 9600)
	require.NoError(t, l.Connect())

	d.last.mu.Lock()
	d.last.trailer = []byte{0xAA, 0xBB}
	d.last.mu.Unlock()

	f := itla.Encode(itla.RegisterCommand{Register: itla.RegChannel, Direction: itla.Write, Payload: 1})
	require.NoError(t, l.Transmit(f))

	raw, err := l.ReceiveFrame(0)
	require.NoError(t, err)
	resp, err := itla.Decode(raw[:])
	require.NoError(t, err)
	assert.Equal(t, uint16(1), resp.Payload)
}

func TestTransmitFlushesPendingInput(t *testing.T) {
	d := &fakeDialer{answerBaud: 9600}
	l := newTestLink(d, 9600)
	require.NoError(t, l.Connect())

	// 预置陈旧字节，Transmit 前必须清空
	d.last.mu.Lock()
	d.last.rx = []byte{0xDE, 0xAD}
	d.last.mu.Unlock()

	f := itla.Encode(itla.RegisterCommand{Register: itla.RegPower, Direction: itla.Write, Payload: 1350})
	require.NoError(t, l.Transmit(f))

	raw, err := l.ReceiveFrame(0)
	require.NoError(t, err)
	resp, err := itla.Decode(raw[:])
	require.NoError(t, err)
	assert.Equal(t, uint16(1350), resp.Payload)
}

func TestDisconnectIdempotent(t *testing.T) {
	d := &fakeDialer{answerBaud: 9600}
	l := newTestLink(d, 9600)
	require.NoError(t, l.Connect())

	require.NoError(t, l.Disconnect())
	require.NoError(t, l.Disconnect())
	assert.False(t, l.State().Connected)

	_, err := l.ReceiveFrame(0)
	assert.ErrorIs(t, err, ErrNotConnected)
}
