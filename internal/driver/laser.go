// Package driver 实现 ITLA 可调激光器的高层控制：
// 组合帧编解码、事务排队与串口链路，维护功率开关状态机。
package driver

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/laser-server/internal/metrics"
	"github.com/taoyao-code/laser-server/internal/protocol/itla"
	"github.com/taoyao-code/laser-server/internal/seriallink"
	"github.com/taoyao-code/laser-server/internal/sequencer"
)

// settlePolls 上电后的就绪轮询次数（协议要求，非可选项）
const settlePolls = 10

// Transport 驱动对链路层的最小依赖，*seriallink.Link 是生产实现
type Transport interface {
	Connect() error
	Disconnect() error
	Transmit(itla.Frame) error
	ReceiveFrame(timeout time.Duration) ([itla.FrameSize]byte, error)
	State() seriallink.State
}

// Bounds 激光器出厂配置的波长与功率边界，构造后不可变，
// 用于校验每次 SetWavelength / SetPower
type Bounds struct {
	MinWavelengthNm float64
	MaxWavelengthNm float64
	MinPowerDbm     float64
	MaxPowerDbm     float64
}

// Laser 激光器控制器。所有触线操作经由 sequencer.Do 串行化，
// 多个调用方可安全并发调用。
type Laser struct {
	bounds  Bounds
	link    Transport
	seq     *sequencer.Sequencer
	log     *zap.Logger
	appm    *metrics.AppMetrics
	timeout time.Duration

	mu      sync.Mutex
	powerOn bool
}

// New 创建控制器。appm 可为 nil（不上报指标）。
func New(bounds Bounds, link Transport, log *zap.Logger, appm *metrics.AppMetrics) *Laser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Laser{
		bounds:  bounds,
		link:    link,
		seq:     sequencer.New(),
		log:     log,
		appm:    appm,
		timeout: seriallink.DefaultResponseTimeout,
	}
}

// Bounds 返回构造时配置的边界
func (l *Laser) Bounds() Bounds { return l.bounds }

// PowerOn 返回当前功率开关状态
func (l *Laser) PowerOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.powerOn
}

// LinkState 返回链路状态快照
func (l *Laser) LinkState() seriallink.State { return l.link.State() }

// Connect 建立串口链路并完成波特率协商，成功后处于关断态
func (l *Laser) Connect() error {
	if err := l.link.Connect(); err != nil {
		if l.appm != nil {
			l.appm.BaudNegotiationFailures.Inc()
		}
		return err
	}
	l.mu.Lock()
	l.powerOn = false
	l.mu.Unlock()
	return nil
}

// Disconnect 关闭串口链路，可重复调用
func (l *Laser) Disconnect() error {
	return l.link.Disconnect()
}

// transact 执行一次完整的寄存器事务：领票→编码→发送→等响应→解码。
// 帧一旦发出就必须等完超时才释放票号，否则请求/响应会与硬件错位。
func (l *Laser) transact(cmd itla.RegisterCommand) (itla.Response, error) {
	var resp itla.Response
	err := l.seq.Do(func() error {
		if err := l.link.Transmit(itla.Encode(cmd)); err != nil {
			return err
		}
		raw, err := l.link.ReceiveFrame(l.timeout)
		if err != nil {
			return err
		}
		r, err := itla.Decode(raw[:])
		if err != nil {
			return err
		}
		if r.Status == itla.StatusAEA {
			return ErrExtendedAddressing
		}
		resp = r
		return nil
	})
	l.observe(cmd.Register, err)
	if err != nil {
		return itla.Response{}, err
	}
	return resp, nil
}

func (l *Laser) observe(register byte, err error) {
	if l.appm == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case IsTimeout(err):
		result = "timeout"
		l.appm.Timeouts.Inc()
	case err == itla.ErrChecksum:
		result = "checksum"
		l.appm.ChecksumErrors.Inc()
	default:
		result = "error"
	}
	l.appm.CommandTotal.WithLabelValues(fmt.Sprintf("0x%02X", register), result).Inc()
}

// IsTimeout 判断错误是否为链路响应超时
func IsTimeout(err error) bool {
	return err == seriallink.ErrTimeout
}

// write 单寄存器写事务
func (l *Laser) write(register byte, payload uint16) (itla.Status, error) {
	resp, err := l.transact(itla.RegisterCommand{
		Register:  register,
		Direction: itla.Write,
		Payload:   payload,
	})
	if err != nil {
		return 0, err
	}
	return resp.Status, nil
}

// Read 单寄存器读事务（写后读），返回16位寄存器值。
// 字符串类寄存器可能以扩展寻址方式应答，此时返回 ErrExtendedAddressing。
func (l *Laser) Read(register byte) (uint16, itla.Status, error) {
	resp, err := l.transact(itla.RegisterCommand{
		Register:  register,
		Direction: itla.WriteThenRead,
	})
	if err != nil {
		return 0, 0, err
	}
	return resp.Payload, resp.Status, nil
}

// On 打开激光输出：写 Resena 使能位，随后按协议要求执行
// 10 次 Nop 就绪轮询，最后置功率状态为开。
func (l *Laser) On() (itla.Status, error) {
	st, err := l.write(itla.RegResena, itla.ResenaOn)
	if err != nil {
		return st, err
	}
	for i := 0; i < settlePolls; i++ {
		if _, s, e := l.Read(itla.RegNop); e == nil {
			st = s
		}
	}
	l.mu.Lock()
	l.powerOn = true
	l.mu.Unlock()
	if l.appm != nil {
		l.appm.LaserOn.Set(1)
	}
	l.log.Info("laser output enabled")
	return st, nil
}

// Off 关闭激光输出：写 Resena 关断位并置功率状态为关
func (l *Laser) Off() (itla.Status, error) {
	st, err := l.write(itla.RegResena, itla.ResenaOff)
	l.mu.Lock()
	l.powerOn = false
	l.mu.Unlock()
	if l.appm != nil {
		l.appm.LaserOn.Set(0)
	}
	l.log.Info("laser output disabled")
	return st, err
}

// SetWavelength 设定目标波长（nm）。
// 频率寄存器只允许在关断态写入：若当前为开，先 Off，写 Fcf1/Fcf2，
// 之后无论写入成败都重新 On——激光器不能因一次写失败而停在关断态。
// 返回最后一次实际尝试的寄存器写的状态码。
func (l *Laser) SetWavelength(nm float64) (itla.Status, error) {
	if nm < l.bounds.MinWavelengthNm || nm > l.bounds.MaxWavelengthNm {
		return 0, &RangeError{
			Field: "wavelength",
			Value: nm,
			Min:   l.bounds.MinWavelengthNm,
			Max:   l.bounds.MaxWavelengthNm,
		}
	}
	freqTHz, freqGHzTenths := itla.FrequencyRegisters(nm)

	wasOn := l.PowerOn()
	if wasOn {
		if _, err := l.Off(); err != nil {
			l.log.Warn("power-off before frequency write failed", zap.Error(err))
		}
	}

	st, err := l.write(itla.RegFcf1, freqTHz)
	if err == nil && st == itla.StatusOK {
		st, err = l.write(itla.RegFcf2, freqGHzTenths)
	}

	if wasOn {
		// 写失败也必须恢复输出
		if _, onErr := l.On(); onErr != nil {
			l.log.Error("power restore after frequency write failed", zap.Error(onErr))
		}
	}

	if err == nil && st == itla.StatusOK {
		if l.appm != nil {
			l.appm.WavelengthNm.Set(nm)
		}
		l.log.Info("wavelength set",
			zap.Float64("nm", nm),
			zap.Uint16("fcf1_thz", freqTHz),
			zap.Uint16("fcf2_ghz_tenths", freqGHzTenths))
	}
	return st, err
}

// SetPower 设定输出功率（dBm），按协议换算为百分之一dBm写入 Power 寄存器。
// 越界取值直接拒绝，不下发给硬件。
func (l *Laser) SetPower(dBm float64) (itla.Status, error) {
	if dBm < l.bounds.MinPowerDbm || dBm > l.bounds.MaxPowerDbm {
		return 0, &RangeError{
			Field: "power",
			Value: dBm,
			Min:   l.bounds.MinPowerDbm,
			Max:   l.bounds.MaxPowerDbm,
		}
	}
	st, err := l.write(itla.RegPower, uint16(int(dBm*100)))
	if err == nil && st == itla.StatusOK && l.appm != nil {
		l.appm.PowerDbm.Set(dBm)
	}
	return st, err
}

// SetChannel 设定通道号（通常恒为1）
func (l *Laser) SetChannel(ch uint16) (itla.Status, error) {
	return l.write(itla.RegChannel, ch)
}

// SetMode 设定工作模式：0 常规 / 1 无抖动 / 2 洁净。
// 集合外取值原样下发，由硬件拒绝。
func (l *Laser) SetMode(mode uint16) (itla.Status, error) {
	return l.write(itla.RegMode, mode)
}

// FineTune 微调输出频率：向 Ftf 寄存器写入0.1GHz为单位的偏移量
func (l *Laser) FineTune(ghzTenths uint16) (itla.Status, error) {
	return l.write(itla.RegFtf, ghzTenths)
}

// Identity 设备标识寄存器组的读取结果
type Identity struct {
	Mfgr    uint16 `json:"mfgr"`
	Model   uint16 `json:"model"`
	Serial  uint16 `json:"serial"`
	Release uint16 `json:"release"`
}

// Identify 依次读取厂商/型号/序列号/固件版本寄存器。
// 这些寄存器在部分固件上以扩展寻址应答，届时整体返回 ErrExtendedAddressing。
func (l *Laser) Identify() (Identity, error) {
	var id Identity
	regs := []struct {
		reg byte
		dst *uint16
	}{
		{itla.RegMfgr, &id.Mfgr},
		{itla.RegModel, &id.Model},
		{itla.RegSerial, &id.Serial},
		{itla.RegRelease, &id.Release},
	}
	for _, r := range regs {
		v, _, err := l.Read(r.reg)
		if err != nil {
			return Identity{}, err
		}
		*r.dst = v
	}
	return id, nil
}
