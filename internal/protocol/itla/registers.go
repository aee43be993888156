package itla

// 寄存器表（ITLA MSA 寄存器编码，必须与硬件逐字节一致）
const (
	RegNop      byte = 0x00
	RegMfgr     byte = 0x02
	RegModel    byte = 0x03
	RegSerial   byte = 0x04
	RegRelease  byte = 0x06
	RegGencfg   byte = 0x08
	RegAeaEar   byte = 0x0B
	RegIocap    byte = 0x0D
	RegEar      byte = 0x10
	RegDlconfig byte = 0x14
	RegDlstatus byte = 0x15
	RegChannel  byte = 0x30
	RegPower    byte = 0x31
	RegResena   byte = 0x32
	RegGrid     byte = 0x34
	RegFcf1     byte = 0x35
	RegFcf2     byte = 0x36
	RegOop      byte = 0x42
	RegOpsl     byte = 0x50
	RegOpsh     byte = 0x51
	RegLfl1     byte = 0x52
	RegLfl2     byte = 0x53
	RegLfh1     byte = 0x54
	RegLfh2     byte = 0x55
	RegCurrents byte = 0x57
	RegTemps    byte = 0x58
	RegFtf      byte = 0x62
	RegMode     byte = 0x90
	RegPW       byte = 0xE0

	// 扫描/跳变寄存器组
	RegCsweepamp    byte = 0xE4
	RegCsweepsena   byte = 0xE5
	RegCsweepoffset byte = 0xE6
	RegCjumpTHz     byte = 0xEA
	RegCjumpGHz     byte = 0xEB
	RegCjumpSled    byte = 0xEC
	RegCjumpon      byte = 0xED
	RegCscansled    byte = 0xF0
	RegCscanf1      byte = 0xF1
	RegCscanf2      byte = 0xF2
)

// Resena 寄存器取值：8 使能输出（SENA位），0 关闭输出
const (
	ResenaOn  uint16 = 8
	ResenaOff uint16 = 0
)

// 激光器工作模式（Mode 寄存器取值）
// 集合之外的取值原样下发，由硬件自行拒绝
const (
	ModeRegular  uint16 = 0 // 常规模式
	ModeNoDither uint16 = 1 // 无抖动模式
	ModeClean    uint16 = 2 // 洁净模式
)

// Status 硬件返回的2位状态码（帧首字节低2位）
type Status byte

const (
	// StatusOK 无错误
	StatusOK Status = 0x00
	// StatusExecError 执行错误
	StatusExecError Status = 0x01
	// StatusAEA 扩展寻址响应（大报文读取，本驱动不支持）
	StatusAEA Status = 0x02
	// StatusCPError 命令处理错误
	StatusCPError Status = 0x03
)

// String 返回状态码的可读描述
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusExecError:
		return "execution error"
	case StatusAEA:
		return "extended addressing response"
	case StatusCPError:
		return "command processing error"
	}
	return "unknown"
}

// IsError 判断状态码是否表示硬件侧错误
func (s Status) IsError() bool { return s != StatusOK }
