package itla

// CSpeed 真空光速，波长(nm)与频率(GHz)互换用
const CSpeed = 299792458

// WavelengthToFrequency 波长(nm)换算为频率(GHz)
func WavelengthToFrequency(nm float64) float64 {
	return CSpeed / nm
}

// FrequencyRegisters 将波长换算为协议要求的两个16位频率寄存器值：
// 整数THz部分（Fcf1）与剩余的0.1GHz部分（Fcf2）。
// 不做范围校验，调用方须先完成边界检查。
func FrequencyRegisters(nm float64) (freqTHz uint16, freqGHzTenths uint16) {
	freq := WavelengthToFrequency(nm)
	thz := int(freq / 1000)
	tenths := int(freq*10) - thz*10000
	return uint16(thz), uint16(tenths)
}
