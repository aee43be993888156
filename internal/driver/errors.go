package driver

import (
	"errors"
	"fmt"
)

var (
	// ErrExtendedAddressing 硬件返回扩展寻址响应（AEA大报文读取），
	// 本驱动不支持该读取模式，显式报错而非留作死路径
	ErrExtendedAddressing = errors.New("driver: extended addressing response not supported")
)

// RangeError 设定值超出构造时配置的边界
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

// Error 实现 error
func (e *RangeError) Error() string {
	return fmt.Sprintf("driver: %s %.4f out of range [%.4f, %.4f]", e.Field, e.Value, e.Min, e.Max)
}

// IsRangeError 判断错误链中是否包含 RangeError
func IsRangeError(err error) bool {
	var re *RangeError
	return errors.As(err, &re)
}
