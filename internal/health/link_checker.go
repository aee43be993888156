package health

import (
	"context"
	"time"

	"github.com/taoyao-code/laser-server/internal/seriallink"
)

// LinkStater 串口链路状态来源，*seriallink.Link 与 *driver.Laser 均满足
type LinkStater interface {
	State() seriallink.State
}

// LinkChecker 串口链路健康检查器。
// 只读状态快照，不向仪器注入任何线缆事务。
type LinkChecker struct {
	link LinkStater
}

// NewLinkChecker 创建串口链路检查器
func NewLinkChecker(link LinkStater) *LinkChecker {
	return &LinkChecker{link: link}
}

// Name 返回检查器名称
func (c *LinkChecker) Name() string { return "serial_link" }

// Check 执行健康检查
func (c *LinkChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	st := c.link.State()

	details := map[string]any{
		"connected": st.Connected,
		"baud":      st.BaudRate,
	}
	if st.LastErr != nil {
		details["last_error"] = st.LastErr.Error()
	}

	switch {
	case !st.Connected:
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "serial link down",
			Details: details,
			Latency: time.Since(start),
		}
	case st.LastErr != nil:
		return CheckResult{
			Status:  StatusDegraded,
			Message: "link errors observed",
			Details: details,
			Latency: time.Since(start),
		}
	default:
		return CheckResult{
			Status:  StatusHealthy,
			Message: "ok",
			Details: details,
			Latency: time.Since(start),
		}
	}
}
