package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 激光器驱动业务指标
type AppMetrics struct {
	CommandTotal            *prometheus.CounterVec // labels: register, result=ok|timeout|checksum|error
	ChecksumErrors          prometheus.Counter     // 响应帧校验和失败
	Timeouts                prometheus.Counter     // 响应超时
	BaudNegotiationFailures prometheus.Counter     // 波特率协商失败
	LaserOn                 prometheus.Gauge       // 当前输出开关状态 0/1
	WavelengthNm            prometheus.Gauge       // 最近一次设定成功的波长
	PowerDbm                prometheus.Gauge       // 最近一次设定成功的功率
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		CommandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "laser_command_total",
			Help: "Register transactions by register and result.",
		}, []string{"register", "result"}),
		ChecksumErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "laser_checksum_errors_total",
			Help: "Response frames rejected by checksum verification.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "laser_response_timeouts_total",
			Help: "Transactions that timed out waiting for a response frame.",
		}),
		BaudNegotiationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "laser_baud_negotiation_failures_total",
			Help: "Connect attempts that exhausted all baud candidates.",
		}),
		LaserOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "laser_output_enabled",
			Help: "Whether the laser output is currently enabled (0/1).",
		}),
		WavelengthNm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "laser_wavelength_nm",
			Help: "Last successfully applied wavelength in nanometers.",
		}),
		PowerDbm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "laser_power_dbm",
			Help: "Last successfully applied output power in dBm.",
		}),
	}
	reg.MustRegister(m.CommandTotal, m.ChecksumErrors, m.Timeouts,
		m.BaudNegotiationFailures, m.LaserOn, m.WavelengthNm, m.PowerDbm)
	return m
}
