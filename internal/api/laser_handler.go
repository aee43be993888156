// Package api 将激光器驱动的公开操作暴露为HTTP接口。
// 本包只是驱动核心的一个调用方：调用公开操作、转译返回码，
// 不掺入任何协议细节。
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/laser-server/internal/driver"
	"github.com/taoyao-code/laser-server/internal/protocol/itla"
	"github.com/taoyao-code/laser-server/internal/registry"
	"github.com/taoyao-code/laser-server/internal/seriallink"
)

// LaserController api层对驱动的最小依赖，*driver.Laser 是生产实现
type LaserController interface {
	Connect() error
	Disconnect() error
	On() (itla.Status, error)
	Off() (itla.Status, error)
	SetWavelength(nm float64) (itla.Status, error)
	SetPower(dBm float64) (itla.Status, error)
	SetChannel(ch uint16) (itla.Status, error)
	SetMode(mode uint16) (itla.Status, error)
	FineTune(ghzTenths uint16) (itla.Status, error)
	Identify() (driver.Identity, error)
	PowerOn() bool
	Bounds() driver.Bounds
	LinkState() seriallink.State
}

// LaserHandler 激光器控制接口处理器
type LaserHandler struct {
	laser  LaserController
	reg    *registry.Registry
	logger *zap.Logger
}

// NewLaserHandler 创建处理器。reg 可为 nil（不暴露仪器目录）。
func NewLaserHandler(laser LaserController, reg *registry.Registry, logger *zap.Logger) *LaserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LaserHandler{laser: laser, reg: reg, logger: logger}
}

// statusReply 硬件状态码应答：0 表示无错误
func statusReply(c *gin.Context, st itla.Status) {
	c.JSON(http.StatusOK, gin.H{
		"status":      int(st),
		"status_text": st.String(),
	})
}

// replyError 将驱动的类型化错误映射为HTTP状态码
func (h *LaserHandler) replyError(c *gin.Context, err error) {
	switch {
	case driver.IsRangeError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "out_of_range", "message": err.Error()})
	case errors.Is(err, seriallink.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "timeout", "message": err.Error()})
	case errors.Is(err, itla.ErrChecksum):
		c.JSON(http.StatusBadGateway, gin.H{"error": "checksum", "message": err.Error()})
	case errors.Is(err, seriallink.ErrBaudNegotiation):
		c.JSON(http.StatusBadGateway, gin.H{"error": "baud_negotiation", "message": err.Error()})
	case errors.Is(err, seriallink.ErrNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": "not_connected", "message": err.Error()})
	case errors.Is(err, driver.ErrExtendedAddressing):
		c.JSON(http.StatusNotImplemented, gin.H{"error": "extended_addressing", "message": err.Error()})
	default:
		h.logger.Error("laser command failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
	}
}

// Connect 建立串口链路（含波特率协商）
func (h *LaserHandler) Connect(c *gin.Context) {
	if err := h.laser.Connect(); err != nil {
		h.replyError(c, err)
		return
	}
	st := h.laser.LinkState()
	c.JSON(http.StatusOK, gin.H{"connected": true, "baud": st.BaudRate})
}

// Disconnect 关闭串口链路
func (h *LaserHandler) Disconnect(c *gin.Context) {
	if err := h.laser.Disconnect(); err != nil {
		h.replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}

// On 打开激光输出
func (h *LaserHandler) On(c *gin.Context) {
	st, err := h.laser.On()
	if err != nil {
		h.replyError(c, err)
		return
	}
	statusReply(c, st)
}

// Off 关闭激光输出
func (h *LaserHandler) Off(c *gin.Context) {
	st, err := h.laser.Off()
	if err != nil {
		h.replyError(c, err)
		return
	}
	statusReply(c, st)
}

type wavelengthReq struct {
	Nm float64 `json:"nm" binding:"required"`
}

// SetWavelength 设定波长
func (h *LaserHandler) SetWavelength(c *gin.Context) {
	var req wavelengthReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}
	st, err := h.laser.SetWavelength(req.Nm)
	if err != nil {
		h.replyError(c, err)
		return
	}
	statusReply(c, st)
}

type powerReq struct {
	Dbm float64 `json:"dbm" binding:"required"`
}

// SetPower 设定输出功率
func (h *LaserHandler) SetPower(c *gin.Context) {
	var req powerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}
	st, err := h.laser.SetPower(req.Dbm)
	if err != nil {
		h.replyError(c, err)
		return
	}
	statusReply(c, st)
}

type channelReq struct {
	Channel uint16 `json:"channel"`
}

// SetChannel 设定通道号
func (h *LaserHandler) SetChannel(c *gin.Context) {
	var req channelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}
	st, err := h.laser.SetChannel(req.Channel)
	if err != nil {
		h.replyError(c, err)
		return
	}
	statusReply(c, st)
}

type modeReq struct {
	Mode uint16 `json:"mode"`
}

// SetMode 设定工作模式
func (h *LaserHandler) SetMode(c *gin.Context) {
	var req modeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}
	st, err := h.laser.SetMode(req.Mode)
	if err != nil {
		h.replyError(c, err)
		return
	}
	statusReply(c, st)
}

type ftfReq struct {
	GhzTenths uint16 `json:"ghzTenths"`
}

// FineTune 微调输出频率
func (h *LaserHandler) FineTune(c *gin.Context) {
	var req ftfReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}
	st, err := h.laser.FineTune(req.GhzTenths)
	if err != nil {
		h.replyError(c, err)
		return
	}
	statusReply(c, st)
}

// Status 控制器与链路状态快照（不触线）
func (h *LaserHandler) Status(c *gin.Context) {
	link := h.laser.LinkState()
	bounds := h.laser.Bounds()
	c.JSON(http.StatusOK, gin.H{
		"connected": link.Connected,
		"baud":      link.BaudRate,
		"power_on":  h.laser.PowerOn(),
		"bounds": gin.H{
			"min_wavelength_nm": bounds.MinWavelengthNm,
			"max_wavelength_nm": bounds.MaxWavelengthNm,
			"min_power_dbm":     bounds.MinPowerDbm,
			"max_power_dbm":     bounds.MaxPowerDbm,
		},
	})
}

// Identify 读取设备标识寄存器组
func (h *LaserHandler) Identify(c *gin.Context) {
	id, err := h.laser.Identify()
	if err != nil {
		h.replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, id)
}

// ListInstruments 返回目录中已登记的仪器
func (h *LaserHandler) ListInstruments(c *gin.Context) {
	if h.reg == nil {
		c.JSON(http.StatusOK, gin.H{"instruments": []registry.InstrumentInfo{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"instruments": h.reg.Instruments(),
		"bindings":    h.reg.Bindings(),
	})
}
