package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/laser-server/internal/api/middleware"
)

// RegisterLaserRoutes 注册激光器控制路由。
// 命令类接口（会触线）走认证+限流；状态查询只走认证。
func RegisterLaserRoutes(
	r *gin.Engine,
	h *LaserHandler,
	authCfg middleware.AuthConfig,
	rlCfg middleware.RateLimitConfig,
	logger *zap.Logger,
) {
	if r == nil || h == nil {
		return
	}

	api := r.Group("/api")
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	// 状态查询（不触线）
	api.GET("/laser/status", h.Status)
	api.GET("/instruments", h.ListInstruments)

	// 命令接口（触线，限流）
	cmd := api.Group("/laser")
	cmd.Use(middleware.RateLimit(rlCfg))
	cmd.POST("/connect", h.Connect)
	cmd.POST("/disconnect", h.Disconnect)
	cmd.POST("/on", h.On)
	cmd.POST("/off", h.Off)
	cmd.PUT("/wavelength", h.SetWavelength)
	cmd.PUT("/power", h.SetPower)
	cmd.PUT("/channel", h.SetChannel)
	cmd.PUT("/mode", h.SetMode)
	cmd.PUT("/ftf", h.FineTune)
	cmd.GET("/identity", h.Identify)

	logger.Info("laser routes registered", zap.Int("endpoints", 12))
}
