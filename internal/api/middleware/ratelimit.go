package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig 命令限流配置。串口后面只有一台仪器，
// 超过事务吞吐的命令只会在排队里堆积，不如在入口直接拒绝。
type RateLimitConfig struct {
	Enabled    bool
	RatePerSec int
	Burst      int
}

// RateLimit 基于Token Bucket的命令限流中间件
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RatePerSec * 2
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "命令速率超限，请降低请求频率",
			})
			return
		}
		c.Next()
	}
}
