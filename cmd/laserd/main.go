package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/laser-server/internal/api"
	"github.com/taoyao-code/laser-server/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/laser-server/internal/config"
	"github.com/taoyao-code/laser-server/internal/driver"
	"github.com/taoyao-code/laser-server/internal/health"
	"github.com/taoyao-code/laser-server/internal/httpserver"
	"github.com/taoyao-code/laser-server/internal/logging"
	"github.com/taoyao-code/laser-server/internal/metrics"
	"github.com/taoyao-code/laser-server/internal/registry"
	"github.com/taoyao-code/laser-server/internal/seriallink"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径（留空时按默认路径查找）")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) 指标注册与处理器
	reg := metrics.NewRegistry()
	appm := metrics.NewAppMetrics(reg)
	metricsHandler := metrics.Handler(reg)

	// 4) 仪器目录：登记本守护进程托管的激光器并记录绑定
	catalog, err := registry.Load(cfg.Registry.CatalogPath)
	if err != nil {
		log.Fatal("load instrument catalog", zap.Error(err))
	}
	instrumentName := cfg.App.Name + ".ppcl55x"
	catalog.Register(registry.InstrumentInfo{
		Name:   instrumentName,
		Driver: "itla/ppcl55x",
		Params: map[string]string{
			"device": cfg.Serial.Device,
			"baud":   "auto",
		},
		Lockable: true,
	})
	host, port := bindAddr(cfg.HTTP.Addr)
	catalog.Bind(instrumentName, host, port)
	if err := catalog.Save(); err != nil {
		log.Warn("save instrument catalog", zap.Error(err))
	}

	// 5) 串口链路与驱动
	link := seriallink.New(seriallink.Config{
		Device:          cfg.Serial.Device,
		InitialBaud:     cfg.Serial.InitialBaud,
		ResponseTimeout: cfg.Serial.ResponseTimeout,
	}, seriallink.OpenSerial, log)

	laser := driver.New(driver.Bounds{
		MinWavelengthNm: cfg.Laser.MinWavelengthNm,
		MaxWavelengthNm: cfg.Laser.MaxWavelengthNm,
		MinPowerDbm:     cfg.Laser.MinPowerDbm,
		MaxPowerDbm:     cfg.Laser.MaxPowerDbm,
	}, link, log, appm)

	// 6) 健康检查聚合
	agg := health.NewAggregator(health.NewLinkChecker(link))

	// 7) HTTP 服务与路由
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, func() bool {
		return agg.Ready(context.Background())
	})
	health.RegisterHTTPRoutes(httpSrv.Engine(), agg)
	handler := api.NewLaserHandler(laser, catalog, log)
	api.RegisterLaserRoutes(httpSrv.Engine(), handler,
		middleware.AuthConfig{Enabled: cfg.Auth.Enabled, APIKeys: cfg.Auth.APIKeys},
		middleware.RateLimitConfig{
			Enabled:    cfg.RateLimit.Enabled,
			RatePerSec: cfg.RateLimit.RatePerSec,
			Burst:      cfg.RateLimit.Burst,
		}, log)

	// 8) 建立仪器链路（失败不致命：可通过 /api/laser/connect 重试）
	if err := laser.Connect(); err != nil {
		log.Warn("initial laser connect failed",
			zap.String("device", cfg.Serial.Device), zap.Error(err))
	} else {
		log.Info("laser link established",
			zap.String("device", cfg.Serial.Device),
			zap.Int("baud", laser.LinkState().BaudRate))
	}

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()

	// 信号处理，优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	if err := laser.Disconnect(); err != nil {
		log.Warn("disconnect laser", zap.Error(err))
	}
	log.Info("shutdown complete")
}

// bindAddr 将监听地址拆为绑定记录用的主机与端口
func bindAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "localhost", 0
	}
	if host == "" {
		host, _ = os.Hostname()
	}
	port, _ := net.LookupPort("tcp", portStr)
	return host, port
}
