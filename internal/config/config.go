package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// SerialConfig 串口链路配置
type SerialConfig struct {
	Device          string        `mapstructure:"device"`
	InitialBaud     int           `mapstructure:"initialBaud"`
	ResponseTimeout time.Duration `mapstructure:"responseTimeout"`
}

// LaserConfig 激光器出厂边界，构造后不可变
type LaserConfig struct {
	MinWavelengthNm float64 `mapstructure:"minWavelengthNm"`
	MaxWavelengthNm float64 `mapstructure:"maxWavelengthNm"`
	MinPowerDbm     float64 `mapstructure:"minPowerDbm"`
	MaxPowerDbm     float64 `mapstructure:"maxPowerDbm"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// AuthConfig API 认证配置
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"apiKeys"`
}

// RateLimitConfig 命令接口限流配置（单台仪器的命令速率上限）
type RateLimitConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	RatePerSec int  `mapstructure:"ratePerSec"`
	Burst      int  `mapstructure:"burst"`
}

// RegistryConfig 仪器目录文件配置
type RegistryConfig struct {
	CatalogPath string `mapstructure:"catalogPath"`
}

// Config 顶层配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Serial    SerialConfig    `mapstructure:"serial"`
	Laser     LaserConfig     `mapstructure:"laser"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Registry  RegistryConfig  `mapstructure:"registry"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则回退到 configs/example.yaml；环境变量前缀 LASER_。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 LASER_，并将点号替换为下划线
	v.SetEnvPrefix("LASER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate 拒绝明显不可用的边界配置
func validate(cfg *Config) error {
	if cfg.Laser.MinWavelengthNm >= cfg.Laser.MaxWavelengthNm {
		return fmt.Errorf("config: laser wavelength bounds invalid: [%f, %f]",
			cfg.Laser.MinWavelengthNm, cfg.Laser.MaxWavelengthNm)
	}
	if cfg.Laser.MinPowerDbm >= cfg.Laser.MaxPowerDbm {
		return fmt.Errorf("config: laser power bounds invalid: [%f, %f]",
			cfg.Laser.MinPowerDbm, cfg.Laser.MaxPowerDbm)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "laser-server")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("serial.device", "/dev/ttyUSB0")
	v.SetDefault("serial.initialBaud", 9600)
	v.SetDefault("serial.responseTimeout", "500ms")

	// PPCL55x 出厂边界
	v.SetDefault("laser.minWavelengthNm", 1515.0)
	v.SetDefault("laser.maxWavelengthNm", 1570.0)
	v.SetDefault("laser.minPowerDbm", 6.0)
	v.SetDefault("laser.maxPowerDbm", 13.5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/laser-server.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("auth.enabled", false)

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.ratePerSec", 20)
	v.SetDefault("rateLimit.burst", 40)

	v.SetDefault("registry.catalogPath", "configs/registry.yaml")
}
