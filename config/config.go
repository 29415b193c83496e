package config

import "time"

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr"`                       // 监听地址，如 :8080
	ReadTimeout     time.Duration `json:"readTimeout" yaml:"readTimeout"`         // 读超时
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"writeTimeout"`       // 写超时
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"` // 优雅关闭等待时间
	Mode            string        `json:"mode" yaml:"mode"`                       // gin 模式: debug/release/test
}

// DefaultServerConfig 返回本地开发的默认配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Mode:            "debug",
	}
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level            string   `json:"level" yaml:"level"`                       // debug/info/warn/error
	Encoding         string   `json:"encoding" yaml:"encoding"`                 // json/console
	EnableColor      bool     `json:"enableColor" yaml:"enableColor"`           // console 模式下彩色等级
	Development      bool     `json:"development" yaml:"development"`           // 开发模式（Error 打堆栈）
	OutputPaths      []string `json:"outputPaths" yaml:"outputPaths"`           // 普通日志输出，支持 stdout/文件
	ErrorOutputPaths []string `json:"errorOutputPaths" yaml:"errorOutputPaths"` // 错误日志输出
}

// DefaultLoggerConfig 返回本地开发的默认配置
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:       "debug",
		Encoding:    "console",
		EnableColor: true,
		Development: true,
	}
}

// JWTConfig JWT 签发配置。
// 说明：密钥在进程启动时加载一次，运行期不可变（显式传入各层，不做全局可变配置）。
type JWTConfig struct {
	Secret     string        `json:"secret" yaml:"secret"`         // 签名密钥
	Issuer     string        `json:"issuer" yaml:"issuer"`         // 签发者
	Expire     time.Duration `json:"expire" yaml:"expire"`         // 有效期
	RefreshTTL time.Duration `json:"refreshTtl" yaml:"refreshTtl"` // 刷新窗口
}

// DefaultJWTConfig 返回本地开发的默认配置
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:     "cipherchat-dev-secret",
		Issuer:     "cipherchat",
		Expire:     24 * time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// RateLimitConfig IP 限流配置
type RateLimitConfig struct {
	Rate  float64 `json:"rate" yaml:"rate"`   // 每秒产生的令牌数
	Burst int     `json:"burst" yaml:"burst"` // 令牌桶容量
}

// DefaultRateLimitConfig 返回本地开发的默认配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:  20,
		Burst: 40,
	}
}
