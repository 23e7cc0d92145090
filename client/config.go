package client

import "time"

// Config 客户端配置
type Config struct {
	// Endpoint 节点端点地址
	Endpoint string

	// Protocol 协议类型
	Protocol Protocol

	// Timeout 超时时间（秒）
	Timeout int

	// TLS 配置
	TLS *TLSConfig

	// Retry 重试配置（nil 表示不重试）
	Retry *RetryConfig

	// RateLimit 每秒请求数上限（0 表示不限速）
	RateLimit float64
	// RateBurst 突发请求数
	RateBurst int

	// 调试模式
	Debug bool

	// 日志器（可选）
	Logger Logger
}

// Protocol 协议类型
type Protocol string

const (
	ProtocolHTTP      Protocol = "http"
	ProtocolWebSocket Protocol = "websocket"
)

// TLSConfig TLS 配置
type TLSConfig struct {
	CertFile string
	KeyFile  string
	CAFile   string
	Insecure bool // 跳过 TLS 验证（仅用于开发）
}

// DefaultConfig 返回默认配置（本地 hardhat 节点）
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://127.0.0.1:8545",
		Protocol: ProtocolHTTP,
		Timeout:  30,
		Retry:    DefaultRetryConfig(),
		Debug:    false,
	}
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) logger() Logger {
	return OrNop(c.Logger)
}
