package config

import (
	"os"
	"strconv"
	"strings"
)

// 环境变量（均使用 MAILX_ 前缀）
const (
	EnvPrefix         = "MAILX_"
	EnvListenPort     = "LISTEN_PORT"
	EnvBootstrapPeers = "BOOTSTRAP_PEERS"
	EnvKey            = "KEY"
	EnvSettleDelay    = "SETTLE_DELAY"
	EnvWatch          = "WATCH"
	EnvMetricsAddr    = "METRICS_ADDR"
)

// ApplyEnv 应用环境变量覆盖配置
//
// 无法解析的值会被忽略，保留原配置。支持的环境变量：
//   - MAILX_LISTEN_PORT: 本地端口
//   - MAILX_BOOTSTRAP_PEERS: 引导节点（逗号分隔 host:port）
//   - MAILX_KEY: 消息键
//   - MAILX_SETTLE_DELAY: 引导后等待（如 "2s"）
//   - MAILX_WATCH: 启用后台任务
//   - MAILX_METRICS_ADDR: promhttp 监听地址
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvPrefix + EnvListenPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Node.ListenPort = port
		}
	}

	if v := os.Getenv(EnvPrefix + EnvBootstrapPeers); v != "" {
		c.Node.BootstrapPeers = splitAndTrim(v, ",")
	}

	if v := os.Getenv(EnvPrefix + EnvKey); v != "" {
		c.Session.Key = v
	}

	if v := os.Getenv(EnvPrefix + EnvSettleDelay); v != "" {
		if d, err := ParseDuration(v); err == nil {
			c.Session.SettleDelay = d
		}
	}

	if v := os.Getenv(EnvPrefix + EnvWatch); v != "" {
		c.Session.Watch = parseBool(v)
	}

	if v := os.Getenv(EnvPrefix + EnvMetricsAddr); v != "" {
		c.Metrics.ListenAddr = v
	}
}

// parseBool 解析布尔值字符串
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// splitAndTrim 分割字符串并去除空白
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
