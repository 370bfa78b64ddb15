// Package config 提供 go-mailx 的统一配置
//
// 主 Config 结构体聚合各组件的子配置，支持：
//   - 默认值（NewConfig）
//   - 从 JSON 文件加载（LoadFile / FromJSON）
//   - 环境变量覆盖（ApplyEnv，MAILX_ 前缀）
//   - 校验（Validate）
//
// 配置优先级（从高到低）：命令行参数 > 环境变量 > 配置文件 > 默认值。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Node.ListenPort = 6001
//	if err := cfg.Validate(); err != nil { ... }
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// 默认值
const (
	DefaultBootstrapHost = "127.0.0.1"
	DefaultBootstrapPort = 5000
	DefaultListenPort    = 5001
	DefaultKey           = "messages"
)

// Config go-mailx 的完整配置
type Config struct {
	// Node 本地节点与引导配置
	Node NodeConfig `json:"node"`

	// DHT 覆盖网络引擎配置
	DHT DHTConfig `json:"dht"`

	// Session 会话编排配置
	Session SessionConfig `json:"session"`

	// Crawl 节点爬取配置
	Crawl CrawlConfig `json:"crawl"`

	// Harvest 键采集配置
	Harvest HarvestConfig `json:"harvest"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NodeConfig 本地节点配置
type NodeConfig struct {
	// ListenPort 本地 UDP 监听端口（0 = 随机端口）
	ListenPort int `json:"listen_port"`

	// BootstrapPeers 引导节点地址列表（host:port）
	BootstrapPeers []string `json:"bootstrap_peers,omitempty"`
}

// SessionConfig 会话编排配置
type SessionConfig struct {
	// Key 消息所在的公共键
	Key string `json:"key"`

	// SettleDelay 引导完成后的固定等待
	SettleDelay Duration `json:"settle_delay"`

	// PollInterval 变化轮询间隔
	PollInterval Duration `json:"poll_interval"`

	// Watch 是否启动后台任务（消息/节点轮询、爬取、键采集）
	Watch bool `json:"watch"`

	// CrawlInterval 后台爬取/采集的周期
	CrawlInterval Duration `json:"crawl_interval"`
}

// CrawlConfig 节点爬取配置
type CrawlConfig struct {
	// Concurrency 同时展开的节点数（1 = 严格顺序深度优先）
	Concurrency int `json:"concurrency"`

	// Remote 通过 FIND_NODE RPC 询问对端邻居（否则只读本地路由表）
	Remote bool `json:"remote"`
}

// HarvestConfig 键采集配置
type HarvestConfig struct {
	// Concurrency 同时进行的远程键枚举数
	Concurrency int `json:"concurrency"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// ListenAddr promhttp 监听地址，空表示不暴露
	ListenAddr string `json:"listen_addr,omitempty"`
}

// NewConfig 返回默认配置
func NewConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ListenPort:     DefaultListenPort,
			BootstrapPeers: []string{net.JoinHostPort(DefaultBootstrapHost, strconv.Itoa(DefaultBootstrapPort))},
		},
		DHT: DefaultDHTConfig(),
		Session: SessionConfig{
			Key:           DefaultKey,
			SettleDelay:   Duration(5 * time.Second),
			PollInterval:  Duration(time.Second),
			CrawlInterval: Duration(30 * time.Second),
		},
		Crawl: CrawlConfig{
			Concurrency: 4,
		},
		Harvest: HarvestConfig{
			Concurrency: 8,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Node.ListenPort < 0 || c.Node.ListenPort > 65535 {
		return fmt.Errorf("invalid listen port %d", c.Node.ListenPort)
	}
	for _, addr := range c.Node.BootstrapPeers {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid bootstrap peer %q: %w", addr, err)
		}
	}
	if c.Session.Key == "" {
		return errors.New("session key must not be empty")
	}
	if c.Session.SettleDelay < 0 {
		return errors.New("settle delay must not be negative")
	}
	if c.Session.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.Session.CrawlInterval <= 0 {
		return errors.New("crawl interval must be positive")
	}
	if c.Crawl.Concurrency <= 0 {
		return errors.New("crawl concurrency must be positive")
	}
	if c.Harvest.Concurrency <= 0 {
		return errors.New("harvest concurrency must be positive")
	}
	return c.DHT.Validate()
}

// FromJSON 从 JSON 数据解析配置（未出现的字段保留默认值）
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, err
	}
	return FromJSON(data)
}
