package dht

import (
	"errors"
	"time"

	"github.com/dep2p/go-mailx/config"
)

// Config DHT 配置
type Config struct {
	// BucketSize K-桶大小
	BucketSize int

	// Alpha 并发查询参数
	Alpha int

	// ReplicationFactor 值复制因子
	ReplicationFactor int

	// RPCTimeout 单次 RPC 超时
	RPCTimeout time.Duration

	// ValueTTL 本地值存活时间
	ValueTTL time.Duration

	// MaxValues 本地最多存储的值数量
	MaxValues int

	// InboundRate 每秒入站请求上限（0 = 不限制）
	InboundRate float64

	// ListenHost 监听地址（默认 0.0.0.0）
	ListenHost string
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建 DHT 配置
func ConfigFromUnified(cfg *config.Config) *Config {
	dc := config.DefaultDHTConfig()
	if cfg != nil {
		dc = cfg.DHT
	}
	return &Config{
		BucketSize:        dc.BucketSize,
		Alpha:             dc.Alpha,
		ReplicationFactor: dc.ReplicationFactor,
		RPCTimeout:        dc.RPCTimeout.Duration(),
		ValueTTL:          dc.ValueTTL.Duration(),
		MaxValues:         dc.MaxValues,
		InboundRate:       dc.InboundRate,
		ListenHost:        "0.0.0.0",
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.BucketSize <= 0 {
		return errors.New("bucket size must be positive")
	}
	if c.Alpha <= 0 {
		return errors.New("alpha must be positive")
	}
	if c.ReplicationFactor <= 0 {
		return errors.New("replication factor must be positive")
	}
	if c.RPCTimeout <= 0 {
		return errors.New("rpc timeout must be positive")
	}
	if c.ValueTTL <= 0 {
		return errors.New("value TTL must be positive")
	}
	if c.MaxValues <= 0 {
		return errors.New("max values must be positive")
	}
	if c.InboundRate < 0 {
		return errors.New("inbound rate must not be negative")
	}
	return nil
}

// ConfigOption 配置选项函数
type ConfigOption func(*Config)

// WithBucketSize 设置K-桶大小
func WithBucketSize(size int) ConfigOption {
	return func(c *Config) {
		c.BucketSize = size
	}
}

// WithAlpha 设置并发查询参数
func WithAlpha(alpha int) ConfigOption {
	return func(c *Config) {
		c.Alpha = alpha
	}
}

// WithReplicationFactor 设置复制因子
func WithReplicationFactor(n int) ConfigOption {
	return func(c *Config) {
		c.ReplicationFactor = n
	}
}

// WithRPCTimeout 设置 RPC 超时
func WithRPCTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RPCTimeout = d
	}
}

// WithValueTTL 设置值存活时间
func WithValueTTL(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ValueTTL = d
	}
}

// WithInboundRate 设置入站请求速率上限
func WithInboundRate(rps float64) ConfigOption {
	return func(c *Config) {
		c.InboundRate = rps
	}
}

// WithListenHost 设置监听地址
func WithListenHost(host string) ConfigOption {
	return func(c *Config) {
		c.ListenHost = host
	}
}

// WithConfig 整体替换配置（用于 fx 注入统一配置）
func WithConfig(cfg *Config) ConfigOption {
	return func(c *Config) {
		if cfg != nil {
			*c = *cfg
		}
	}
}
