package config

import (
	"errors"
	"time"
)

// DHTConfig 覆盖网络引擎配置
type DHTConfig struct {
	// BucketSize K-桶大小
	BucketSize int `json:"bucket_size"`

	// Alpha 并发查询参数
	Alpha int `json:"alpha"`

	// ReplicationFactor 值复制因子
	ReplicationFactor int `json:"replication_factor"`

	// RPCTimeout 单次 RPC 超时
	RPCTimeout Duration `json:"rpc_timeout"`

	// ValueTTL 本地存储值的存活时间
	ValueTTL Duration `json:"value_ttl"`

	// MaxValues 本地最多存储的值数量
	MaxValues int `json:"max_values"`

	// InboundRate 每秒处理的入站请求上限（0 = 不限制）
	InboundRate float64 `json:"inbound_rate"`
}

// DefaultDHTConfig 返回默认 DHT 配置
func DefaultDHTConfig() DHTConfig {
	return DHTConfig{
		BucketSize:        20,
		Alpha:             3,
		ReplicationFactor: 20,
		RPCTimeout:        Duration(5 * time.Second),
		ValueTTL:          Duration(24 * time.Hour),
		MaxValues:         4096,
		InboundRate:       500,
	}
}

// Validate 验证 DHT 配置
func (c DHTConfig) Validate() error {
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
