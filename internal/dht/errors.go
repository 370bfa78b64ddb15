package dht

import (
	"errors"
	"fmt"
	"strings"
)

// 预定义错误
var (
	// ErrNotStarted DHT 未监听
	ErrNotStarted = errors.New("dht: not listening")

	// ErrAlreadyStarted DHT 已监听
	ErrAlreadyStarted = errors.New("dht: already listening")

	// ErrDHTClosed DHT 已关闭
	ErrDHTClosed = errors.New("dht: DHT is closed")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("dht: invalid config")

	// ErrNoSeeds 未提供引导节点
	ErrNoSeeds = errors.New("dht: no bootstrap seeds given")

	// ErrNoNearbyPeers 没有附近节点
	ErrNoNearbyPeers = errors.New("dht: no nearby peers")

	// ErrTimeout 超时
	ErrTimeout = errors.New("dht: request timeout")

	// ErrInvalidResponse 无效响应
	ErrInvalidResponse = errors.New("dht: invalid response")

	// ErrInvalidKey 无效键
	ErrInvalidKey = errors.New("dht: invalid key")

	// ErrValueTooLarge 值超过单个数据报可承载的大小
	ErrValueTooLarge = errors.New("dht: value too large")

	// ErrKeyTooLarge 键超过 MaxKeySize
	ErrKeyTooLarge = errors.New("dht: key too large")

	// ErrRemote 对端返回错误
	ErrRemote = errors.New("dht: remote error")
)

// BindError 监听端口失败
type BindError struct {
	Port int
	Err  error
}

// Error 实现 error 接口
func (e *BindError) Error() string {
	return fmt.Sprintf("dht: bind port %d: %v", e.Port, e.Err)
}

// Unwrap 实现错误解包
func (e *BindError) Unwrap() error {
	return e.Err
}

// BootstrapError 没有任何引导节点可达
type BootstrapError struct {
	Seeds []string
	Err   error
}

// Error 实现 error 接口
func (e *BootstrapError) Error() string {
	return fmt.Sprintf("dht: bootstrap failed, none of [%s] reachable: %v", strings.Join(e.Seeds, ", "), e.Err)
}

// Unwrap 实现错误解包
func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// DHTError DHT 错误类型
type DHTError struct {
	Op      string // 操作名称
	Err     error  // 底层错误
	Message string // 错误消息
}

// Error 实现 error 接口
func (e *DHTError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("dht %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("dht %s: %v", e.Op, e.Err)
}

// Unwrap 实现错误解包
func (e *DHTError) Unwrap() error {
	return e.Err
}

// NewDHTError 创建 DHT 错误
func NewDHTError(op string, err error, message string) *DHTError {
	return &DHTError{
		Op:      op,
		Err:     err,
		Message: message,
	}
}
