package mailx

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-mailx/config"
	"github.com/dep2p/go-mailx/internal/metrics"
	"github.com/dep2p/go-mailx/pkg/interfaces"
)

// Option 会话配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// config 统一配置
	config *config.Config

	// output 用户可见输出（获取结果、新消息、新节点）
	output io.Writer

	// clock 等待与轮询使用的时钟
	clock clock.Clock

	// overlay 外部提供的覆盖网络（为空时由 dht 模块创建）
	overlay interfaces.Overlay

	// metrics 外部提供的指标（为空时由 metrics 模块创建）
	metrics *metrics.Metrics

	// userFxOptions 用户自定义 Fx 选项
	userFxOptions []fx.Option
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{
		config: config.NewConfig(),
		output: os.Stdout,
		clock:  clock.New(),
	}
}

// WithConfig 使用完整配置（覆盖之前的配置类选项）
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return ErrNilConfig
		}
		o.config = cfg
		return nil
	}
}

// WithListenPort 设置本地 UDP 端口（0 = 随机端口）
func WithListenPort(port int) Option {
	return func(o *options) error {
		o.config.Node.ListenPort = port
		return nil
	}
}

// WithBootstrapPeers 设置引导节点（host:port），不传表示不引导
func WithBootstrapPeers(peers ...string) Option {
	return func(o *options) error {
		o.config.Node.BootstrapPeers = peers
		return nil
	}
}

// WithKey 设置消息键
func WithKey(key string) Option {
	return func(o *options) error {
		if key == "" {
			return errors.New("mailx: empty key")
		}
		o.config.Session.Key = key
		return nil
	}
}

// WithSettleDelay 设置引导后的等待时间
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) error {
		o.config.Session.SettleDelay = config.Duration(d)
		return nil
	}
}

// WithPollInterval 设置轮询间隔
func WithPollInterval(d time.Duration) Option {
	return func(o *options) error {
		o.config.Session.PollInterval = config.Duration(d)
		return nil
	}
}

// WithWatch 启用后台任务（消息/节点轮询、爬取、键收割）
func WithWatch(enable bool) Option {
	return func(o *options) error {
		o.config.Session.Watch = enable
		return nil
	}
}

// WithMetricsAddr 设置指标 HTTP 服务地址，空表示不暴露
func WithMetricsAddr(addr string) Option {
	return func(o *options) error {
		o.config.Metrics.ListenAddr = addr
		return nil
	}
}

// WithOutput 设置用户可见输出
func WithOutput(w io.Writer) Option {
	return func(o *options) error {
		if w == nil {
			w = io.Discard
		}
		o.output = w
		return nil
	}
}

// WithClock 设置时钟，测试中传入 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithOverlay 使用外部构造的覆盖网络，不再创建 DHT
func WithOverlay(ov interfaces.Overlay) Option {
	return func(o *options) error {
		if ov == nil {
			return ErrNilOverlay
		}
		o.overlay = ov
		return nil
	}
}

// WithMetrics 使用外部的指标集合
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
