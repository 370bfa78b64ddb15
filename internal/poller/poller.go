package poller

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-mailx/internal/metrics"
	"github.com/dep2p/go-mailx/pkg/lib/log"
)

var logger = log.Logger("poller")

// DefaultInterval 默认轮询间隔
const DefaultInterval = time.Second

// State 轮询状态
type State int

const (
	// StateIdle 尚未采样
	StateIdle State = iota
	// StateSampling 正在采样
	StateSampling
	// StateUnchanged 采样不存在或与上次上报相同
	StateUnchanged
	// StateChanged 采样与上次上报不同，已上报
	StateChanged
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StateUnchanged:
		return "unchanged"
	case StateChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// SampleFunc 采样函数；present=false 表示当前没有值
type SampleFunc[T any] func(ctx context.Context) (value T, present bool, err error)

// options 轮询器选项
type options struct {
	interval time.Duration
	clock    clock.Clock
	name     string
	metrics  *metrics.Metrics
}

// Option 轮询器选项
type Option func(*options)

// WithInterval 设置轮询间隔（非正值忽略）
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithClock 设置时钟，测试中传入 clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithName 设置名称，用于日志和指标标签
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Poller 变化轮询器
//
// 按固定间隔采样，只在采样存在且与上次上报的值不同时上报。
// 上一次上报的值只属于本实例，不在轮询器之间共享；
// Step 与 Run 不应并发调用。
type Poller[T any] struct {
	sample SampleFunc[T]
	equal  func(a, b T) bool
	opts   options

	state   State
	last    T
	hasLast bool
}

// New 创建轮询器
func New[T any](sample SampleFunc[T], equal func(a, b T) bool, opts ...Option) *Poller[T] {
	o := options{
		interval: DefaultInterval,
		clock:    clock.New(),
		name:     "poller",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Poller[T]{
		sample: sample,
		equal:  equal,
		opts:   o,
	}
}

// NewComparable 用 == 比较的轮询器
func NewComparable[T comparable](sample SampleFunc[T], opts ...Option) *Poller[T] {
	return New(sample, func(a, b T) bool { return a == b }, opts...)
}

// State 返回当前状态
func (p *Poller[T]) State() State {
	return p.state
}

// Last 返回最近一次上报的值
func (p *Poller[T]) Last() (T, bool) {
	return p.last, p.hasLast
}

// Interval 返回轮询间隔
func (p *Poller[T]) Interval() time.Duration {
	return p.opts.interval
}

// Step 采样一次并与上次上报的值比较
//
// 返回的 changed=true 时 value 为需要上报的新值。
// 采样出错视为 Unchanged，只记调试日志。
func (p *Poller[T]) Step(ctx context.Context) (value T, changed bool) {
	p.state = StateSampling

	v, present, err := p.sample(ctx)
	if err != nil {
		logger.Debug("采样失败", "poller", p.opts.name, "error", err)
		p.state = StateUnchanged
		return value, false
	}
	if !present || (p.hasLast && p.equal(p.last, v)) {
		p.state = StateUnchanged
		return value, false
	}

	p.last = v
	p.hasLast = true
	p.state = StateChanged
	p.opts.metrics.PollerReported(p.opts.name)
	return v, true
}

// Run 循环采样直到 ctx 取消
//
// 每次变化调用一次 report。取消只在两次采样之间被观察到：
// 进行中的采样不会被打断，取消后不再上报。返回 ctx.Err()。
func (p *Poller[T]) Run(ctx context.Context, report func(T)) error {
	sampleCtx := context.WithoutCancel(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if v, changed := p.Step(sampleCtx); changed {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			report(v)
		}

		timer := p.opts.clock.Timer(p.opts.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
