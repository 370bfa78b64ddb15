package mailx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-mailx/config"
	"github.com/dep2p/go-mailx/internal/crawler"
	"github.com/dep2p/go-mailx/internal/dht"
	"github.com/dep2p/go-mailx/internal/exchange"
	"github.com/dep2p/go-mailx/internal/harvest"
	"github.com/dep2p/go-mailx/internal/metrics"
	"github.com/dep2p/go-mailx/pkg/interfaces"
	"github.com/dep2p/go-mailx/pkg/lib/log"
	"github.com/dep2p/go-mailx/pkg/types"
)

var logger = log.Logger("mailx")

// SelfTestMessage 会话自检并发布的明文
const SelfTestMessage = "this is a crypto test"

// stopTimeout 关闭 Fx 应用的超时
const stopTimeout = 10 * time.Second

// ════════════════════════════════════════════════════════════════════════════
//                              会话状态
// ════════════════════════════════════════════════════════════════════════════

// SessionState 会话状态
type SessionState int

const (
	// StateIdle 已创建，未监听
	StateIdle SessionState = iota

	// StateListening 已绑定本地端口
	StateListening

	// StateJoined 已完成引导
	StateJoined

	// StateClosed 已关闭（不可重新启动）
	StateClosed
)

// String 返回状态的字符串表示
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              会话
// ════════════════════════════════════════════════════════════════════════════

// Session 会话编排器
//
// 持有一个显式构造的覆盖网络句柄，生命周期为
// New → Start(监听) → Join(引导) → 操作 → Close。
// 同一进程内可以有多个互相独立的会话。
type Session struct {
	opts *options
	cfg  *config.Config
	app  *fx.App
	out  io.Writer

	overlay interfaces.Overlay
	metrics *metrics.Metrics

	mu      sync.Mutex
	state   SessionState
	started bool
}

// New 创建会话
//
// 只构造组件，不绑定端口。
//
// 示例：
//
//	s, err := mailx.New(
//	    mailx.WithListenPort(5001),
//	    mailx.WithBootstrapPeers("127.0.0.1:5000"),
//	)
func New(opts ...Option) (*Session, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	s := &Session{
		opts: o,
		cfg:  o.config,
		out:  o.output,
	}

	app, err := buildFxApp(o, s)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	s.app = app
	return s, nil
}

// Overlay 返回覆盖网络句柄
func (s *Session) Overlay() interfaces.Overlay {
	return s.overlay
}

// Metrics 返回指标集合
func (s *Session) Metrics() *metrics.Metrics {
	return s.metrics
}

// Config 返回会话配置
func (s *Session) Config() *config.Config {
	return s.cfg
}

// State 返回当前状态
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动 Fx 应用并绑定本地端口
//
// 端口不可用时返回 *dht.BindError。
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrSessionClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}

	if err := s.app.Start(ctx); err != nil {
		return fmt.Errorf("start fx app: %w", err)
	}
	s.started = true

	port := s.cfg.Node.ListenPort
	if err := s.overlay.Listen(port); err != nil {
		logger.Error("监听失败", "port", port, "error", err)
		return err
	}

	s.state = StateListening
	logger.Info("会话已监听", "self", s.overlay.Self().String())
	return nil
}

// Join 引导到配置的种子节点
//
// 未配置种子或没有任何种子可达时返回 *dht.BootstrapError。
func (s *Session) Join(ctx context.Context) error {
	if err := s.requireListening(); err != nil {
		return err
	}

	seeds := s.cfg.Node.BootstrapPeers
	if len(seeds) == 0 {
		logger.Error("未配置引导节点，无法加入网络")
		return &dht.BootstrapError{Err: dht.ErrNoSeeds}
	}

	fmt.Fprintln(s.out, "Bootstrapping, please wait...")
	if err := s.overlay.Bootstrap(ctx, seeds); err != nil {
		logger.Error("引导失败", "seeds", seeds, "error", err)
		return err
	}

	s.mu.Lock()
	if s.state == StateListening {
		s.state = StateJoined
	}
	s.mu.Unlock()
	return nil
}

// Open 依次执行 Start 和 Join，失败时关闭会话
func (s *Session) Open(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		_ = s.Close()
		return err
	}
	if err := s.Join(ctx); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

// Close 释放全部资源（幂等）
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed

	var errs []error
	if s.started {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := s.app.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop fx app: %w", err))
		}
	}
	if s.overlay != nil {
		if err := s.overlay.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Info("会话已关闭")
	return errors.Join(errs...)
}

// requireListening 检查会话已监听且未关闭
func (s *Session) requireListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateIdle:
		return ErrNotStarted
	default:
		return nil
	}
}

// settle 引导后的固定等待，可被 ctx 取消
func (s *Session) settle(ctx context.Context) error {
	d := s.cfg.Session.SettleDelay.Duration()
	if d <= 0 {
		return nil
	}

	timer := s.opts.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              操作
// ════════════════════════════════════════════════════════════════════════════

// Publish 生成密钥对并做加解密自检，通过后把 message 存到会话键下
//
// 自检失败（DecryptionError）时不发布。
func (s *Session) Publish(ctx context.Context, message []byte) error {
	if err := s.requireListening(); err != nil {
		return err
	}

	kp, err := exchange.GenerateKeyPair()
	if err != nil {
		return err
	}
	if _, err := exchange.SelfTest(kp, message); err != nil {
		logger.Error("加密自检失败，放弃发布", "error", err)
		return fmt.Errorf("crypto self-test: %w", err)
	}
	logger.Debug("加密自检通过", "publicKey", kp.PublicKeyHex())

	return s.Set(ctx, message)
}

// Get 获取会话键的当前值；found=false 表示暂无值
func (s *Session) Get(ctx context.Context) ([]byte, bool, error) {
	if err := s.requireListening(); err != nil {
		return nil, false, err
	}
	return s.overlay.Retrieve(ctx, s.cfg.Session.Key)
}

// Set 把 value 存到会话键下
func (s *Session) Set(ctx context.Context, value []byte) error {
	if err := s.requireListening(); err != nil {
		return err
	}
	if err := s.overlay.Store(ctx, s.cfg.Session.Key, value); err != nil {
		return fmt.Errorf("store %q: %w", s.cfg.Session.Key, err)
	}
	logger.Info("已发布", "key", s.cfg.Session.Key, "size", len(value))
	return nil
}

// Crawl 从本节点出发爬取可达节点
//
// Crawl.Remote 为 true 时逐个向节点发 FIND_NODE，否则只读本地路由表。
func (s *Session) Crawl(ctx context.Context) (*crawler.Result, error) {
	if err := s.requireListening(); err != nil {
		return nil, err
	}

	var expander crawler.Expander = crawler.LocalExpander{Peers: s.overlay}
	if s.cfg.Crawl.Remote {
		expander = crawler.RemoteExpander{Overlay: s.overlay}
	}
	c, err := crawler.New(expander,
		crawler.WithConcurrency(s.cfg.Crawl.Concurrency),
		crawler.WithMetrics(s.metrics),
	)
	if err != nil {
		return nil, err
	}
	return c.Crawl(ctx, s.overlay.Self())
}

// Dump 收割已知节点持有的全部键值对
func (s *Session) Dump(ctx context.Context) (map[string][]byte, error) {
	if err := s.requireListening(); err != nil {
		return nil, err
	}
	return s.harvester().HarvestAll(ctx), nil
}

func (s *Session) harvester() *harvest.Harvester {
	return harvest.New(s.overlay,
		harvest.WithConcurrency(s.cfg.Harvest.Concurrency),
		harvest.WithMetrics(s.metrics),
	)
}

// ════════════════════════════════════════════════════════════════════════════
//                              编排流程
// ════════════════════════════════════════════════════════════════════════════

// Run 执行完整的会话流程
//
// 监听 → 引导（无种子可达则失败）→ 固定等待 → 密钥生成与加密自检 →
// 发布 → 读回并打印 → 可选后台任务（直到 ctx 取消）→ 关闭。
func (s *Session) Run(ctx context.Context) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.settle(ctx); err != nil {
		return err
	}

	if err := s.Publish(ctx, []byte(SelfTestMessage)); err != nil {
		return err
	}

	value, found, err := s.Get(ctx)
	if err != nil {
		return err
	}
	s.printResult(value, found)

	if s.cfg.Session.Watch || s.cfg.Metrics.ListenAddr != "" {
		return s.background(ctx)
	}
	return nil
}

// Serve 作为常驻节点运行直到 ctx 取消
//
// 配置了引导节点时先引导，否则作为种子节点运行；ctx 取消视为正常退出。
func (s *Session) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		_ = s.Close()
		return err
	}
	defer func() { _ = s.Close() }()

	if len(s.cfg.Node.BootstrapPeers) == 0 {
		logger.Info("未配置引导节点，作为种子运行")
	} else if err := s.Join(ctx); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Node %s listening on %s\n", s.overlay.ID(), s.overlay.Self().Addr)
	return s.background(ctx)
}

// printResult 打印获取结果
func (s *Session) printResult(value []byte, found bool) {
	if !found {
		fmt.Fprintln(s.out, "Get result: <none>")
		return
	}
	fmt.Fprintf(s.out, "Get result: %s\n", value)
}

// printPeers 打印节点列表
func (s *Session) printPeers(peers []types.PeerInfo) {
	fmt.Fprintf(s.out, "\nPeers (%d):\n", len(peers))
	for _, p := range peers {
		fmt.Fprintf(s.out, "  %s\n", p.String())
	}
}
