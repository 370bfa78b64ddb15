package mailx

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/dep2p/go-mailx/config"
	"github.com/dep2p/go-mailx/internal/dht"
	"github.com/dep2p/go-mailx/pkg/types"
	"github.com/dep2p/go-mailx/tests/mocks"
)

// syncBuffer 并发安全的输出缓冲
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// deadAddr 返回一个当前无人监听的回环 UDP 地址
func deadAddr(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	addr := conn.LocalAddr().String()
	require.NoError(t, conn.Close())
	return addr
}

// testConfig 测试用配置：随机端口、无等待、短 RPC 超时
func testConfig(seeds ...string) *config.Config {
	cfg := config.NewConfig()
	cfg.Node.ListenPort = 0
	cfg.Node.BootstrapPeers = seeds
	cfg.Session.SettleDelay = 0
	cfg.DHT.RPCTimeout = config.Duration(300 * time.Millisecond)
	return cfg
}

// ============================================================================
// 编排流程测试（Mock Overlay）
// ============================================================================

func TestSession_RunSequence(t *testing.T) {
	overlay := mocks.NewMockOverlay()

	var (
		mu    sync.Mutex
		calls []string
	)
	record := func(name string) {
		mu.Lock()
		calls = append(calls, name)
		mu.Unlock()
	}
	overlay.ListenFunc = func(port int) error { record("listen"); return nil }
	overlay.BootstrapFunc = func(context.Context, []string) error { record("bootstrap"); return nil }
	overlay.StoreFunc = func(_ context.Context, key string, value []byte) error {
		record("store")
		overlay.SetValue(key, value)
		return nil
	}

	out := &syncBuffer{}
	s, err := New(WithConfig(testConfig("127.0.0.1:5000")), WithOverlay(overlay), WithOutput(out))
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{"listen", "bootstrap", "store"}, calls)
	require.Len(t, overlay.StoreCalls, 1)
	assert.Equal(t, config.DefaultKey, overlay.StoreCalls[0].Key)
	assert.Equal(t, []byte(SelfTestMessage), overlay.StoreCalls[0].Value)
	assert.Contains(t, out.String(), "Get result: "+SelfTestMessage)
	assert.True(t, overlay.Closed)
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_RunBindFailure(t *testing.T) {
	overlay := mocks.NewMockOverlay()
	overlay.ListenFunc = func(port int) error {
		return &dht.BindError{Port: port, Err: errors.New("address already in use")}
	}

	s, err := New(WithConfig(testConfig("127.0.0.1:5000")), WithOverlay(overlay), WithOutput(nil))
	require.NoError(t, err)

	err = s.Run(context.Background())
	var bindErr *dht.BindError
	require.True(t, errors.As(err, &bindErr))
	assert.Empty(t, overlay.StoreCalls)
	assert.True(t, overlay.Closed)
}

func TestSession_RunBootstrapFailureDoesNotPublish(t *testing.T) {
	overlay := mocks.NewMockOverlay()
	overlay.BootstrapFunc = func(_ context.Context, seeds []string) error {
		return &dht.BootstrapError{Seeds: seeds, Err: dht.ErrTimeout}
	}

	s, err := New(WithConfig(testConfig("127.0.0.1:9999")), WithOverlay(overlay), WithOutput(nil))
	require.NoError(t, err)

	err = s.Run(context.Background())
	var bootErr *dht.BootstrapError
	require.True(t, errors.As(err, &bootErr))
	assert.Equal(t, []string{"127.0.0.1:9999"}, bootErr.Seeds)
	assert.Empty(t, overlay.StoreCalls)
	assert.True(t, overlay.Closed)
}

func TestSession_SettleCanceled(t *testing.T) {
	overlay := mocks.NewMockOverlay()
	ctx, cancel := context.WithCancel(context.Background())
	overlay.BootstrapFunc = func(context.Context, []string) error {
		cancel()
		return nil
	}

	cfg := testConfig("127.0.0.1:5000")
	cfg.Session.SettleDelay = config.Duration(time.Hour)
	s, err := New(WithConfig(cfg), WithOverlay(overlay), WithOutput(nil))
	require.NoError(t, err)

	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, overlay.StoreCalls)
}

func TestSession_OperationsRequireStart(t *testing.T) {
	s, err := New(WithConfig(testConfig()), WithOverlay(mocks.NewMockOverlay()))
	require.NoError(t, err)

	ctx := context.Background()
	_, _, err = s.Get(ctx)
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.ErrorIs(t, s.Set(ctx, []byte("v")), ErrNotStarted)
	assert.ErrorIs(t, s.Join(ctx), ErrNotStarted)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Start(ctx), ErrSessionClosed)
}

func TestSession_StartTwice(t *testing.T) {
	s, err := New(WithConfig(testConfig()), WithOverlay(mocks.NewMockOverlay()))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestSession_RunWithoutSeedsFails(t *testing.T) {
	overlay := mocks.NewMockOverlay()
	overlay.BootstrapFunc = func(context.Context, []string) error {
		t.Fatal("没有种子时不应引导")
		return nil
	}

	s, err := New(WithConfig(testConfig()), WithOverlay(overlay), WithOutput(nil))
	require.NoError(t, err)

	err = s.Run(context.Background())
	var bootErr *dht.BootstrapError
	require.ErrorAs(t, err, &bootErr)
	assert.ErrorIs(t, err, dht.ErrNoSeeds)
	assert.Empty(t, overlay.StoreCalls)
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_ServeWithoutSeeds(t *testing.T) {
	overlay := mocks.NewMockOverlay()
	overlay.BootstrapFunc = func(context.Context, []string) error {
		t.Fatal("种子节点不应引导")
		return nil
	}
	out := &syncBuffer{}

	s, err := New(WithConfig(testConfig()), WithOverlay(overlay), WithOutput(out))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "listening on")
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve 未在取消后返回")
	}
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_GetSetDump(t *testing.T) {
	overlay := mocks.NewMockOverlay()
	peer := types.PeerInfo{ID: types.RandomNodeID(), Addr: "127.0.0.1:6000"}
	overlay.AddPeer(peer, "messages", "gone")

	s, err := New(WithConfig(testConfig("127.0.0.1:5000")), WithOverlay(overlay))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))

	_, found, err := s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, []byte("hello")))
	value, found, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("hello"), value)

	pairs, err := s.Dump(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"messages": []byte("hello")}, pairs)
}

func TestSession_CrawlLocalAndRemote(t *testing.T) {
	overlay := mocks.NewMockOverlay()
	a := types.PeerInfo{ID: types.RandomNodeID(), Addr: "a:1"}
	b := types.PeerInfo{ID: types.RandomNodeID(), Addr: "b:1"}
	overlay.AddPeer(a)
	// 只有远程爬取能发现 b
	overlay.Neighbors[a.ID] = []types.PeerInfo{b}

	cfg := testConfig()
	s, err := New(WithConfig(cfg), WithOverlay(overlay))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	res, err := s.Crawl(context.Background())
	require.NoError(t, err)
	local := res.IDs()
	assert.Contains(t, local, a.ID)
	assert.Contains(t, local, overlay.ID())
	assert.NotContains(t, local, b.ID)

	cfg.Crawl.Remote = true
	res, err = s.Crawl(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.IDs(), b.ID)
	assert.Equal(t, 3, res.Visited.Len())
}

func TestSession_WatchReportsNewMessages(t *testing.T) {
	overlay := mocks.NewMockOverlay()
	mock := clock.NewMock()
	out := &syncBuffer{}

	s, err := New(WithConfig(testConfig()), WithOverlay(overlay), WithOutput(out), WithClock(mock))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	overlay.SetValue(config.DefaultKey, []byte("first"))
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		return bytes.Contains([]byte(out.String()), []byte("first"))
	}, 5*time.Second, time.Millisecond)

	overlay.AddPeer(types.PeerInfo{ID: types.RandomNodeID(), Addr: "p:1"})
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		return bytes.Contains([]byte(out.String()), []byte("p:1"))
	}, 5*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Watch 未在取消后退出")
	}
}

// ============================================================================
// Fx 组装测试
// ============================================================================

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Key = ""

	_, err := New(WithConfig(cfg))
	assert.Error(t, err)

	_, err = New(WithConfig(nil))
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNew_ProvidesDHT(t *testing.T) {
	var provided *dht.DHT
	s, err := New(WithConfig(testConfig()), WithFxOptions(fx.Populate(&provided)))
	require.NoError(t, err)
	defer s.Close()

	require.NotNil(t, provided)
	assert.Same(t, provided, s.Overlay())
	assert.NotNil(t, s.Metrics())
}

// ============================================================================
// 端到端测试（真实 DHT）
// ============================================================================

func TestSession_EndToEndUnreachableSeed(t *testing.T) {
	s, err := New(WithConfig(testConfig(deadAddr(t))), WithOutput(nil))
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.Error(t, err)

	var bootErr *dht.BootstrapError
	require.True(t, errors.As(err, &bootErr))

	d, ok := s.Overlay().(*dht.DHT)
	require.True(t, ok)
	assert.Empty(t, d.LocalKeys(), "引导失败时不应发布")
}

func TestSession_EndToEndPublish(t *testing.T) {
	seed, err := dht.New(dht.WithListenHost("127.0.0.1"), dht.WithRPCTimeout(300*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, seed.Listen(0))
	defer seed.Close()

	out := &syncBuffer{}
	s, err := New(WithConfig(testConfig(seed.Addr())), WithOutput(out))
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, out.String(), "Get result: "+SelfTestMessage)
	value, found, err := seed.Retrieve(context.Background(), config.DefaultKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte(SelfTestMessage), value)
}

func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)
}
