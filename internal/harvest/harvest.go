package harvest

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-mailx/internal/metrics"
	"github.com/dep2p/go-mailx/pkg/interfaces"
	"github.com/dep2p/go-mailx/pkg/lib/log"
	"github.com/dep2p/go-mailx/pkg/types"
)

var logger = log.Logger("harvest")

// DefaultConcurrency 默认并发查询数
const DefaultConcurrency = 8

// Result 对单个节点查询键列表的结果
//
// Err 非 nil 时 Keys 无意义；调用方决定是否丢弃。
type Result struct {
	Peer types.PeerInfo
	Keys []string
	Err  error
}

// Harvester 键收割器
//
// 只遍历本地路由表中已知的节点，不做全网爬取。
type Harvester struct {
	overlay     interfaces.KeyLister
	concurrency int
	metrics     *metrics.Metrics
}

// Option 收割器选项
type Option func(*Harvester)

// WithConcurrency 设置并发查询数（小于 1 按 1 处理）
func WithConcurrency(n int) Option {
	return func(h *Harvester) {
		if n < 1 {
			n = 1
		}
		h.concurrency = n
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Harvester) {
		h.metrics = m
	}
}

// New 创建收割器
func New(overlay interfaces.KeyLister, opts ...Option) *Harvester {
	h := &Harvester{
		overlay:     overlay,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// QueryAll 向路由表快照中的每个节点查询键列表
//
// 每个节点恰好产生一个 Result，顺序与快照展开顺序一致。
func (h *Harvester) QueryAll(ctx context.Context) []Result {
	peers := types.FlattenBuckets(h.overlay.RoutingTableSnapshot())
	results := make([]Result, len(peers))

	g := new(errgroup.Group)
	g.SetLimit(h.concurrency)
	for i, peer := range peers {
		g.Go(func() error {
			keys, err := h.overlay.RemoteKeyList(ctx, peer)
			if err != nil {
				err = &RemoteQueryError{Op: metrics.OpGetKeys, Peer: peer, Err: err}
			}
			results[i] = Result{Peer: peer, Keys: keys, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// HarvestAllKeys 合并所有已知节点持有的键
//
// 单个节点失败只记录日志和指标，不影响其他节点的贡献。
func (h *Harvester) HarvestAllKeys(ctx context.Context) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, r := range h.QueryAll(ctx) {
		if r.Err != nil {
			h.metrics.RemoteQueryFailed(metrics.OpGetKeys)
			logger.Debug("查询键列表失败，跳过该节点", "error", r.Err)
			continue
		}
		for _, k := range r.Keys {
			keys[k] = struct{}{}
		}
	}

	h.metrics.KeysHarvested(len(keys))
	return keys
}

// ResolveAll 逐个获取键对应的值
//
// 值不存在或获取失败的键被丢弃。
func (h *Harvester) ResolveAll(ctx context.Context, keys map[string]struct{}) map[string][]byte {
	var (
		mu  sync.Mutex
		out = make(map[string][]byte, len(keys))
	)

	g := new(errgroup.Group)
	g.SetLimit(h.concurrency)
	for key := range keys {
		g.Go(func() error {
			value, found, err := h.overlay.Retrieve(ctx, key)
			if err != nil {
				h.metrics.RemoteQueryFailed(metrics.OpRetrieve)
				logger.Debug("获取值失败，丢弃该键", "key", key, "error", err)
				return nil
			}
			if !found {
				return nil
			}
			mu.Lock()
			out[key] = value
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// HarvestAll 收割全部键后获取它们的值
func (h *Harvester) HarvestAll(ctx context.Context) map[string][]byte {
	return h.ResolveAll(ctx, h.HarvestAllKeys(ctx))
}

// SortedKeys 返回集合中的键（升序）
func SortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
