package crawler

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-mailx/internal/metrics"
	"github.com/dep2p/go-mailx/pkg/lib/log"
	"github.com/dep2p/go-mailx/pkg/types"
)

var logger = log.Logger("crawler")

// DefaultConcurrency 默认并发展开数
const DefaultConcurrency = 4

// ErrNilExpander 未提供 Expander
var ErrNilExpander = errors.New("crawler: nil expander")

// Crawler 节点爬取器
//
// 从起点出发，反复展开已发现节点的邻居，直到没有新节点。
// 展开失败或返回空的节点视为死胡同，不重试也不中断爬取。
type Crawler struct {
	expander    Expander
	concurrency int
	metrics     *metrics.Metrics
}

// Option 爬取器选项
type Option func(*Crawler)

// WithConcurrency 设置同时进行的展开数（小于 1 按 1 处理）
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) {
		c.metrics = m
	}
}

// New 创建爬取器
func New(expander Expander, opts ...Option) (*Crawler, error) {
	if expander == nil {
		return nil, ErrNilExpander
	}
	c := &Crawler{
		expander:    expander,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Result 一次爬取的结果
type Result struct {
	// Visited 已发现节点（含起点）
	Visited *VisitedSet

	// Expanded 实际展开次数
	Expanded int

	// DeadEnds 展开失败或无邻居的节点数
	DeadEnds int
}

// IDs 返回已发现节点 ID 集合
func (r *Result) IDs() map[types.NodeID]struct{} {
	return r.Visited.IDs()
}

// expansion 一次展开的结果
type expansion struct {
	idx   int
	peers []types.PeerInfo
	err   error
}

// Crawl 从 start 开始爬取
//
// 待展开节点放在显式栈中（后进先出，深度优先），每个节点在首次发现时
// 插入 VisitedSet，因此最多被展开一次。ctx 取消后不再调度新的展开，
// 返回已发现的部分结果和 ctx.Err()。
func (c *Crawler) Crawl(ctx context.Context, start types.PeerInfo) (*Result, error) {
	visited := NewVisitedSet()
	startIdx, _ := visited.Insert(start)

	res := &Result{Visited: visited}
	stack := []int{startIdx}
	results := make(chan expansion, c.concurrency)
	inflight := 0

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)

	for len(stack) > 0 || inflight > 0 {
		for len(stack) > 0 && inflight < c.concurrency && ctx.Err() == nil {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			node := visited.Node(idx)
			inflight++
			g.Go(func() error {
				// 展开内部不因爬取取消而中断，进行中的调用自行完成或失败
				peers, err := c.expander.Expand(context.WithoutCancel(ctx), node)
				results <- expansion{idx: idx, peers: peers, err: err}
				return nil
			})
		}
		if inflight == 0 {
			break
		}

		exp := <-results
		inflight--
		res.Expanded++

		if exp.err != nil || len(exp.peers) == 0 {
			res.DeadEnds++
			if exp.err != nil {
				c.metrics.RemoteQueryFailed(metrics.OpExpand)
			}
			logger.Debug("死胡同节点", "node", visited.Node(exp.idx).String(), "error", exp.err)
			continue
		}

		// 逆序入栈，使第一个邻居最先被展开
		for i := len(exp.peers) - 1; i >= 0; i-- {
			peer := exp.peers[i]
			if peer.ID.IsEmpty() {
				continue
			}
			if idx, added := visited.Insert(peer); added {
				stack = append(stack, idx)
			}
		}
	}
	_ = g.Wait()

	c.metrics.NodesCrawled(visited.Len())
	logger.Debug("爬取结束", "visited", visited.Len(), "expanded", res.Expanded, "deadEnds", res.DeadEnds)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}
