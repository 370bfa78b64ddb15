package mailx

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-mailx/internal/harvest"
	"github.com/dep2p/go-mailx/internal/metrics"
	"github.com/dep2p/go-mailx/internal/poller"
	"github.com/dep2p/go-mailx/pkg/types"
)

// background 运行后台任务直到 ctx 取消
//
// 任务互相独立：消息轮询、节点轮询、周期爬取与键收割（Watch 开启时），
// 以及指标服务（配置了地址时）。ctx 取消视为正常结束。
func (s *Session) background(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if addr := s.cfg.Metrics.ListenAddr; addr != "" && s.metrics != nil {
		srv := metrics.NewServer(addr, s.metrics)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if s.cfg.Session.Watch {
		s.startWatchers(gctx, g)
	}

	err := g.Wait()
	if err == nil || errors.Is(err, context.Canceled) {
		// 没有任何后台任务时等待取消
		<-ctx.Done()
		return nil
	}
	return err
}

// Watch 只运行轮询、爬取和收割任务，直到 ctx 取消
func (s *Session) Watch(ctx context.Context) error {
	if err := s.requireListening(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	s.startWatchers(gctx, g)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// startWatchers 在 g 中启动各个后台任务
//
// 每个任务拥有自己的轮询状态或已访问集合，互不共享。
func (s *Session) startWatchers(ctx context.Context, g *errgroup.Group) {
	interval := s.cfg.Session.PollInterval.Duration()
	key := s.cfg.Session.Key

	messages := poller.NewMessagePoller(s.overlay, key,
		poller.WithInterval(interval),
		poller.WithClock(s.opts.clock),
		poller.WithMetrics(s.metrics),
	)
	g.Go(func() error {
		return messages.Run(ctx, func(v []byte) {
			fmt.Fprintf(s.out, "\nNew message:\n%s\n", v)
		})
	})

	peers := poller.NewPeerPoller(s.overlay,
		poller.WithInterval(interval),
		poller.WithClock(s.opts.clock),
		poller.WithMetrics(s.metrics),
	)
	g.Go(func() error {
		return peers.Run(ctx, func(ps []types.PeerInfo) {
			s.printPeers(ps)
		})
	})

	g.Go(func() error {
		return s.survey(ctx)
	})
}

// survey 周期性爬取网络并收割键值对
func (s *Session) survey(ctx context.Context) error {
	ticker := s.opts.clock.Ticker(s.cfg.Session.CrawlInterval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		res, err := s.Crawl(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "\nCrawl: %d nodes reachable\n", res.Visited.Len())

		pairs := s.harvester().HarvestAll(ctx)
		for _, k := range harvest.SortedKeys(pairs) {
			fmt.Fprintf(s.out, "  %s = %s\n", k, pairs[k])
		}
	}
}
