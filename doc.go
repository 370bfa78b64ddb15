// Package mailx 在 Kademlia 覆盖网络上交换加密消息
//
// # 快速开始
//
//	s, err := mailx.New(
//	    mailx.WithListenPort(5001),
//	    mailx.WithBootstrapPeers("127.0.0.1:5000"),
//	)
//	if err != nil {
//	    return err
//	}
//	// 监听 → 引导 → 等待 → 加密自检 → 发布 → 读回
//	if err := s.Run(ctx); err != nil {
//	    var bootErr *dht.BootstrapError
//	    if errors.As(err, &bootErr) {
//	        // 没有任何种子节点可达
//	    }
//	    return err
//	}
//
// # 单次操作
//
//	if err := s.Open(ctx); err != nil { // Start + Join
//	    return err
//	}
//	defer s.Close()
//
//	value, found, err := s.Get(ctx)
//	err = s.Set(ctx, []byte("hello"))
//	res, err := s.Crawl(ctx)   // 可达节点
//	pairs, err := s.Dump(ctx)  // 已知节点持有的全部键值对
//
// # 组件
//
// 会话通过 go.uber.org/fx 组装：
//
//   - internal/dht: UDP 上的 Kademlia 引擎（Overlay 实现）
//   - internal/crawler: 节点爬取
//   - internal/harvest: 键收割
//   - internal/poller: 变化轮询
//   - internal/exchange: secp256k1 ECIES
//   - internal/metrics: Prometheus 指标
//
// # 错误
//
// 只有监听失败（*dht.BindError）和引导完全失败（*dht.BootstrapError）
// 对会话是致命的；爬取和收割中的逐节点失败只记录不传播。
// 值不存在不是错误，以 found=false 表示。
package mailx
