// Package poller 实现通用的变化轮询状态机
//
// 状态转换：Idle → Sampling → (Unchanged | Changed) → Sampling → …，
// 只有外部取消才结束。同一实现同时用于新消息和新节点的观察：
//
//	msgs := poller.NewMessagePoller(d, "messages")
//	go msgs.Run(ctx, func(v []byte) { fmt.Printf("new message: %s\n", v) })
//
//	peers := poller.NewPeerPoller(d, poller.WithInterval(5*time.Second))
//	go peers.Run(ctx, func(ps []types.PeerInfo) { fmt.Println(len(ps), "peers") })
package poller
