// Package dht 实现 go-mailx 使用的 Kademlia 覆盖网络引擎
//
// # 组成
//
//   - xor.go: XOR 距离与桶索引
//   - routing.go: K 桶路由表（带替换缓存，连续失败的节点被淘汰）
//   - values.go: 带 TTL 与容量上限的本地值存储
//   - protocol.go: JSON 消息（PING / FIND_NODE / FIND_VALUE / STORE / GET_KEYS）
//   - network.go: UDP 传输，按 RequestID 关联请求与响应
//   - handler.go: 入站请求处理，带全局速率限制
//   - query.go: Alpha 并发的迭代查询
//   - dht.go: 对外的 Overlay 句柄
//
// # 使用示例
//
//	d, err := dht.New(dht.WithRPCTimeout(2 * time.Second))
//	if err != nil { ... }
//	if err := d.Listen(5001); err != nil { ... }   // *BindError
//	defer d.Close()
//
//	if err := d.Bootstrap(ctx, []string{"127.0.0.1:5000"}); err != nil {
//	    // *BootstrapError：没有任何种子可达
//	}
//
//	_ = d.Store(ctx, "messages", []byte("hello"))
//	value, found, err := d.Retrieve(ctx, "messages")
//
// 路由表内省（ClosestKnownPeers / RoutingTableSnapshot）只读本地状态；
// RemoteKeyList / FindNodeAt 是针对单个节点的 RPC，失败由调用方决定如何处理。
package dht
