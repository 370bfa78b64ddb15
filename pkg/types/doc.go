// Package types 定义 go-mailx 的基础类型
//
// 这是整个系统的最底层包，不依赖任何其他 mailx 内部包。
// 所有类型都是纯值类型，用于在 DHT、爬取器、采集器之间传递数据。
//
// # 核心类型
//
//   - NodeID: 覆盖网络中的节点标识（256 位）
//   - PeerInfo: 节点标识 + UDP 地址
//   - Bucket: 路由表中一个 K 桶的快照
package types
