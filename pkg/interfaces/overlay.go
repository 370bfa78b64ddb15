// Package interfaces 定义 go-mailx 公共接口
//
// 本文件定义 Overlay 接口，对应 internal/dht/ 实现。
package interfaces

import (
	"context"

	"github.com/dep2p/go-mailx/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
// Overlay 接口
// ════════════════════════════════════════════════════════════════════════════

// Overlay 定义覆盖网络句柄
//
// 包装一个 DHT 引擎实例，向上层暴露存取与路由表内省。
// 生命周期：构造 → Listen → Bootstrap → 运行 → Close。
// 实现必须支持并发调用。
//
// 架构位置：Core Layer
// 实现位置：internal/dht/
//
// 使用示例:
//
//	d, _ := dht.New()
//	_ = d.Listen(5001)
//	_ = d.Bootstrap(ctx, []string{"127.0.0.1:5000"})
//	defer d.Close()
//
//	_ = d.Store(ctx, "messages", []byte("hello"))
//	value, found, _ := d.Retrieve(ctx, "messages")
type Overlay interface {
	PeerLister
	KeyLister

	// ID 返回本地节点 ID
	ID() types.NodeID

	// Self 返回本地节点信息（ID + 绑定地址）
	Self() types.PeerInfo

	// Listen 绑定本地 UDP 端口
	//
	// 端口不可用时返回 *dht.BindError。必须先于其他操作调用。
	Listen(port int) error

	// Bootstrap 将种子节点合并进路由表
	//
	// 部分种子不可达时降级继续；全部不可达时返回 *dht.BootstrapError。
	Bootstrap(ctx context.Context, seeds []string) error

	// Store 将值复制到离 key 最近的节点
	//
	// 等待每个副本的 STORE 完成或超时后返回；单个副本失败只记录日志，
	// 只有参数非法或未监听时返回错误。
	Store(ctx context.Context, key string, value []byte) error

	// FindNodeAt 向指定节点发起一次 FIND_NODE RPC
	FindNodeAt(ctx context.Context, peer types.PeerInfo, target types.NodeID) ([]types.PeerInfo, error)

	// Close 释放监听资源（幂等）
	Close() error
}

// PeerLister 路由表内省
type PeerLister interface {
	// ClosestKnownPeers 返回本地已知的离 target 最近的节点（只读路由表，不发网络请求）
	ClosestKnownPeers(target types.NodeID) ([]types.PeerInfo, error)

	// RoutingTableSnapshot 返回本地缓存的全部节点，按桶分组
	RoutingTableSnapshot() []types.Bucket
}

// KeyLister 远程键枚举与值解析
type KeyLister interface {
	// RoutingTableSnapshot 返回本地缓存的全部节点，按桶分组
	RoutingTableSnapshot() []types.Bucket

	// RemoteKeyList 询问指定节点持有哪些键
	//
	// 返回对端全部未过期的键；任一分页失败即整体失败。
	// 可能超时或失败，调用方不得因此中止。
	RemoteKeyList(ctx context.Context, peer types.PeerInfo) ([]string, error)

	// Retrieve 迭代查找 key 的值
	//
	// found=false 且 err=nil 表示"暂无值"，不是错误。
	Retrieve(ctx context.Context, key string) (value []byte, found bool, err error)
}
