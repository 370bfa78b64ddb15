package crawler

import (
	"context"

	"github.com/dep2p/go-mailx/pkg/interfaces"
	"github.com/dep2p/go-mailx/pkg/types"
)

// Expander 返回一个节点的邻居
type Expander interface {
	Expand(ctx context.Context, node types.PeerInfo) ([]types.PeerInfo, error)
}

// ExpanderFunc 函数适配器
type ExpanderFunc func(ctx context.Context, node types.PeerInfo) ([]types.PeerInfo, error)

// Expand 实现 Expander
func (f ExpanderFunc) Expand(ctx context.Context, node types.PeerInfo) ([]types.PeerInfo, error) {
	return f(ctx, node)
}

// LocalExpander 以本地路由表为图：邻居 = ClosestKnownPeers(node.ID)
//
// 不发网络请求，得到的是本地路由表可达的闭包。
type LocalExpander struct {
	Peers interfaces.PeerLister
}

// Expand 实现 Expander
func (e LocalExpander) Expand(_ context.Context, node types.PeerInfo) ([]types.PeerInfo, error) {
	return e.Peers.ClosestKnownPeers(node.ID)
}

// RemoteExpander 向每个节点发 FIND_NODE(node.ID)，爬取整个网络
//
// 起点是本节点自身时改为读本地路由表。
type RemoteExpander struct {
	Overlay interfaces.Overlay
}

// Expand 实现 Expander
func (e RemoteExpander) Expand(ctx context.Context, node types.PeerInfo) ([]types.PeerInfo, error) {
	if node.ID == e.Overlay.ID() || node.Addr == "" {
		return e.Overlay.ClosestKnownPeers(node.ID)
	}
	return e.Overlay.FindNodeAt(ctx, node, node.ID)
}
