package crawler

import (
	"sync"

	"github.com/dep2p/go-mailx/pkg/types"
)

// VisitedSet 已发现节点集合
//
// 节点按发现顺序存放在 arena 切片中，其余结构只引用下标。
// Insert 是原子的“不存在则插入”，并发爬取时同一节点只会被展开一次。
// 一个实例只属于一次爬取，不在爬取之间共享。
type VisitedSet struct {
	mu    sync.Mutex
	nodes []types.PeerInfo
	index map[types.NodeID]int
}

// NewVisitedSet 创建空集合
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{
		index: make(map[types.NodeID]int),
	}
}

// Insert 插入节点；已存在时返回原下标和 false
func (v *VisitedSet) Insert(peer types.PeerInfo) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if idx, ok := v.index[peer.ID]; ok {
		return idx, false
	}
	idx := len(v.nodes)
	v.nodes = append(v.nodes, peer)
	v.index[peer.ID] = idx
	return idx, true
}

// Contains 是否已发现 id
func (v *VisitedSet) Contains(id types.NodeID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.index[id]
	return ok
}

// Node 按下标取节点
func (v *VisitedSet) Node(idx int) types.PeerInfo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nodes[idx]
}

// Len 已发现节点数
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.nodes)
}

// IDs 返回全部节点 ID 的集合
func (v *VisitedSet) IDs() map[types.NodeID]struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[types.NodeID]struct{}, len(v.nodes))
	for _, n := range v.nodes {
		out[n.ID] = struct{}{}
	}
	return out
}

// Peers 按发现顺序返回全部节点
func (v *VisitedSet) Peers() []types.PeerInfo {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]types.PeerInfo, len(v.nodes))
	copy(out, v.nodes)
	return out
}
