package dht

import (
	"sort"
	"sync"
	"time"

	"github.com/dep2p/go-mailx/pkg/types"
)

// MaxFailures 连续 RPC 失败达到该次数后节点被移出路由表
const MaxFailures = 2

// ============================================================================
//                              路由表节点
// ============================================================================

// RoutingNode 路由表节点
type RoutingNode struct {
	// ID 节点 ID
	ID types.NodeID

	// Addr 节点 UDP 地址
	Addr string

	// LastSeen 最后一次见到的时间
	LastSeen time.Time

	// FailCount 连续失败次数
	FailCount int
}

// PeerInfo 转换为只读快照
func (n *RoutingNode) PeerInfo() types.PeerInfo {
	return types.PeerInfo{ID: n.ID, Addr: n.Addr}
}

// ============================================================================
//                              K 桶
// ============================================================================

// KBucket K 桶
type KBucket struct {
	// capacity 桶容量（K）
	capacity int

	// 节点列表（最近活跃的在前）
	nodes []*RoutingNode

	// 替换缓存（当桶满时存储候选节点）
	replacementCache []*RoutingNode

	mu sync.RWMutex
}

// NewKBucket 创建新的 K 桶
func NewKBucket(capacity int) *KBucket {
	return &KBucket{
		capacity: capacity,
		nodes:    make([]*RoutingNode, 0, capacity),
	}
}

// Size 返回桶中节点数量
func (b *KBucket) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.nodes)
}

// IsFull 检查桶是否已满
func (b *KBucket) IsFull() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.nodes) >= b.capacity
}

// Nodes 返回所有节点
func (b *KBucket) Nodes() []*RoutingNode {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]*RoutingNode, len(b.nodes))
	copy(result, b.nodes)
	return result
}

// Add 添加节点；已存在时移动到前端并清零失败计数
func (b *KBucket) Add(node *RoutingNode) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, existing := range b.nodes {
		if existing.ID == node.ID {
			b.nodes = append(b.nodes[:i], b.nodes[i+1:]...)
			b.nodes = append([]*RoutingNode{node}, b.nodes...)
			return true
		}
	}

	if len(b.nodes) < b.capacity {
		b.nodes = append([]*RoutingNode{node}, b.nodes...)
		return true
	}

	b.addToReplacementCache(node)
	return false
}

// addToReplacementCache 添加到替换缓存
func (b *KBucket) addToReplacementCache(node *RoutingNode) {
	for i, existing := range b.replacementCache {
		if existing.ID == node.ID {
			b.replacementCache = append(b.replacementCache[:i], b.replacementCache[i+1:]...)
			break
		}
	}

	b.replacementCache = append([]*RoutingNode{node}, b.replacementCache...)
	if len(b.replacementCache) > b.capacity {
		b.replacementCache = b.replacementCache[:b.capacity]
	}
}

// Remove 移除节点，并从替换缓存中提升一个候选
func (b *KBucket) Remove(id types.NodeID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, node := range b.nodes {
		if node.ID == id {
			b.nodes = append(b.nodes[:i], b.nodes[i+1:]...)

			if len(b.replacementCache) > 0 {
				replacement := b.replacementCache[0]
				b.replacementCache = b.replacementCache[1:]
				b.nodes = append(b.nodes, replacement)
			}
			return true
		}
	}

	for i, node := range b.replacementCache {
		if node.ID == id {
			b.replacementCache = append(b.replacementCache[:i], b.replacementCache[i+1:]...)
			return true
		}
	}

	return false
}

// Get 获取节点
func (b *KBucket) Get(id types.NodeID) *RoutingNode {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, node := range b.nodes {
		if node.ID == id {
			return node
		}
	}
	return nil
}

// recordFailure 记录一次失败，返回累计失败次数（节点不存在返回 0）
func (b *KBucket) recordFailure(id types.NodeID) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, node := range b.nodes {
		if node.ID == id {
			node.FailCount++
			return node.FailCount
		}
	}
	return 0
}

// ============================================================================
//                              路由表
// ============================================================================

// RoutingTable 路由表
type RoutingTable struct {
	// 本地节点 ID
	localID types.NodeID

	// K 桶数组（KeySize 个桶）
	buckets []*KBucket
}

// NewRoutingTable 创建新的路由表
func NewRoutingTable(localID types.NodeID, bucketSize int) *RoutingTable {
	rt := &RoutingTable{
		localID: localID,
		buckets: make([]*KBucket, KeySize),
	}
	for i := range rt.buckets {
		rt.buckets[i] = NewKBucket(bucketSize)
	}
	return rt
}

// Add 添加节点（不添加自己和空 ID）
func (rt *RoutingTable) Add(peer types.PeerInfo) bool {
	if peer.ID == rt.localID || peer.ID.IsEmpty() || peer.Addr == "" {
		return false
	}

	idx := BucketIndex(rt.localID, peer.ID)
	return rt.buckets[idx].Add(&RoutingNode{
		ID:       peer.ID,
		Addr:     peer.Addr,
		LastSeen: time.Now(),
	})
}

// Remove 移除节点
func (rt *RoutingTable) Remove(id types.NodeID) bool {
	if id == rt.localID {
		return false
	}
	return rt.buckets[BucketIndex(rt.localID, id)].Remove(id)
}

// Get 获取节点
func (rt *RoutingTable) Get(id types.NodeID) *RoutingNode {
	if id == rt.localID {
		return nil
	}
	return rt.buckets[BucketIndex(rt.localID, id)].Get(id)
}

// RecordFailure 记录一次 RPC 失败，连续失败达到 MaxFailures 时移除节点
func (rt *RoutingTable) RecordFailure(id types.NodeID) bool {
	if id == rt.localID {
		return false
	}
	bucket := rt.buckets[BucketIndex(rt.localID, id)]
	if bucket.recordFailure(id) >= MaxFailures {
		return bucket.Remove(id)
	}
	return false
}

// Size 返回路由表中的节点总数
func (rt *RoutingTable) Size() int {
	total := 0
	for _, bucket := range rt.buckets {
		total += bucket.Size()
	}
	return total
}

// NearestPeers 查找最近的 count 个节点，按 XOR 距离升序
func (rt *RoutingTable) NearestPeers(target types.NodeID, count int) []types.PeerInfo {
	all := rt.AllPeers()

	sort.Slice(all, func(i, j int) bool {
		return CompareDistance(all[i].ID, all[j].ID, target) < 0
	})

	if len(all) > count {
		all = all[:count]
	}
	return all
}

// AllPeers 返回所有节点
func (rt *RoutingTable) AllPeers() []types.PeerInfo {
	var all []types.PeerInfo
	for _, bucket := range rt.buckets {
		for _, node := range bucket.Nodes() {
			all = append(all, node.PeerInfo())
		}
	}
	return all
}

// Snapshot 返回按桶分组的节点快照（仅非空桶，按桶索引升序）
func (rt *RoutingTable) Snapshot() []types.Bucket {
	var out []types.Bucket
	for _, bucket := range rt.buckets {
		nodes := bucket.Nodes()
		if len(nodes) == 0 {
			continue
		}
		b := make(types.Bucket, 0, len(nodes))
		for _, node := range nodes {
			b = append(b, node.PeerInfo())
		}
		out = append(out, b)
	}
	return out
}
