package dht

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dep2p/go-mailx/pkg/types"
)

// ============================================================================
//                           迭代查询框架
// ============================================================================

// iterativeQuery 迭代查询实现
//
// 实现 Kademlia 迭代查询算法：
//  1. 从本地路由表获取 K 个最近节点作为候选
//  2. 每轮并发查询最近的 Alpha 个未查询节点
//  3. 响应中的更近节点合并进候选（按距离排序，保留 2K 个）
//  4. 最近的 K 个候选都已查询、或找到值时结束
type iterativeQuery struct {
	dht       *DHT
	target    types.NodeID
	queryType MessageType // FIND_NODE / FIND_VALUE
	key       string      // 用于 FIND_VALUE

	mu         sync.Mutex
	queried    map[types.NodeID]struct{} // 已查询节点
	candidates []types.PeerInfo          // 候选节点（按距离排序）
	responded  []types.PeerInfo          // 成功响应的节点
	value      []byte                    // FIND_VALUE 结果
	foundValue bool                      // 是否找到值
}

// newIterativeQuery 创建迭代查询
func newIterativeQuery(dht *DHT, target types.NodeID, queryType MessageType, key string) *iterativeQuery {
	return &iterativeQuery{
		dht:       dht,
		target:    target,
		queryType: queryType,
		key:       key,
		queried:   make(map[types.NodeID]struct{}),
	}
}

// Run 执行迭代查询
func (q *iterativeQuery) Run(ctx context.Context) error {
	startTime := time.Now()
	k := q.dht.config.BucketSize

	initial := q.dht.routingTable.NearestPeers(q.target, k)
	if len(initial) == 0 {
		return ErrNoNearbyPeers
	}
	q.candidates = initial

	rounds := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := q.nextBatch()
		if len(batch) == 0 {
			break
		}
		rounds++

		var wg sync.WaitGroup
		for _, peer := range batch {
			wg.Add(1)
			go func(peer types.PeerInfo) {
				defer wg.Done()
				q.queryPeer(ctx, peer)
			}(peer)
		}
		wg.Wait()

		q.mu.Lock()
		found := q.foundValue
		q.mu.Unlock()
		if found {
			break
		}
	}

	q.mu.Lock()
	logger.Debug("DHT 迭代查询完成",
		"queryType", q.queryType.String(),
		"duration", time.Since(startTime),
		"rounds", rounds,
		"nodesQueried", len(q.queried),
		"responded", len(q.responded),
		"foundValue", q.foundValue,
	)
	q.mu.Unlock()
	return nil
}

// nextBatch 从最近的 K 个候选中挑出至多 Alpha 个未查询节点
func (q *iterativeQuery) nextBatch() []types.PeerInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.foundValue {
		return nil
	}

	k := q.dht.config.BucketSize
	batch := make([]types.PeerInfo, 0, q.dht.config.Alpha)
	for i, peer := range q.candidates {
		if i >= k || len(batch) >= q.dht.config.Alpha {
			break
		}
		if _, done := q.queried[peer.ID]; done {
			continue
		}
		q.queried[peer.ID] = struct{}{}
		batch = append(batch, peer)
	}
	return batch
}

// queryPeer 查询单个节点，失败则跳过
func (q *iterativeQuery) queryPeer(ctx context.Context, peer types.PeerInfo) {
	var msg *Message
	switch q.queryType {
	case MessageTypeFindNode:
		msg = NewFindNodeRequest(q.dht.ID(), q.target)
	case MessageTypeFindValue:
		msg = NewFindValueRequest(q.dht.ID(), q.key)
	default:
		return
	}

	resp, err := q.dht.request(ctx, peer, msg)
	if err != nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.responded = append(q.responded, peer)

	if q.queryType == MessageTypeFindValue && resp.Found {
		q.value = resp.Value
		q.foundValue = true
		return
	}

	for _, p := range resp.CloserPeers {
		if p.ID == q.dht.ID() || p.ID.IsEmpty() {
			continue
		}
		q.addCandidate(p)
	}
}

// addCandidate 添加候选节点（保持按距离排序，去重）
func (q *iterativeQuery) addCandidate(peer types.PeerInfo) {
	for _, c := range q.candidates {
		if c.ID == peer.ID {
			return
		}
	}

	q.candidates = append(q.candidates, peer)
	sort.Slice(q.candidates, func(i, j int) bool {
		return CompareDistance(q.candidates[i].ID, q.candidates[j].ID, q.target) < 0
	})

	if limit := q.dht.config.BucketSize * 2; len(q.candidates) > limit {
		q.candidates = q.candidates[:limit]
	}
}

// Closest 返回成功响应的最近 count 个节点
func (q *iterativeQuery) Closest(count int) []types.PeerInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]types.PeerInfo, len(q.responded))
	copy(out, q.responded)
	sort.Slice(out, func(i, j int) bool {
		return CompareDistance(out[i].ID, out[j].ID, q.target) < 0
	})
	if len(out) > count {
		out = out[:count]
	}
	return out
}

// Value 获取查询到的值
func (q *iterativeQuery) Value() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.value, q.foundValue
}
