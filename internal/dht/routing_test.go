package dht

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mailx/pkg/types"
)

func testPeer(i int) types.PeerInfo {
	return types.PeerInfo{ID: types.RandomNodeID(), Addr: fmt.Sprintf("127.0.0.1:%d", 10000+i)}
}

// ============================================================================
// KBucket 基础功能测试
// ============================================================================

func TestKBucket_AddAndMoveToFront(t *testing.T) {
	bucket := NewKBucket(3)

	a := &RoutingNode{ID: types.RandomNodeID(), Addr: "a"}
	b := &RoutingNode{ID: types.RandomNodeID(), Addr: "b"}
	require.True(t, bucket.Add(a))
	require.True(t, bucket.Add(b))

	nodes := bucket.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, b.ID, nodes[0].ID)

	// 重新添加已存在节点：移动到前端
	require.True(t, bucket.Add(&RoutingNode{ID: a.ID, Addr: "a"}))
	assert.Equal(t, a.ID, bucket.Nodes()[0].ID)
	assert.Equal(t, 2, bucket.Size())
}

func TestKBucket_FullGoesToReplacementCache(t *testing.T) {
	bucket := NewKBucket(2)

	first := &RoutingNode{ID: types.RandomNodeID()}
	require.True(t, bucket.Add(first))
	require.True(t, bucket.Add(&RoutingNode{ID: types.RandomNodeID()}))
	assert.True(t, bucket.IsFull())

	spare := &RoutingNode{ID: types.RandomNodeID()}
	assert.False(t, bucket.Add(spare))
	assert.Nil(t, bucket.Get(spare.ID))

	// 移除后替换缓存中的候选被提升
	require.True(t, bucket.Remove(first.ID))
	assert.NotNil(t, bucket.Get(spare.ID))
	assert.Equal(t, 2, bucket.Size())
}

// ============================================================================
// RoutingTable 测试
// ============================================================================

func TestRoutingTable_IgnoresSelfAndEmpty(t *testing.T) {
	local := types.RandomNodeID()
	rt := NewRoutingTable(local, 20)

	assert.False(t, rt.Add(types.PeerInfo{ID: local, Addr: "x:1"}))
	assert.False(t, rt.Add(types.PeerInfo{Addr: "x:1"}))
	assert.False(t, rt.Add(types.PeerInfo{ID: types.RandomNodeID()}))
	assert.Equal(t, 0, rt.Size())
}

func TestRoutingTable_NearestPeersSorted(t *testing.T) {
	rt := NewRoutingTable(types.RandomNodeID(), 20)
	for i := 0; i < 30; i++ {
		rt.Add(testPeer(i))
	}

	target := types.RandomNodeID()
	nearest := rt.NearestPeers(target, 10)
	require.Len(t, nearest, 10)
	for i := 1; i < len(nearest); i++ {
		assert.LessOrEqual(t, CompareDistance(nearest[i-1].ID, nearest[i].ID, target), 0)
	}
}

func TestRoutingTable_Snapshot(t *testing.T) {
	rt := NewRoutingTable(types.RandomNodeID(), 20)
	added := map[types.NodeID]bool{}
	for i := 0; i < 10; i++ {
		p := testPeer(i)
		if rt.Add(p) {
			added[p.ID] = true
		}
	}

	snap := rt.Snapshot()
	total := 0
	for _, bucket := range snap {
		assert.NotEmpty(t, bucket, "快照只包含非空桶")
		for _, p := range bucket {
			assert.True(t, added[p.ID])
			total++
		}
	}
	assert.Equal(t, len(added), total)
	assert.Len(t, types.FlattenBuckets(snap), rt.Size())
}

func TestRoutingTable_RecordFailureEvicts(t *testing.T) {
	rt := NewRoutingTable(types.RandomNodeID(), 20)
	p := testPeer(1)
	require.True(t, rt.Add(p))

	assert.False(t, rt.RecordFailure(p.ID))
	assert.NotNil(t, rt.Get(p.ID))

	assert.True(t, rt.RecordFailure(p.ID))
	assert.Nil(t, rt.Get(p.ID))

	// 未知节点不产生影响
	assert.False(t, rt.RecordFailure(types.RandomNodeID()))
}

func TestRoutingTable_ReAddResetsFailures(t *testing.T) {
	rt := NewRoutingTable(types.RandomNodeID(), 20)
	p := testPeer(1)
	rt.Add(p)

	rt.RecordFailure(p.ID)
	rt.Add(p)
	assert.False(t, rt.RecordFailure(p.ID))
	assert.NotNil(t, rt.Get(p.ID))
}
