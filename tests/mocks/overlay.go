package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/dep2p/go-mailx/pkg/interfaces"
	"github.com/dep2p/go-mailx/pkg/types"
)

var _ interfaces.Overlay = (*MockOverlay)(nil)

// MockOverlay 模拟 Overlay 接口实现
type MockOverlay struct {
	mu sync.Mutex

	// 基本属性
	IDValue   types.NodeID
	AddrValue string
	Listening bool
	Closed    bool

	// 内存状态
	Values     map[string][]byte
	Buckets    []types.Bucket
	RemoteKeys map[types.NodeID][]string
	Neighbors  map[types.NodeID][]types.PeerInfo

	// 可覆盖的方法
	ListenFunc            func(port int) error
	BootstrapFunc         func(ctx context.Context, seeds []string) error
	StoreFunc             func(ctx context.Context, key string, value []byte) error
	RetrieveFunc          func(ctx context.Context, key string) ([]byte, bool, error)
	ClosestKnownPeersFunc func(target types.NodeID) ([]types.PeerInfo, error)
	RemoteKeysFunc        func(ctx context.Context, peer types.PeerInfo) ([]string, error)
	FindNodeAtFunc        func(ctx context.Context, peer types.PeerInfo, target types.NodeID) ([]types.PeerInfo, error)
	CloseFunc             func() error

	// 调用记录
	StoreCalls      []StoreCall
	RetrieveCalls   int
	RemoteKeysCalls int
}

// StoreCall 记录 Store 调用
type StoreCall struct {
	Key   string
	Value []byte
}

// NewMockOverlay 创建带有默认值的 MockOverlay
func NewMockOverlay() *MockOverlay {
	return &MockOverlay{
		IDValue:    types.RandomNodeID(),
		AddrValue:  "127.0.0.1:5001",
		Values:     make(map[string][]byte),
		RemoteKeys: make(map[types.NodeID][]string),
		Neighbors:  make(map[types.NodeID][]types.PeerInfo),
	}
}

// AddPeer 把 peer 加入快照（单独成桶）并设置它持有的键
func (m *MockOverlay) AddPeer(peer types.PeerInfo, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Buckets = append(m.Buckets, types.Bucket{peer})
	m.RemoteKeys[peer.ID] = keys
}

// SetValue 并发安全地设置值
func (m *MockOverlay) SetValue(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Values[key] = value
}

// ID 返回本地节点 ID
func (m *MockOverlay) ID() types.NodeID {
	return m.IDValue
}

// Self 返回本地节点信息
func (m *MockOverlay) Self() types.PeerInfo {
	return types.PeerInfo{ID: m.IDValue, Addr: m.AddrValue}
}

// Listen 监听
func (m *MockOverlay) Listen(port int) error {
	if m.ListenFunc != nil {
		return m.ListenFunc(port)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Listening = true
	return nil
}

// Bootstrap 引导
func (m *MockOverlay) Bootstrap(ctx context.Context, seeds []string) error {
	if m.BootstrapFunc != nil {
		return m.BootstrapFunc(ctx, seeds)
	}
	return nil
}

// Store 存储值
func (m *MockOverlay) Store(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.StoreCalls = append(m.StoreCalls, StoreCall{Key: key, Value: value})
	m.mu.Unlock()

	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, key, value)
	}
	m.SetValue(key, value)
	return nil
}

// Retrieve 获取值
func (m *MockOverlay) Retrieve(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	m.RetrieveCalls++
	m.mu.Unlock()

	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Values[key]
	return v, ok, nil
}

// ClosestKnownPeers 返回快照中的全部节点
func (m *MockOverlay) ClosestKnownPeers(target types.NodeID) ([]types.PeerInfo, error) {
	if m.ClosestKnownPeersFunc != nil {
		return m.ClosestKnownPeersFunc(target)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.FlattenBuckets(m.Buckets), nil
}

// RoutingTableSnapshot 返回路由表快照
func (m *MockOverlay) RoutingTableSnapshot() []types.Bucket {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Bucket, len(m.Buckets))
	for i, b := range m.Buckets {
		out[i] = append(types.Bucket(nil), b...)
	}
	return out
}

// RemoteKeyList 返回 peer 持有的键
func (m *MockOverlay) RemoteKeyList(ctx context.Context, peer types.PeerInfo) ([]string, error) {
	m.mu.Lock()
	m.RemoteKeysCalls++
	m.mu.Unlock()

	if m.RemoteKeysFunc != nil {
		return m.RemoteKeysFunc(ctx, peer)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := append([]string(nil), m.RemoteKeys[peer.ID]...)
	sort.Strings(keys)
	return keys, nil
}

// FindNodeAt 返回 Neighbors 中登记的邻居
func (m *MockOverlay) FindNodeAt(ctx context.Context, peer types.PeerInfo, target types.NodeID) ([]types.PeerInfo, error) {
	if m.FindNodeAtFunc != nil {
		return m.FindNodeAtFunc(ctx, peer, target)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Neighbors[peer.ID], nil
}

// Close 关闭
func (m *MockOverlay) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
