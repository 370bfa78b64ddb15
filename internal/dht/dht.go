package dht

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-mailx/pkg/interfaces"
	"github.com/dep2p/go-mailx/pkg/lib/log"
	"github.com/dep2p/go-mailx/pkg/types"
)

var logger = log.Logger("dht")

var _ interfaces.Overlay = (*DHT)(nil)

// DHT Kademlia DHT 实现
//
// 显式构造、显式持有，生命周期为 New → Listen → Bootstrap → 运行 → Close。
// 同一进程内可以存在多个互相独立的实例。
type DHT struct {
	// config 配置
	config *Config

	// localID 本地节点 ID
	localID types.NodeID

	// routingTable 路由表
	routingTable *RoutingTable

	// valueStore 值存储
	valueStore *ValueStore

	// handler 协议处理器
	handler *Handler

	// network 网络适配器（Listen 后才存在）
	network *NetworkAdapter
	mu      sync.RWMutex

	closed atomic.Bool
}

// New 创建 DHT 实例
func New(opts ...ConfigOption) (*DHT, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	localID := types.RandomNodeID()
	d := &DHT{
		config:       config,
		localID:      localID,
		routingTable: NewRoutingTable(localID, config.BucketSize),
		valueStore:   NewValueStore(config.MaxValues, config.ValueTTL),
	}
	d.handler = NewHandler(d)
	return d, nil
}

// ID 返回本地节点 ID
func (d *DHT) ID() types.NodeID {
	return d.localID
}

// Self 返回本地节点信息
func (d *DHT) Self() types.PeerInfo {
	return types.PeerInfo{ID: d.localID, Addr: d.Addr()}
}

// Addr 返回可供其他本机节点联系的地址；未监听时为空
func (d *DHT) Addr() string {
	d.mu.RLock()
	n := d.network
	d.mu.RUnlock()
	if n == nil {
		return ""
	}

	addr := n.LocalAddr()
	host := addr.IP.String()
	if addr.IP == nil || addr.IP.IsUnspecified() {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(addr.Port))
}

// Listen 绑定本地 UDP 端口
func (d *DHT) Listen(port int) error {
	if d.closed.Load() {
		return ErrDHTClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.network != nil {
		return ErrAlreadyStarted
	}

	n, err := NewNetworkAdapter(d.config.ListenHost, port, d.config.RPCTimeout, d.handler.Handle)
	if err != nil {
		return &BindError{Port: port, Err: err}
	}
	d.network = n

	logger.Info("DHT 开始监听", "addr", n.LocalAddr().String(), "id", d.localID.ShortString())
	return nil
}

// transport 返回网络适配器
func (d *DHT) transport() (*NetworkAdapter, error) {
	if d.closed.Load() {
		return nil, ErrDHTClosed
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.network == nil {
		return nil, ErrNotStarted
	}
	return d.network, nil
}

// request 向 peer 发送一条请求
//
// 成功时把响应者学习进路由表；非 ctx 取消的失败计入该节点的失败次数。
func (d *DHT) request(ctx context.Context, peer types.PeerInfo, msg *Message) (*Message, error) {
	n, err := d.transport()
	if err != nil {
		return nil, err
	}

	resp, err := n.SendRequest(ctx, peer.Addr, msg)
	if err != nil {
		if ctx.Err() == nil && !peer.ID.IsEmpty() {
			if d.routingTable.RecordFailure(peer.ID) {
				logger.Debug("节点连续失败，移出路由表", "peer", peer.String())
			}
		}
		return nil, err
	}

	if !resp.Sender.IsEmpty() {
		d.routingTable.Add(types.PeerInfo{ID: resp.Sender, Addr: peer.Addr})
	}
	return resp, nil
}

// Ping 探测一个地址，返回对端的节点信息
func (d *DHT) Ping(ctx context.Context, addr string) (types.PeerInfo, error) {
	resp, err := d.request(ctx, types.PeerInfo{Addr: addr}, NewPingRequest(d.localID))
	if err != nil {
		return types.PeerInfo{}, err
	}
	return types.PeerInfo{ID: resp.Sender, Addr: addr}, nil
}

// Bootstrap 将种子节点合并进路由表
//
// 并发 PING 所有种子；至少一个可达时以本地 ID 做一次迭代 FIND_NODE 填充 K 桶。
// 没有任何种子可达时返回 *BootstrapError。
func (d *DHT) Bootstrap(ctx context.Context, seeds []string) error {
	if _, err := d.transport(); err != nil {
		return err
	}
	if len(seeds) == 0 {
		return &BootstrapError{Err: ErrNoSeeds}
	}

	logger.Info("正在引导", "seeds", seeds)

	var (
		mu        sync.Mutex
		errs      error
		reachable int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, seed := range seeds {
		g.Go(func() error {
			peer, err := d.Ping(gctx, seed)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", seed, err))
				return nil
			}
			reachable++
			logger.Debug("引导节点可达", "peer", peer.String())
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if reachable == 0 {
		return &BootstrapError{Seeds: seeds, Err: errs}
	}
	if errs != nil {
		logger.Warn("部分引导节点不可达，降级继续", "reachable", reachable, "total", len(seeds), "error", errs)
	}

	q := newIterativeQuery(d, d.localID, MessageTypeFindNode, "")
	if err := q.Run(ctx); err != nil && !errors.Is(err, ErrNoNearbyPeers) {
		return err
	}

	logger.Info("引导完成", "routingTableSize", d.routingTable.Size())
	return nil
}

// Store 将值复制到离 key 最近的节点
func (d *DHT) Store(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if len(value) > MaxValueSize {
		return ErrValueTooLarge
	}
	if _, err := d.transport(); err != nil {
		return err
	}

	target := types.KeyToID(key)
	q := newIterativeQuery(d, target, MessageTypeFindNode, "")
	if err := q.Run(ctx); err != nil {
		if !errors.Is(err, ErrNoNearbyPeers) {
			return err
		}
		logger.Warn("没有已知邻居，仅本地存储", "key", key)
		d.valueStore.Put(key, value)
		return nil
	}

	closest := q.Closest(d.config.ReplicationFactor)
	if len(closest) < d.config.ReplicationFactor ||
		CompareDistance(d.localID, closest[len(closest)-1].ID, target) < 0 {
		d.valueStore.Put(key, value)
	}

	var stored atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for _, peer := range closest {
		g.Go(func() error {
			if _, err := d.request(gctx, peer, NewStoreRequest(d.localID, key, value)); err != nil {
				logger.Debug("副本写入失败", "peer", peer.String(), "key", key, "error", err)
				return nil
			}
			stored.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Debug("STORE 完成", "key", key, "replicas", stored.Load(), "candidates", len(closest))
	if stored.Load() == 0 {
		if _, ok := d.valueStore.Get(key); !ok {
			return NewDHTError("store", ErrNoNearbyPeers, "no replica accepted the value")
		}
	}
	return nil
}

// Retrieve 迭代查找 key 的值
//
// found=false 且 err=nil 表示没有副本应答，属于正常结果。
func (d *DHT) Retrieve(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	if _, err := d.transport(); err != nil {
		return nil, false, err
	}

	if value, ok := d.valueStore.Get(key); ok {
		return value, true, nil
	}

	q := newIterativeQuery(d, types.KeyToID(key), MessageTypeFindValue, key)
	if err := q.Run(ctx); err != nil {
		if errors.Is(err, ErrNoNearbyPeers) {
			return nil, false, nil
		}
		return nil, false, err
	}

	value, ok := q.Value()
	return value, ok, nil
}

// ClosestKnownPeers 返回路由表中离 target 最近的节点（不发网络请求）
func (d *DHT) ClosestKnownPeers(target types.NodeID) ([]types.PeerInfo, error) {
	if _, err := d.transport(); err != nil {
		return nil, err
	}
	return d.routingTable.NearestPeers(target, d.config.BucketSize), nil
}

// RoutingTableSnapshot 返回本地缓存的全部节点，按桶分组
func (d *DHT) RoutingTableSnapshot() []types.Bucket {
	return d.routingTable.Snapshot()
}

// RemoteKeyList 询问 peer 持有哪些键
//
// 键列表按页拉取，每页一个 GET_KEYS RPC；任一页失败则整体失败。
func (d *DHT) RemoteKeyList(ctx context.Context, peer types.PeerInfo) ([]string, error) {
	var (
		keys   []string
		cursor string
	)
	for page := 0; page < maxKeyPages; page++ {
		resp, err := d.request(ctx, peer, NewGetKeysRequest(d.localID, cursor))
		if err != nil {
			return nil, NewDHTError("get_keys", err, peer.String())
		}
		keys = append(keys, resp.Keys...)
		if !resp.More {
			return keys, nil
		}

		// 游标必须前进，否则对端在重复同一页
		if len(resp.Keys) == 0 || resp.Keys[len(resp.Keys)-1] <= cursor {
			return nil, NewDHTError("get_keys", ErrInvalidResponse, peer.String())
		}
		cursor = resp.Keys[len(resp.Keys)-1]
	}
	logger.Warn("键列表页数达到上限，结果被截断", "peer", peer.String(), "keys", len(keys))
	return keys, nil
}

// FindNodeAt 向 peer 发起一次 FIND_NODE RPC
func (d *DHT) FindNodeAt(ctx context.Context, peer types.PeerInfo, target types.NodeID) ([]types.PeerInfo, error) {
	resp, err := d.request(ctx, peer, NewFindNodeRequest(d.localID, target))
	if err != nil {
		return nil, NewDHTError("find_node", err, peer.String())
	}
	return resp.CloserPeers, nil
}

// LocalKeys 返回本地值存储中的键
func (d *DHT) LocalKeys() []string {
	return d.valueStore.Keys()
}

// Close 释放监听资源（幂等）
func (d *DHT) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	d.mu.Lock()
	n := d.network
	d.mu.Unlock()

	if n == nil {
		return nil
	}
	logger.Info("正在关闭 DHT", "id", d.localID.ShortString())
	return n.Close()
}
