package poller

import (
	"bytes"
	"context"
	"slices"
	"sort"

	"github.com/dep2p/go-mailx/pkg/interfaces"
	"github.com/dep2p/go-mailx/pkg/types"
)

// Retriever 按键取值
type Retriever interface {
	Retrieve(ctx context.Context, key string) ([]byte, bool, error)
}

// MessageSource 以 key 当前的值为采样
func MessageSource(r Retriever, key string) SampleFunc[[]byte] {
	return func(ctx context.Context) ([]byte, bool, error) {
		return r.Retrieve(ctx, key)
	}
}

// NewMessagePoller 监视 key 的值
func NewMessagePoller(r Retriever, key string, opts ...Option) *Poller[[]byte] {
	opts = append([]Option{WithName("messages")}, opts...)
	return New(MessageSource(r, key), bytes.Equal, opts...)
}

// PeerSource 以路由表中的全部节点为采样（按 ID 排序）
//
// 路由表为空时视为没有值。
func PeerSource(l interfaces.PeerLister) SampleFunc[[]types.PeerInfo] {
	return func(context.Context) ([]types.PeerInfo, bool, error) {
		peers := types.FlattenBuckets(l.RoutingTableSnapshot())
		if len(peers) == 0 {
			return nil, false, nil
		}
		sort.Slice(peers, func(i, j int) bool {
			return bytes.Compare(peers[i].ID[:], peers[j].ID[:]) < 0
		})
		return peers, true, nil
	}
}

// NewPeerPoller 监视路由表成员
func NewPeerPoller(l interfaces.PeerLister, opts ...Option) *Poller[[]types.PeerInfo] {
	opts = append([]Option{WithName("peers")}, opts...)
	return New(PeerSource(l), func(a, b []types.PeerInfo) bool { return slices.Equal(a, b) }, opts...)
}
