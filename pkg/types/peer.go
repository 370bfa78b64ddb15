package types

import "fmt"

// ============================================================================
//                              PeerInfo - 节点信息
// ============================================================================

// PeerInfo 节点信息
//
// 由路由表内省产生的只读快照；爬取器和采集器只观察它，不持有它。
type PeerInfo struct {
	// ID 节点 ID
	ID NodeID `json:"id"`

	// Addr UDP 地址（host:port）
	Addr string `json:"addr"`
}

// String 返回 "短ID@地址" 形式
func (pi PeerInfo) String() string {
	return fmt.Sprintf("%s@%s", pi.ID.ShortString(), pi.Addr)
}

// IsZero 检查是否为空值
func (pi PeerInfo) IsZero() bool {
	return pi.ID.IsEmpty() && pi.Addr == ""
}

// Bucket 一个 K 桶中全部节点的快照
type Bucket []PeerInfo

// FlattenBuckets 展开路由表快照为节点列表（保持桶顺序）
func FlattenBuckets(buckets []Bucket) []PeerInfo {
	n := 0
	for _, b := range buckets {
		n += len(b)
	}
	out := make([]PeerInfo, 0, n)
	for _, b := range buckets {
		out = append(out, b...)
	}
	return out
}
