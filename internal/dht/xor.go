package dht

import (
	"bytes"
	"math/bits"

	"github.com/dep2p/go-mailx/pkg/types"
)

// KeySize ID 位数，也是 K 桶数量
const KeySize = types.IDLength * 8

// XORDistance 计算两个 NodeID 的 XOR 距离（大端序）
func XORDistance(a, b types.NodeID) types.NodeID {
	var d types.NodeID
	for i := range d {
		d[i] = a[i] ^ b[i]
	}
	return d
}

// CompareDistance 比较 a 和 b 到 target 的距离
// 返回：
//
//	-1 如果 dist(a, target) < dist(b, target)
//	 0 如果 dist(a, target) == dist(b, target)
//	 1 如果 dist(a, target) > dist(b, target)
func CompareDistance(a, b, target types.NodeID) int {
	da := XORDistance(a, target)
	db := XORDistance(b, target)
	return bytes.Compare(da[:], db[:])
}

// CommonPrefixLen 计算两个 NodeID 的共同前缀长度（按位计数）
func CommonPrefixLen(a, b types.NodeID) int {
	d := XORDistance(a, b)
	for i, v := range d {
		if v != 0 {
			return i*8 + bits.LeadingZeros8(v)
		}
	}
	return KeySize
}

// BucketIndex 计算 remote 应该放入哪个 K-Bucket（0-255）
func BucketIndex(local, remote types.NodeID) int {
	cpl := CommonPrefixLen(local, remote)
	if cpl >= KeySize {
		return KeySize - 1
	}
	return cpl
}
