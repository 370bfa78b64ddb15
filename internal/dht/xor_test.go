package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-mailx/pkg/types"
)

// idWithPrefix 构造首字节为 b、其余为 0 的 ID
func idWithPrefix(b ...byte) types.NodeID {
	var id types.NodeID
	copy(id[:], b)
	return id
}

func TestXORDistance(t *testing.T) {
	a := idWithPrefix(0xF0)
	b := idWithPrefix(0x0F)

	d := XORDistance(a, b)
	assert.Equal(t, byte(0xFF), d[0])
	assert.Equal(t, types.EmptyNodeID, XORDistance(a, a))
}

func TestCompareDistance(t *testing.T) {
	target := idWithPrefix(0x00)
	near := idWithPrefix(0x01)
	far := idWithPrefix(0x80)

	assert.Equal(t, -1, CompareDistance(near, far, target))
	assert.Equal(t, 1, CompareDistance(far, near, target))
	assert.Equal(t, 0, CompareDistance(near, near, target))
}

func TestCommonPrefixLen(t *testing.T) {
	tests := []struct {
		name string
		a, b types.NodeID
		want int
	}{
		{"Identical", idWithPrefix(0xAB), idWithPrefix(0xAB), KeySize},
		{"FirstBitDiffers", idWithPrefix(0x00), idWithPrefix(0x80), 0},
		{"FourBitsShared", idWithPrefix(0xA0), idWithPrefix(0xA8), 4},
		{"SecondByte", idWithPrefix(0x12, 0x00), idWithPrefix(0x12, 0x01), 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CommonPrefixLen(tt.a, tt.b))
		})
	}
}

func TestBucketIndex(t *testing.T) {
	local := idWithPrefix(0x00)

	assert.Equal(t, 0, BucketIndex(local, idWithPrefix(0x80)))
	assert.Equal(t, 7, BucketIndex(local, idWithPrefix(0x01)))
	// 与自身比较落在最后一个桶
	assert.Equal(t, KeySize-1, BucketIndex(local, local))
}
