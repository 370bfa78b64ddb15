package dht

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueStore_PutGet(t *testing.T) {
	vs := NewValueStore(10, time.Hour)

	value := []byte("hello")
	vs.Put("k", value)
	value[0] = 'j' // 存储的是副本

	got, ok := vs.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), got)

	_, ok = vs.Get("missing")
	assert.False(t, ok)
}

func TestValueStore_KeysSorted(t *testing.T) {
	vs := NewValueStore(10, time.Hour)
	vs.Put("b", nil)
	vs.Put("a", nil)
	vs.Put("c", nil)

	assert.Equal(t, []string{"a", "b", "c"}, vs.Keys())
	assert.Equal(t, 3, vs.Size())
}

func TestValueStore_Capacity(t *testing.T) {
	vs := NewValueStore(2, time.Hour)
	vs.Put("a", nil)
	vs.Put("b", nil)
	vs.Put("c", nil)

	assert.Equal(t, 2, vs.Size())
	_, ok := vs.Get("a")
	assert.False(t, ok, "最久未使用的键被淘汰")
}

func TestValueStore_Expiry(t *testing.T) {
	vs := NewValueStore(10, 50*time.Millisecond)
	vs.Put("k", []byte("v"))
	vs.Put("other", []byte("v"))
	assert.Equal(t, []string{"k", "other"}, vs.Keys())

	// Get 一旦报告缺失，Keys 必须同时不再列出该键，不依赖后台清理
	var keysAtExpiry []string
	require.Eventually(t, func() bool {
		if _, ok := vs.Get("k"); ok {
			return false
		}
		keysAtExpiry = vs.Keys()
		return true
	}, 2*time.Second, time.Millisecond)

	assert.NotContains(t, keysAtExpiry, "k")
	assert.Empty(t, vs.Keys())
	assert.Zero(t, vs.Size())
}
