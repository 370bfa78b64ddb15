package dht

import (
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ValueStore 本地值存储
//
// 容量受限、带 TTL，超出容量时淘汰最久未使用的键。
// 底层 LRU 自带锁，可并发使用。
type ValueStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewValueStore 创建值存储
func NewValueStore(maxValues int, ttl time.Duration) *ValueStore {
	return &ValueStore{
		lru: expirable.NewLRU[string, []byte](maxValues, nil, ttl),
	}
}

// Put 存储值（复制一份，调用方可继续修改原切片）
func (vs *ValueStore) Put(key string, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	vs.lru.Add(key, v)
}

// Get 获取值
func (vs *ValueStore) Get(key string) ([]byte, bool) {
	return vs.lru.Get(key)
}

// Keys 返回当前未过期的全部键（已排序）
//
// 底层 LRU 的 Keys 会包含已过期但尚未被后台清理的条目，这里用 Peek 过滤，
// 保证列出的键都能被 Get 取到。
func (vs *ValueStore) Keys() []string {
	all := vs.lru.Keys()
	keys := all[:0]
	for _, k := range all {
		if _, ok := vs.lru.Peek(k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Size 返回未过期的值数量
func (vs *ValueStore) Size() int {
	return len(vs.Keys())
}
