// Package harvest 收集本地已知节点持有的键并取回对应的值
//
// 每个节点的查询结果都是一个 Result，错误分支在调用处显式丢弃：
// 一个节点不可达不会清空从其他节点得到的键。
//
//	h := harvest.New(d, harvest.WithMetrics(m))
//	pairs := h.HarvestAll(ctx)
package harvest
