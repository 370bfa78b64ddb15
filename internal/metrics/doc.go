// Package metrics 提供 mailx 的 Prometheus 指标
//
// 每个 Metrics 实例持有独立的 Registry，多个节点实例可以在同一进程中共存。
// 所有记录方法对 nil 接收者安全，未启用指标时组件可直接传 nil。
//
// # 指标
//
//   - mailx_remote_query_failures_total{op}: 被吞掉的逐节点远程调用失败
//   - mailx_crawl_nodes_total: 爬取发现的节点数
//   - mailx_harvested_keys_total: 收割到的键数
//   - mailx_poller_reports_total{source}: 轮询器上报的变化次数
//
// # 暴露
//
//	m := metrics.New()
//	srv := metrics.NewServer(":9100", m)
//	go srv.Start()
//	defer srv.Stop()
package metrics
