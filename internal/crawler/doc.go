// Package crawler 通过反复展开邻居发现覆盖网络中的全部节点
//
// Expander 决定“邻居”的含义：LocalExpander 读本地路由表，
// RemoteExpander 向每个节点发 FIND_NODE。
//
//	c, _ := crawler.New(crawler.LocalExpander{Peers: d}, crawler.WithConcurrency(4))
//	res, err := c.Crawl(ctx, d.Self())
//	for id := range res.IDs() {
//	    fmt.Println(id)
//	}
package crawler
