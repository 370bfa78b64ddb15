// Package interfaces 定义 go-mailx 的公共接口
//
// 覆盖网络只有一个实现（internal/dht），但会话、爬取器和采集器只依赖
// 这里的最小能力接口，测试中由 tests/mocks 替换：
//   - overlay.go - Overlay 覆盖网络门面，以及 PeerLister / KeyLister 能力切片
//
// 本包仅包含接口定义，数据结构定义在 pkg/types 包中。
package interfaces
