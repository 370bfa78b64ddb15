// Package mocks 提供统一的测试 Mock 实现
//
// # 核心 Mock
//
//   - MockOverlay: 模拟 interfaces.Overlay，内存中的值表、路由表快照和每节点键列表
//
// # 设计原则
//
// 1. 函数式注入: 每个方法都支持通过 XxxFunc 字段注入自定义行为
// 2. 调用记录: 记录远程调用次数，便于验证测试行为
// 3. 并发安全: 可以被爬取器、收割器、轮询器并发调用
//
// # 使用示例
//
//	overlay := mocks.NewMockOverlay()
//	overlay.Values["messages"] = []byte("hi")
//	overlay.RemoteKeysFunc = func(ctx context.Context, p types.PeerInfo) ([]string, error) {
//	    return nil, errors.New("timeout")
//	}
package mocks
