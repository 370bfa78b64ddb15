// Package lib 包含与业务组件无关的基础设施工具库
//
//   - log: 基于 log/slog 的组件日志封装
//
// 业务接口位于 pkg/interfaces，公共数据类型位于 pkg/types。
package lib
