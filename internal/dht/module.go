package dht

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-mailx/config"
	"github.com/dep2p/go-mailx/pkg/interfaces"
)

// Module DHT Fx 模块
var Module = fx.Module("dht",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params DHT 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result DHT 导出结果
type Result struct {
	fx.Out

	DHT     *DHT
	Overlay interfaces.Overlay
}

// NewFromParams 从 Fx 参数创建 DHT
func NewFromParams(p Params) (Result, error) {
	d, err := New(WithConfig(ConfigFromUnified(p.UnifiedCfg)))
	if err != nil {
		return Result{}, err
	}
	return Result{DHT: d, Overlay: d}, nil
}

// registerLifecycle 应用停止时关闭 DHT
//
// Listen/Bootstrap 由会话编排器显式驱动，这里只负责释放资源。
func registerLifecycle(lc fx.Lifecycle, d *DHT) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return d.Close()
		},
	})
}
