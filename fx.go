package mailx

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-mailx/internal/dht"
	"github.com/dep2p/go-mailx/internal/metrics"
	"github.com/dep2p/go-mailx/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序：
//  1. 配置注入
//  2. Overlay：外部提供，或由 dht 模块创建（停止时关闭）
//  3. Metrics：外部提供，或由 metrics 模块创建
//  4. 用户 Fx 选项
//  5. 会话组件注入
func buildFxApp(o *options, s *Session) (*fx.App, error) {
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(o.config),
	}

	if o.overlay != nil {
		ov := o.overlay
		modules = append(modules, fx.Provide(func() interfaces.Overlay { return ov }))
	} else {
		modules = append(modules, dht.Module)
	}

	if o.metrics != nil {
		modules = append(modules, fx.Supply(o.metrics))
	} else {
		modules = append(modules, metrics.Module)
	}

	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectSessionComponents(s)),

		// 禁用 Fx 日志输出（避免干扰用户输出）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.NopLogger,
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// sessionInjectParams 会话组件注入参数
type sessionInjectParams struct {
	fx.In

	Overlay interfaces.Overlay
	Metrics *metrics.Metrics
}

// injectSessionComponents 把 Fx 创建的组件交给会话
func injectSessionComponents(s *Session) func(p sessionInjectParams) {
	return func(p sessionInjectParams) {
		s.overlay = p.Overlay
		s.metrics = p.Metrics
	}
}
