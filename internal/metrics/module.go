package metrics

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-mailx/pkg/lib/log"
)

var logger = log.Logger("metrics")

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(New),
)
