package footprint

import (
	"github.com/carbontrail/carbontrail/internal/footprint/service"
	"go.uber.org/fx"
)

var Module = fx.Module("footprint.service",
	fx.Provide(service.NewService),
)
