package allocation

import (
	"github.com/carbontrail/carbontrail/internal/allocation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("allocation.service",
	fx.Provide(service.NewService),
)
