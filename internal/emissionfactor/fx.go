package emissionfactor

import (
	"github.com/carbontrail/carbontrail/internal/emissionfactor/service"
	"go.uber.org/fx"
)

var Module = fx.Module("emissionfactor.service",
	fx.Provide(service.NewService),
)
