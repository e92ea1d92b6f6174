package service

import (
	"context"
	"strings"

	emissionfactordomain "github.com/carbontrail/carbontrail/internal/emissionfactor/domain"
	"github.com/carbontrail/carbontrail/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GasKWhPerCubicMetre is the calorific conversion applied when gas consumption
// is recorded in m³ but the factor is expressed per kWh.
const GasKWhPerCubicMetre = 10.55

// LitresPerCubicMetre converts bulk liquid volumes recorded in m³ to the
// litre-denominated fuel factors.
const LitresPerCubicMetre = 1000.0

type unitConversion struct {
	from string
	to   string
}

// unitConversions holds the documented conversions between recording units and
// factor units. Absence means the pair is unconvertible and the record
// degrades to a zero contribution.
var unitConversions = map[unitConversion]float64{
	{from: "m3", to: "kwh"}:  GasKWhPerCubicMetre,
	{from: "m3", to: "l"}:    LitresPerCubicMetre,
	{from: "mwh", to: "kwh"}: 1000,
	{from: "t", to: "kg"}:    1000,
}

type Service struct {
	log     *zap.Logger
	factors repository.Repository[emissionfactordomain.EmissionFactor]
}

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

func NewService(p ServiceParam) emissionfactordomain.Service {
	return &Service{
		log:     p.Log.Named("emissionfactor.service"),
		factors: repository.ProvideStore[emissionfactordomain.EmissionFactor](p.DB),
	}
}

// Resolve looks up the factor for an activity type and normalizes it to the
// recording unit. A missing factor or unconvertible unit returns (nil, nil).
func (s *Service) Resolve(ctx context.Context, activityType, unit string) (*emissionfactordomain.ResolvedFactor, error) {
	activityType = strings.ToLower(strings.TrimSpace(activityType))
	if activityType == "" {
		return nil, nil
	}

	factor, err := s.factors.FindOne(ctx, &emissionfactordomain.EmissionFactor{ActivityType: activityType})
	if err != nil {
		return nil, err
	}
	if factor == nil {
		s.log.Debug("no factor for activity type", zap.String("activity_type", activityType))
		return nil, nil
	}

	ratio, ok := conversionRatio(unit, factor.Unit)
	if !ok {
		s.log.Debug("unconvertible unit",
			zap.String("activity_type", activityType),
			zap.String("entry_unit", unit),
			zap.String("factor_unit", factor.Unit),
		)
		return nil, nil
	}

	return &emissionfactordomain.ResolvedFactor{
		KgPerUnit: factor.Value * ratio,
		Scope:     factor.Scope,
	}, nil
}

func conversionRatio(from, to string) (float64, bool) {
	from = normalizeUnit(from)
	to = normalizeUnit(to)
	if from == "" || to == "" {
		return 0, false
	}
	if from == to {
		return 1, true
	}
	ratio, ok := unitConversions[unitConversion{from: from, to: to}]
	return ratio, ok
}

func normalizeUnit(unit string) string {
	unit = strings.ToLower(strings.TrimSpace(unit))
	switch unit {
	case "m³", "m^3", "cbm":
		return "m3"
	case "litre", "liter", "litres", "liters":
		return "l"
	case "tonne", "tonnes":
		return "t"
	default:
		return unit
	}
}
