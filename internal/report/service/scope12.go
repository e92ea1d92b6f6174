package service

import (
	"context"

	facilitydomain "github.com/carbontrail/carbontrail/internal/facility/domain"
	fleetdomain "github.com/carbontrail/carbontrail/internal/fleet/domain"
	"go.uber.org/zap"
)

// scopeTotals holds the facility-and-fleet aggregates in kg CO2e.
type scopeTotals struct {
	Scope1 float64
	Scope2 float64
}

// aggregateScope12 sums quantity × factor over the year's activity entries,
// partitioned by the entry's resolved scope, then adds same-scope fleet rows
// converted from tonnes to kilograms. A missing factor, an unconvertible unit
// or a non-positive quantity degrades that one entry to zero; it never aborts
// the aggregate.
func (s *Service) aggregateScope12(
	ctx context.Context,
	activities []facilitydomain.ActivityEntry,
	fleet []fleetdomain.FleetActivity,
) (scopeTotals, error) {
	var totals scopeTotals

	for _, entry := range activities {
		if entry.Quantity <= 0 {
			s.metrics.RecordSkippedRecord("non_positive_quantity")
			continue
		}

		factor, err := s.factors.Resolve(ctx, entry.ActivityType, entry.Unit)
		if err != nil {
			return scopeTotals{}, err
		}
		if factor == nil {
			s.metrics.RecordSkippedRecord("missing_factor")
			s.log.Debug("activity entry degraded to zero",
				zap.String("entry_id", entry.ID.String()),
				zap.String("activity_type", entry.ActivityType),
			)
			continue
		}

		kg := entry.Quantity * factor.KgPerUnit
		switch entry.Scope {
		case facilitydomain.ScopeOne:
			totals.Scope1 += kg
		case facilitydomain.ScopeTwo:
			totals.Scope2 += kg
		default:
			s.metrics.RecordSkippedRecord("unknown_scope")
		}
	}

	for _, trip := range fleet {
		switch trip.ScopeClass {
		case fleetdomain.ClassScopeOne:
			totals.Scope1 += trip.KgCO2e()
		case fleetdomain.ClassScopeTwo:
			totals.Scope2 += trip.KgCO2e()
		}
		// Grey-fleet rows belong to Scope 3 and are handled there.
	}

	return totals, nil
}
