package service

import (
	"github.com/bwmarrin/snowflake"
	fleetdomain "github.com/carbontrail/carbontrail/internal/fleet/domain"
	footprintdomain "github.com/carbontrail/carbontrail/internal/footprint/domain"
	overheaddomain "github.com/carbontrail/carbontrail/internal/overhead/domain"
	productdomain "github.com/carbontrail/carbontrail/internal/product/domain"
	reportdomain "github.com/carbontrail/carbontrail/internal/report/domain"
)

// aggregateScope3 builds the full category breakdown in kg CO2e. It is a pure
// fold over the collected snapshot.
func (s *Service) aggregateScope3(
	logs []productdomain.ProductionLog,
	footprints map[snowflake.ID]*footprintdomain.ProductFootprint,
	overheads []overheaddomain.CorporateOverheadEntry,
	fleet []fleetdomain.FleetActivity,
) reportdomain.Scope3Breakdown {
	var breakdown reportdomain.Scope3Breakdown

	// Production-weighted product footprints. Only the footprint's scope 3
	// sub-total is summed: the scope 1/2 sub-totals are facility emissions
	// already captured by the facility aggregation, and re-adding them would
	// double-count.
	for _, log := range logs {
		if log.UnitsProduced <= 0 {
			s.metrics.RecordSkippedRecord("non_positive_units")
			continue
		}
		footprint := footprints[log.ProductID]
		if footprint == nil {
			s.metrics.RecordSkippedRecord("missing_footprint")
			continue
		}
		breakdown.Products += footprint.Scope3PerUnitKg * float64(log.UnitsProduced)
	}

	for _, entry := range overheads {
		if entry.IsMarketingMaterials() {
			breakdown.MarketingMaterials += entry.CO2eKg
			continue
		}
		switch entry.Category {
		case overheaddomain.CategoryBusinessTravel:
			breakdown.BusinessTravelOverhead += entry.CO2eKg
		case overheaddomain.CategoryPurchasedServices:
			breakdown.PurchasedServices += entry.CO2eKg
		case overheaddomain.CategoryEmployeeCommuting:
			breakdown.EmployeeCommuting += entry.CO2eKg
		case overheaddomain.CategoryCapitalGoods:
			breakdown.CapitalGoods += entry.CO2eKg
		case overheaddomain.CategoryOperationalWaste:
			breakdown.OperationalWaste += entry.CO2eKg
		case overheaddomain.CategoryDownstreamLogistics:
			breakdown.DownstreamLogistics += entry.CO2eKg
		case overheaddomain.CategoryUpstreamTransport:
			breakdown.UpstreamTransport += entry.CO2eKg
		case overheaddomain.CategoryDownstreamTransport:
			breakdown.DownstreamTransport += entry.CO2eKg
		case overheaddomain.CategoryUsePhase:
			breakdown.UsePhase += entry.CO2eKg
		default:
			s.metrics.RecordSkippedRecord("unknown_overhead_category")
		}
	}

	// Grey-fleet trips are Scope 3 category 6, kept as their own sub-field so
	// the merged business-travel bucket stays auditable.
	for _, trip := range fleet {
		if trip.ScopeClass == fleetdomain.ClassGreyFleet {
			breakdown.GreyFleet += trip.KgCO2e()
		}
	}

	breakdown.BusinessTravel = breakdown.BusinessTravelOverhead + breakdown.GreyFleet

	// Aliases mirror their source fields and must never diverge.
	breakdown.Waste = breakdown.OperationalWaste
	breakdown.Logistics = breakdown.DownstreamLogistics
	breakdown.Marketing = breakdown.MarketingMaterials

	breakdown.Total = breakdown.Products +
		breakdown.BusinessTravel +
		breakdown.PurchasedServices +
		breakdown.MarketingMaterials +
		breakdown.EmployeeCommuting +
		breakdown.CapitalGoods +
		breakdown.OperationalWaste +
		breakdown.DownstreamLogistics +
		breakdown.UpstreamTransport +
		breakdown.DownstreamTransport +
		breakdown.UsePhase

	return breakdown
}
