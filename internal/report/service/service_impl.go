package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/carbontrail/carbontrail/internal/clock"
	emissionfactordomain "github.com/carbontrail/carbontrail/internal/emissionfactor/domain"
	facilitydomain "github.com/carbontrail/carbontrail/internal/facility/domain"
	fleetdomain "github.com/carbontrail/carbontrail/internal/fleet/domain"
	footprintdomain "github.com/carbontrail/carbontrail/internal/footprint/domain"
	obsmetrics "github.com/carbontrail/carbontrail/internal/observability/metrics"
	overheaddomain "github.com/carbontrail/carbontrail/internal/overhead/domain"
	productdomain "github.com/carbontrail/carbontrail/internal/product/domain"
	reportdomain "github.com/carbontrail/carbontrail/internal/report/domain"
	pkgdb "github.com/carbontrail/carbontrail/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	metrics *obsmetrics.CalculationMetrics

	factors    emissionfactordomain.Service
	footprints footprintdomain.Service
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Metrics *obsmetrics.CalculationMetrics `optional:"true"`

	Factors    emissionfactordomain.Service
	Footprints footprintdomain.Service
}

func NewService(p ServiceParam) reportdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("report.service"),
		clock:      p.Clock,
		genID:      p.GenID,
		metrics:    p.Metrics,
		factors:    p.Factors,
		footprints: p.Footprints,
	}
}

// snapshot is the point-in-time view of one (organization, year) the
// aggregation folds over. Reads fan out concurrently; once collected, the
// computation is pure.
type snapshot struct {
	activities []facilitydomain.ActivityEntry
	fleet      []fleetdomain.FleetActivity
	logs       []productdomain.ProductionLog
	overheads  []overheaddomain.CorporateOverheadEntry
	footprints map[snowflake.ID]*footprintdomain.ProductFootprint
}

func (s *Service) CalculateCorporateEmissions(ctx context.Context, orgID snowflake.ID, year int) (reportdomain.CorporateEmissions, error) {
	started := time.Now()

	result, err := s.calculate(ctx, orgID, year)
	if err != nil {
		s.metrics.RecordCalculation(obsmetrics.CalcOutcomeError, time.Since(started))
		return reportdomain.CorporateEmissions{}, err
	}

	s.metrics.RecordCalculation(obsmetrics.CalcOutcomeOK, time.Since(started))
	return result, nil
}

func (s *Service) calculate(ctx context.Context, orgID snowflake.ID, year int) (reportdomain.CorporateEmissions, error) {
	if orgID == 0 {
		return reportdomain.CorporateEmissions{}, reportdomain.ErrInvalidOrganization
	}
	if year < footprintdomain.MinReferenceYear || year > footprintdomain.MaxReferenceYear {
		return reportdomain.CorporateEmissions{}, reportdomain.ErrInvalidYear
	}

	report, err := s.ensureReport(ctx, orgID, year)
	if err != nil {
		return reportdomain.CorporateEmissions{}, err
	}

	snap, err := s.loadSnapshot(ctx, orgID, year, report.ID)
	if err != nil {
		// A partial aggregate that looks complete is worse than an explicit
		// failure, so any load error fails the whole calculation.
		return reportdomain.CorporateEmissions{}, err
	}

	totals, err := s.aggregateScope12(ctx, snap.activities, snap.fleet)
	if err != nil {
		return reportdomain.CorporateEmissions{}, err
	}
	scope3 := s.aggregateScope3(snap.logs, snap.footprints, snap.overheads, snap.fleet)

	result := reportdomain.CorporateEmissions{
		Year:   year,
		Scope1: totals.Scope1,
		Scope2: totals.Scope2,
		Scope3: scope3,
		Total:  totals.Scope1 + totals.Scope2 + scope3.Total,
	}
	result.HasData = result.Total > 0

	if err := s.persistReport(ctx, report, result); err != nil {
		return reportdomain.CorporateEmissions{}, err
	}

	return result, nil
}

func (s *Service) FinalizeReport(ctx context.Context, orgID snowflake.ID, year int) (*reportdomain.CorporateReport, error) {
	if _, err := s.CalculateCorporateEmissions(ctx, orgID, year); err != nil {
		return nil, err
	}

	var report reportdomain.CorporateReport
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND year = ?", orgID, year).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reportdomain.ErrReportNotFound
		}
		return nil, err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Model(&reportdomain.CorporateReport{}).
		Where("id = ?", report.ID).
		Updates(map[string]any{
			"status":     reportdomain.StatusFinalized,
			"updated_at": now,
		}).Error
	if err != nil {
		return nil, err
	}

	report.Status = reportdomain.StatusFinalized
	report.UpdatedAt = now
	return &report, nil
}

// ensureReport lazily creates the (org, year) projection row on first access.
func (s *Service) ensureReport(ctx context.Context, orgID snowflake.ID, year int) (*reportdomain.CorporateReport, error) {
	var report reportdomain.CorporateReport
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND year = ?", orgID, year).
		First(&report).Error
	if err == nil {
		return &report, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	report = reportdomain.CorporateReport{
		ID:     s.genID.Generate(),
		OrgID:  orgID,
		Year:   year,
		Status: reportdomain.StatusDraft,
	}
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			// Lost the create race; the winner's row is just as good.
			err = s.db.WithContext(ctx).
				Where("org_id = ? AND year = ?", orgID, year).
				First(&report).Error
			if err != nil {
				return nil, err
			}
			return &report, nil
		}
		return nil, err
	}
	return &report, nil
}

func (s *Service) loadSnapshot(ctx context.Context, orgID snowflake.ID, year int, reportID snowflake.ID) (*snapshot, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	snap := &snapshot{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("org_id = ? AND period_start >= ? AND period_start < ?", orgID, yearStart, yearEnd).
			Order("id ASC").
			Find(&snap.activities).Error
	})

	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("org_id = ? AND activity_date >= ? AND activity_date < ?", orgID, yearStart, yearEnd).
			Order("id ASC").
			Find(&snap.fleet).Error
	})

	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("org_id = ? AND report_id = ?", orgID, reportID).
			Order("id ASC").
			Find(&snap.overheads).Error
	})

	g.Go(func() error {
		err := s.db.WithContext(gctx).
			Where("org_id = ? AND produced_at >= ? AND produced_at < ?", orgID, yearStart, yearEnd).
			Order("id ASC").
			Find(&snap.logs).Error
		if err != nil {
			return err
		}

		snap.footprints = make(map[snowflake.ID]*footprintdomain.ProductFootprint)
		for _, productID := range distinctProductIDs(snap.logs) {
			footprint, err := s.footprints.LatestCompleted(gctx, orgID, productID)
			if err != nil {
				return err
			}
			if footprint != nil {
				snap.footprints[productID] = footprint
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Service) persistReport(ctx context.Context, report *reportdomain.CorporateReport, result reportdomain.CorporateEmissions) error {
	breakdown, err := json.Marshal(result)
	if err != nil {
		return err
	}

	now := s.clock.Now()

	// The report row is a regenerable projection of the source tables;
	// ensureReport guarantees it exists, and concurrent recalculations racing
	// here resolve last-writer-wins.
	return s.db.WithContext(ctx).Model(&reportdomain.CorporateReport{}).
		Where("org_id = ? AND year = ?", report.OrgID, report.Year).
		Updates(map[string]any{
			"total_kg":      result.Total,
			"breakdown":     datatypes.JSON(breakdown),
			"calculated_at": now,
			"updated_at":    now,
		}).Error
}

func distinctProductIDs(logs []productdomain.ProductionLog) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(logs))
	ids := make([]snowflake.ID, 0, len(logs))
	for _, log := range logs {
		if _, ok := seen[log.ProductID]; ok {
			continue
		}
		seen[log.ProductID] = struct{}{}
		ids = append(ids, log.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
