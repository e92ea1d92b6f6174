package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/carbontrail/carbontrail/internal/clock"
	reportdomain "github.com/carbontrail/carbontrail/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// workReport identifies one draft report whose cached totals have gone stale.
type workReport struct {
	ID    snowflake.ID
	OrgID snowflake.ID
	Year  int
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	ReportSvc reportdomain.Service
	Config    Config `optional:"true"`
}

// Scheduler keeps draft corporate reports fresh: source tables change out of
// band (imports, backfills), and the cached projection should converge on
// them without anyone clicking recalculate.
type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	reportSvc reportdomain.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler"),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		reportSvc: p.ReportSvc,
	}
}

// Run loops until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Warn("recalculation sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce recalculates every stale draft report, oldest first. Finalized
// reports are immutable and never touched.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	reports, err := s.fetchStaleReports(ctx)
	if err != nil {
		return err
	}

	for _, report := range reports {
		if _, err := s.reportSvc.CalculateCorporateEmissions(ctx, report.OrgID, report.Year); err != nil {
			// One broken report must not starve the rest of the sweep.
			s.log.Warn("report recalculation failed",
				zap.String("report_id", report.ID.String()),
				zap.Int("year", report.Year),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Scheduler) fetchStaleReports(ctx context.Context) ([]workReport, error) {
	cutoff := s.clock.Now().Add(-s.cfg.StaleThreshold)

	var reports []workReport
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, org_id, year
		 FROM corporate_reports
		 WHERE status = ?
		   AND (calculated_at IS NULL OR calculated_at < ?)
		 ORDER BY calculated_at ASC, id ASC
		 LIMIT ?`,
		reportdomain.StatusDraft,
		cutoff,
		s.cfg.BatchSize,
	).Scan(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}
