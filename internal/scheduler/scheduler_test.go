package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/carbontrail/carbontrail/internal/clock"
	emissionfactordomain "github.com/carbontrail/carbontrail/internal/emissionfactor/domain"
	factorservice "github.com/carbontrail/carbontrail/internal/emissionfactor/service"
	facilitydomain "github.com/carbontrail/carbontrail/internal/facility/domain"
	fleetdomain "github.com/carbontrail/carbontrail/internal/fleet/domain"
	footprintdomain "github.com/carbontrail/carbontrail/internal/footprint/domain"
	footprintservice "github.com/carbontrail/carbontrail/internal/footprint/service"
	organizationdomain "github.com/carbontrail/carbontrail/internal/organization/domain"
	overheaddomain "github.com/carbontrail/carbontrail/internal/overhead/domain"
	productdomain "github.com/carbontrail/carbontrail/internal/product/domain"
	reportdomain "github.com/carbontrail/carbontrail/internal/report/domain"
	reportservice "github.com/carbontrail/carbontrail/internal/report/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSchedulerFixture(t *testing.T, fakeClock *clock.FakeClock) (*Scheduler, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&organizationdomain.Organization{},
		&facilitydomain.ActivityEntry{},
		&emissionfactordomain.EmissionFactor{},
		&fleetdomain.FleetActivity{},
		&productdomain.Product{},
		&productdomain.ProductionLog{},
		&footprintdomain.ProductFootprint{},
		&overheaddomain.CorporateOverheadEntry{},
		&reportdomain.CorporateReport{},
	)
	assert.NoError(t, err)

	node, _ := snowflake.NewNode(1)
	log := zap.NewNop()

	factors := factorservice.NewService(factorservice.ServiceParam{DB: db, Log: log})
	footprints := footprintservice.NewService(footprintservice.ServiceParam{DB: db, Log: log, GenID: node})
	reports := reportservice.NewService(reportservice.ServiceParam{
		DB:         db,
		Log:        log,
		Clock:      fakeClock,
		GenID:      node,
		Factors:    factors,
		Footprints: footprints,
	})

	sched := New(Params{
		DB:        db,
		Log:       log,
		Clock:     fakeClock,
		ReportSvc: reports,
	})
	return sched, db, node
}

func TestRunOnce_RecalculatesStaleDrafts(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC))
	sched, db, node := newSchedulerFixture(t, fakeClock)

	orgID := node.Generate()
	db.Create(&organizationdomain.Organization{ID: orgID, Name: "Acme"})

	// Never calculated: calculated_at is NULL.
	db.Create(&reportdomain.CorporateReport{
		ID:     node.Generate(),
		OrgID:  orgID,
		Year:   2025,
		Status: reportdomain.StatusDraft,
	})

	productID := node.Generate()
	db.Create(&productdomain.Product{ID: productID, OrgID: orgID, Name: "Widget"})
	db.Create(&footprintdomain.ProductFootprint{
		ID:              node.Generate(),
		OrgID:           orgID,
		ProductID:       productID,
		Status:          footprintdomain.StatusCompleted,
		ReferenceYear:   2025,
		TotalPerUnitKg:  10,
		Scope3PerUnitKg: 4,
	})
	db.Create(&productdomain.ProductionLog{
		ID:            node.Generate(),
		OrgID:         orgID,
		ProductID:     productID,
		ProducedAt:    time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		UnitsProduced: 25,
	})

	assert.NoError(t, sched.RunOnce(context.Background()))

	var report reportdomain.CorporateReport
	assert.NoError(t, db.Where("org_id = ? AND year = ?", orgID, 2025).First(&report).Error)
	assert.InDelta(t, 100, report.TotalKg, 1e-9)
	assert.NotNil(t, report.CalculatedAt)
}

func TestRunOnce_SkipsFreshAndFinalizedReports(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC))
	sched, db, node := newSchedulerFixture(t, fakeClock)

	orgID := node.Generate()
	db.Create(&organizationdomain.Organization{ID: orgID, Name: "Acme"})

	recent := fakeClock.Now().Add(-5 * time.Minute)
	db.Create(&reportdomain.CorporateReport{
		ID:           node.Generate(),
		OrgID:        orgID,
		Year:         2025,
		Status:       reportdomain.StatusDraft,
		TotalKg:      42,
		CalculatedAt: &recent,
	})

	stale := fakeClock.Now().Add(-48 * time.Hour)
	db.Create(&reportdomain.CorporateReport{
		ID:           node.Generate(),
		OrgID:        orgID,
		Year:         2024,
		Status:       reportdomain.StatusFinalized,
		TotalKg:      77,
		CalculatedAt: &stale,
	})

	assert.NoError(t, sched.RunOnce(context.Background()))

	// Fresh draft untouched.
	var draft reportdomain.CorporateReport
	assert.NoError(t, db.Where("year = ?", 2025).First(&draft).Error)
	assert.InDelta(t, 42, draft.TotalKg, 1e-9)

	// Finalized report untouched even though stale.
	var finalized reportdomain.CorporateReport
	assert.NoError(t, db.Where("year = ?", 2024).First(&finalized).Error)
	assert.InDelta(t, 77, finalized.TotalKg, 1e-9)

	// Advancing past the threshold makes the draft eligible again.
	fakeClock.Advance(2 * time.Hour)
	assert.NoError(t, sched.RunOnce(context.Background()))

	assert.NoError(t, db.Where("year = ?", 2025).First(&draft).Error)
	assert.Zero(t, draft.TotalKg)
}
