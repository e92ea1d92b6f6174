package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/carbontrail/carbontrail/internal/allocation/domain"
	pkgdb "github.com/carbontrail/carbontrail/pkg/db"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAllocationService(t *testing.T) (allocationdomain.Service, *snowflake.Node, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&allocationdomain.ProductionMixAllocation{})
	assert.NoError(t, err)

	node, _ := snowflake.NewNode(1)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	return svc, node, db
}

// failAllocationInserts makes the next n allocation inserts fail with a
// postgres serialization error before they reach the database.
func failAllocationInserts(t *testing.T, db *gorm.DB, n int) *int {
	t.Helper()

	conflicts := 0
	err := db.Callback().Raw().Before("gorm:raw").Register("allocation_serialization_conflict", func(tx *gorm.DB) {
		if conflicts < n && strings.Contains(tx.Statement.SQL.String(), "INSERT INTO production_mix_allocations") {
			conflicts++
			tx.AddError(&pgconn.PgError{Code: "40001"})
		}
	})
	assert.NoError(t, err)
	return &conflicts
}

func upsertShare(t *testing.T, svc allocationdomain.Service, orgID, footprintID, facilityID snowflake.ID, share, intensity float64) error {
	t.Helper()
	return svc.Upsert(context.Background(), &allocationdomain.ProductionMixAllocation{
		OrgID:             orgID,
		FootprintID:       footprintID,
		FacilityID:        facilityID,
		ProductionShare:   share,
		FacilityIntensity: intensity,
	})
}

func TestUpsert_SharesSummingToOne(t *testing.T) {
	svc, node, _ := newAllocationService(t)

	orgID := node.Generate()
	footprintID := node.Generate()

	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, node.Generate(), 0.6, 2.0))
	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, node.Generate(), 0.4, 3.0))

	completeness, err := svc.Completeness(context.Background(), orgID, footprintID)
	assert.NoError(t, err)
	assert.True(t, completeness.Complete)
	assert.InDelta(t, 1.0, completeness.TotalShare, 1e-9)
}

func TestUpsert_RejectsOvershoot(t *testing.T) {
	svc, node, _ := newAllocationService(t)

	orgID := node.Generate()
	footprintID := node.Generate()

	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, node.Generate(), 0.7, 0))

	err := upsertShare(t, svc, orgID, footprintID, node.Generate(), 0.3002, 0)
	var shareErr *allocationdomain.ShareSumError
	assert.ErrorAs(t, err, &shareErr)
	assert.InDelta(t, 1.0002, shareErr.ProspectiveTotal, 1e-9)
}

func TestUpsert_AllowsOvershootWithinTolerance(t *testing.T) {
	svc, node, _ := newAllocationService(t)

	orgID := node.Generate()
	footprintID := node.Generate()

	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, node.Generate(), 0.7, 0))
	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, node.Generate(), 0.30005, 0))
}

func TestUpsert_ReplacesExistingRow(t *testing.T) {
	svc, node, _ := newAllocationService(t)

	orgID := node.Generate()
	footprintID := node.Generate()
	facilityID := node.Generate()

	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, facilityID, 0.9, 1.5))
	// Re-writing the same facility replaces its share rather than stacking it.
	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, facilityID, 0.5, 2.5))

	allocations, err := svc.List(context.Background(), orgID, footprintID)
	assert.NoError(t, err)
	assert.Len(t, allocations, 1)
	assert.InDelta(t, 0.5, allocations[0].ProductionShare, 1e-9)
	assert.InDelta(t, 2.5, allocations[0].FacilityIntensity, 1e-9)
}

func TestUpsert_ValidatesShareRange(t *testing.T) {
	svc, node, _ := newAllocationService(t)

	orgID := node.Generate()
	footprintID := node.Generate()

	err := upsertShare(t, svc, orgID, footprintID, node.Generate(), -0.1, 0)
	assert.ErrorIs(t, err, allocationdomain.ErrInvalidShare)

	err = upsertShare(t, svc, orgID, footprintID, node.Generate(), 1.1, 0)
	assert.ErrorIs(t, err, allocationdomain.ErrInvalidShare)
}

func TestUpsert_RetriesOnSerializationConflict(t *testing.T) {
	svc, node, db := newAllocationService(t)

	// A concurrent writer for the same footprint aborts this transaction once;
	// the retry must land the row without surfacing the conflict.
	conflicts := failAllocationInserts(t, db, 1)

	orgID := node.Generate()
	footprintID := node.Generate()
	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, node.Generate(), 0.6, 2.0))
	assert.Equal(t, 1, *conflicts)

	allocations, err := svc.List(context.Background(), orgID, footprintID)
	assert.NoError(t, err)
	assert.Len(t, allocations, 1)
	assert.InDelta(t, 0.6, allocations[0].ProductionShare, 1e-9)
}

func TestUpsert_GivesUpAfterRepeatedConflicts(t *testing.T) {
	svc, node, db := newAllocationService(t)

	conflicts := failAllocationInserts(t, db, 1000)

	err := upsertShare(t, svc, node.Generate(), node.Generate(), node.Generate(), 0.6, 2.0)
	assert.Error(t, err)
	assert.True(t, pkgdb.IsRetryableTxErr(err))
	assert.Equal(t, maxUpsertAttempts, *conflicts)
}

func TestCompleteness_IncompleteBelowBand(t *testing.T) {
	svc, node, _ := newAllocationService(t)

	orgID := node.Generate()
	footprintID := node.Generate()

	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, node.Generate(), 0.5, 0))

	completeness, err := svc.Completeness(context.Background(), orgID, footprintID)
	assert.NoError(t, err)
	assert.False(t, completeness.Complete)
	assert.InDelta(t, 0.5, completeness.TotalShare, 1e-9)
}

func TestWeightedAverageIntensity(t *testing.T) {
	svc, node, _ := newAllocationService(t)

	orgID := node.Generate()
	footprintID := node.Generate()

	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, node.Generate(), 0.6, 2.0))
	assert.NoError(t, upsertShare(t, svc, orgID, footprintID, node.Generate(), 0.4, 5.0))

	intensity, err := svc.WeightedAverageIntensity(context.Background(), orgID, footprintID)
	assert.NoError(t, err)
	// 0.6*2.0 + 0.4*5.0
	assert.InDelta(t, 3.2, intensity, 1e-9)
}
