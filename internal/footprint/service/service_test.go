package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	footprintdomain "github.com/carbontrail/carbontrail/internal/footprint/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newFootprintService(t *testing.T) (footprintdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&footprintdomain.ProductFootprint{})
	assert.NoError(t, err)

	node, _ := snowflake.NewNode(1)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	return svc, db, node
}

func TestCreate_ValidatesReferenceYear(t *testing.T) {
	svc, _, node := newFootprintService(t)

	for _, year := range []int{1999, 2101, 0, -5} {
		err := svc.Create(context.Background(), &footprintdomain.ProductFootprint{
			OrgID:          node.Generate(),
			ProductID:      node.Generate(),
			ReferenceYear:  year,
			TotalPerUnitKg: 10,
		})
		assert.ErrorIs(t, err, footprintdomain.ErrInvalidReferenceYear, "year %d", year)
	}
}

func TestCreate_RejectsNegativeBreakdown(t *testing.T) {
	svc, _, node := newFootprintService(t)

	err := svc.Create(context.Background(), &footprintdomain.ProductFootprint{
		OrgID:           node.Generate(),
		ProductID:       node.Generate(),
		ReferenceYear:   2025,
		TotalPerUnitKg:  10,
		Scope3PerUnitKg: -1,
	})
	assert.ErrorIs(t, err, footprintdomain.ErrInvalidBreakdown)
}

func TestCreate_DefaultsToDraft(t *testing.T) {
	svc, _, node := newFootprintService(t)

	footprint := &footprintdomain.ProductFootprint{
		OrgID:          node.Generate(),
		ProductID:      node.Generate(),
		ReferenceYear:  2025,
		TotalPerUnitKg: 10,
	}
	err := svc.Create(context.Background(), footprint)
	assert.NoError(t, err)
	assert.Equal(t, footprintdomain.StatusDraft, footprint.Status)
	assert.NotZero(t, footprint.ID)
}

func TestLatestCompleted_NewestWins(t *testing.T) {
	svc, db, node := newFootprintService(t)

	orgID := node.Generate()
	productID := node.Generate()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	db.Create(&footprintdomain.ProductFootprint{
		ID:              node.Generate(),
		OrgID:           orgID,
		ProductID:       productID,
		Status:          footprintdomain.StatusCompleted,
		ReferenceYear:   2024,
		TotalPerUnitKg:  12,
		Scope3PerUnitKg: 4,
		CreatedAt:       base,
	})
	db.Create(&footprintdomain.ProductFootprint{
		ID:              node.Generate(),
		OrgID:           orgID,
		ProductID:       productID,
		Status:          footprintdomain.StatusCompleted,
		ReferenceYear:   2025,
		TotalPerUnitKg:  15,
		Scope3PerUnitKg: 5,
		CreatedAt:       base.Add(48 * time.Hour),
	})
	// Newer but still draft, must not win.
	db.Create(&footprintdomain.ProductFootprint{
		ID:              node.Generate(),
		OrgID:           orgID,
		ProductID:       productID,
		Status:          footprintdomain.StatusDraft,
		ReferenceYear:   2025,
		TotalPerUnitKg:  99,
		Scope3PerUnitKg: 90,
		CreatedAt:       base.Add(72 * time.Hour),
	})

	footprint, err := svc.LatestCompleted(context.Background(), orgID, productID)
	assert.NoError(t, err)
	assert.NotNil(t, footprint)
	assert.Equal(t, float64(15), footprint.TotalPerUnitKg)
	assert.Equal(t, float64(5), footprint.Scope3PerUnitKg)
}

func TestLatestCompleted_NoneIsNil(t *testing.T) {
	svc, _, node := newFootprintService(t)

	footprint, err := svc.LatestCompleted(context.Background(), node.Generate(), node.Generate())
	assert.NoError(t, err)
	assert.Nil(t, footprint)
}

func TestLatestCompleted_ZeroTotalIsNoData(t *testing.T) {
	svc, db, node := newFootprintService(t)

	orgID := node.Generate()
	productID := node.Generate()

	db.Create(&footprintdomain.ProductFootprint{
		ID:            node.Generate(),
		OrgID:         orgID,
		ProductID:     productID,
		Status:        footprintdomain.StatusCompleted,
		ReferenceYear: 2025,
		CreatedAt:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	footprint, err := svc.LatestCompleted(context.Background(), orgID, productID)
	assert.NoError(t, err)
	assert.Nil(t, footprint)
}
