package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/carbontrail/carbontrail/internal/allocation/domain"
	pkgdb "github.com/carbontrail/carbontrail/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxUpsertAttempts bounds retries when serializable transactions collide on
// the same footprint's shares.
const maxUpsertAttempts = 3

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) allocationdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("allocation.service"),
		genID: p.GenID,
	}
}

func (s *Service) Upsert(ctx context.Context, allocation *allocationdomain.ProductionMixAllocation) error {
	if allocation.FootprintID == 0 || allocation.OrgID == 0 {
		return allocationdomain.ErrInvalidFootprint
	}
	if allocation.FacilityID == 0 {
		return allocationdomain.ErrInvalidFacility
	}
	if allocation.ProductionShare < 0 || allocation.ProductionShare > 1 {
		return allocationdomain.ErrInvalidShare
	}
	switch allocation.DataSourceType {
	case allocationdomain.SourcePrimary, allocationdomain.SourceSecondaryAverage:
	case "":
		allocation.DataSourceType = allocationdomain.SourcePrimary
	default:
		return allocationdomain.ErrInvalidSource
	}

	now := time.Now().UTC()

	var err error
	for attempt := 1; attempt <= maxUpsertAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.upsertTx(tx, allocation, now)
		}, s.shareTxOptions())
		if !pkgdb.IsRetryableTxErr(err) {
			return err
		}
		s.log.Debug("retrying allocation upsert after transaction conflict",
			zap.Int("attempt", attempt),
			zap.String("footprint_id", allocation.FootprintID.String()),
		)
	}
	return err
}

// upsertTx sums the other facilities' shares and writes the row. The caller
// runs it at serializable isolation: under read committed two concurrent
// writers for the same footprint would each sum a snapshot excluding the
// other's uncommitted row and both pass the tolerance check. At serializable
// the losing writer fails with a serialization error and is retried.
func (s *Service) upsertTx(tx *gorm.DB, allocation *allocationdomain.ProductionMixAllocation, now time.Time) error {
	var otherShares float64
	err := tx.Raw(
		`SELECT COALESCE(SUM(production_share), 0)
		 FROM production_mix_allocations
		 WHERE org_id = ? AND footprint_id = ? AND facility_id <> ?`,
		allocation.OrgID,
		allocation.FootprintID,
		allocation.FacilityID,
	).Scan(&otherShares).Error
	if err != nil {
		return err
	}

	prospective := otherShares + allocation.ProductionShare
	if prospective > 1.0+allocationdomain.ShareTolerance {
		s.log.Warn("allocation rejected",
			zap.String("footprint_id", allocation.FootprintID.String()),
			zap.Float64("prospective_total", prospective),
		)
		return &allocationdomain.ShareSumError{ProspectiveTotal: prospective}
	}

	if allocation.ID == 0 {
		allocation.ID = s.genID.Generate()
	}

	return tx.Exec(
		`INSERT INTO production_mix_allocations (
			id, org_id, footprint_id, facility_id,
			production_share, facility_intensity, data_source_type,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (footprint_id, facility_id) DO UPDATE SET
			production_share = excluded.production_share,
			facility_intensity = excluded.facility_intensity,
			data_source_type = excluded.data_source_type,
			updated_at = excluded.updated_at`,
		allocation.ID,
		allocation.OrgID,
		allocation.FootprintID,
		allocation.FacilityID,
		allocation.ProductionShare,
		allocation.FacilityIntensity,
		allocation.DataSourceType,
		now,
		now,
	).Error
}

// shareTxOptions requests serializable isolation for the share-sum guard.
// sqlite writers already serialize, so the default isolation is kept there.
func (s *Service) shareTxOptions() *sql.TxOptions {
	if s.db.Dialector.Name() == "sqlite" {
		return &sql.TxOptions{}
	}
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

func (s *Service) List(ctx context.Context, orgID, footprintID snowflake.ID) ([]allocationdomain.ProductionMixAllocation, error) {
	var allocations []allocationdomain.ProductionMixAllocation
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND footprint_id = ?", orgID, footprintID).
		Order("facility_id ASC").
		Find(&allocations).Error
	return allocations, err
}

func (s *Service) Completeness(ctx context.Context, orgID, footprintID snowflake.ID) (allocationdomain.Completeness, error) {
	total, err := s.sumShares(ctx, orgID, footprintID)
	if err != nil {
		return allocationdomain.Completeness{}, err
	}
	return allocationdomain.Completeness{
		FootprintID: footprintID,
		Complete:    total >= 1.0-allocationdomain.ShareTolerance && total <= 1.0+allocationdomain.ShareTolerance,
		TotalShare:  total,
	}, nil
}

func (s *Service) WeightedAverageIntensity(ctx context.Context, orgID, footprintID snowflake.ID) (float64, error) {
	var weighted float64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(facility_intensity * production_share), 0)
		 FROM production_mix_allocations
		 WHERE org_id = ? AND footprint_id = ?`,
		orgID,
		footprintID,
	).Scan(&weighted).Error
	return weighted, err
}

func (s *Service) sumShares(ctx context.Context, orgID, footprintID snowflake.ID) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(production_share), 0)
		 FROM production_mix_allocations
		 WHERE org_id = ? AND footprint_id = ?`,
		orgID,
		footprintID,
	).Scan(&total).Error
	return total, err
}
