package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	footprintdomain "github.com/carbontrail/carbontrail/internal/footprint/domain"
	"github.com/carbontrail/carbontrail/pkg/db/option"
	"github.com/carbontrail/carbontrail/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	log *zap.Logger

	genID      *snowflake.Node
	footprints repository.Repository[footprintdomain.ProductFootprint]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) footprintdomain.Service {
	return &Service{
		log:        p.Log.Named("footprint.service"),
		genID:      p.GenID,
		footprints: repository.ProvideStore[footprintdomain.ProductFootprint](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, footprint *footprintdomain.ProductFootprint) error {
	if footprint.ProductID == 0 || footprint.OrgID == 0 {
		return footprintdomain.ErrInvalidProduct
	}
	if footprint.ReferenceYear < footprintdomain.MinReferenceYear ||
		footprint.ReferenceYear > footprintdomain.MaxReferenceYear {
		return footprintdomain.ErrInvalidReferenceYear
	}
	switch footprint.Status {
	case footprintdomain.StatusDraft, footprintdomain.StatusCompleted:
	case "":
		footprint.Status = footprintdomain.StatusDraft
	default:
		return footprintdomain.ErrInvalidStatus
	}
	if footprint.TotalPerUnitKg < 0 ||
		footprint.Scope1PerUnitKg < 0 ||
		footprint.Scope2PerUnitKg < 0 ||
		footprint.Scope3PerUnitKg < 0 {
		return footprintdomain.ErrInvalidBreakdown
	}

	if footprint.ID == 0 {
		footprint.ID = s.genID.Generate()
	}

	return s.footprints.Create(ctx, footprint)
}

// LatestCompleted resolves the authoritative footprint for a product. The
// newest completed record wins; a record with a non-positive per-unit total
// counts as no data.
func (s *Service) LatestCompleted(ctx context.Context, orgID, productID snowflake.ID) (*footprintdomain.ProductFootprint, error) {
	footprint, err := s.footprints.FindOne(ctx, &footprintdomain.ProductFootprint{
		OrgID:     orgID,
		ProductID: productID,
		Status:    footprintdomain.StatusCompleted,
	}, option.WithOrderBy("created_at DESC, id DESC"))
	if err != nil {
		return nil, err
	}
	if footprint == nil || footprint.TotalPerUnitKg <= 0 {
		return nil, nil
	}
	return footprint, nil
}
