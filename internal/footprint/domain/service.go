package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Create validates and stores a footprint record.
	Create(ctx context.Context, footprint *ProductFootprint) error
	// LatestCompleted returns the newest completed footprint for a product,
	// or nil when none exists or its per-unit total is not positive. Callers
	// treat nil as "no data", never as an error.
	LatestCompleted(ctx context.Context, orgID, productID snowflake.ID) (*ProductFootprint, error)
}

var (
	ErrInvalidReferenceYear = errors.New("invalid_reference_year")
	ErrInvalidBreakdown     = errors.New("invalid_breakdown")
	ErrInvalidProduct       = errors.New("invalid_product")
	ErrInvalidStatus        = errors.New("invalid_status")
)
