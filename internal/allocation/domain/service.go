package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// ShareTolerance is the accounting-precision policy for production shares: a
// footprint's shares are complete when they sum to 1.0 within this band, and a
// write is rejected when the prospective sum exceeds 1.0 by more than it.
const ShareTolerance = 0.0001

// Completeness describes the current allocation state of one footprint.
type Completeness struct {
	FootprintID snowflake.ID `json:"footprint_id"`
	Complete    bool         `json:"complete"`
	TotalShare  float64      `json:"total_share"`
}

type Service interface {
	// Upsert writes one allocation row, enforcing that shares for the
	// footprint never exceed 100% plus tolerance. The check and the write
	// happen in one transaction so concurrent inserts cannot jointly
	// overshoot.
	Upsert(ctx context.Context, allocation *ProductionMixAllocation) error
	// List returns all allocations for a footprint.
	List(ctx context.Context, orgID, footprintID snowflake.ID) ([]ProductionMixAllocation, error)
	// Completeness reports whether the footprint's shares sum to 1.0 within
	// tolerance, along with the current sum.
	Completeness(ctx context.Context, orgID, footprintID snowflake.ID) (Completeness, error)
	// WeightedAverageIntensity returns the production-share-weighted facility
	// intensity for the footprint. Consumed by the footprint producer, not by
	// the aggregation itself.
	WeightedAverageIntensity(ctx context.Context, orgID, footprintID snowflake.ID) (float64, error)
}

var (
	ErrInvalidShare     = errors.New("invalid_production_share")
	ErrInvalidFootprint = errors.New("invalid_footprint")
	ErrInvalidFacility  = errors.New("invalid_facility")
	ErrInvalidSource    = errors.New("invalid_data_source_type")
)

// ShareSumError rejects a write whose prospective share total exceeds 100%.
// It carries the offending total so the caller can surface it.
type ShareSumError struct {
	ProspectiveTotal float64
}

func (e *ShareSumError) Error() string {
	return fmt.Sprintf("production shares would total %.6f, exceeding 1.0", e.ProspectiveTotal)
}
