package domain

import (
	"context"

	facilitydomain "github.com/carbontrail/carbontrail/internal/facility/domain"
)

// ResolvedFactor is a factor normalized to the caller's unit: multiplying it
// by the recorded quantity yields kg CO2e.
type ResolvedFactor struct {
	KgPerUnit float64
	Scope     facilitydomain.ScopeTag
}

// Service resolves emission factors for activity records. Resolve never
// guesses: a missing factor or an unconvertible unit yields (nil, nil) and the
// caller treats that record as a zero contribution.
type Service interface {
	Resolve(ctx context.Context, activityType, unit string) (*ResolvedFactor, error)
}
