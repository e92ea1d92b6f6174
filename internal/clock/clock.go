// Package clock abstracts time for deterministic tests.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Module provides the system clock.
var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)

// Clock yields the current time in UTC.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystemClock returns the wall clock.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
