// Package domain contains the emission factor reference model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	facilitydomain "github.com/carbontrail/carbontrail/internal/facility/domain"
)

// EmissionFactor is read-only reference data mapping one activity type to a
// kg CO2e value per unit. Factors are consumed as given, never curated here.
type EmissionFactor struct {
	ID           snowflake.ID            `gorm:"primaryKey"`
	ActivityType string                  `gorm:"type:text;not null;uniqueIndex"`
	Value        float64                 `gorm:"not null"`
	Unit         string                  `gorm:"type:text;not null"`
	Scope        facilitydomain.ScopeTag `gorm:"type:text;not null"`
	CreatedAt    time.Time               `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EmissionFactor) TableName() string { return "emission_factors" }
