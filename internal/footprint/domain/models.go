// Package domain contains persistence models for per-unit product lifecycle
// footprints.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the lifecycle state of a footprint record.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
)

// Reference years outside this band are rejected: a footprint must anchor to
// a plausible operational period so facility data and production volumes from
// different years are never mixed.
const (
	MinReferenceYear = 2000
	MaxReferenceYear = 2100
)

// ProductFootprint is a per-functional-unit lifecycle record. Only the newest
// completed record per product is authoritative. The per-scope breakdown is
// the double-counting guard: corporate Scope 3 may only ever sum
// Scope3PerUnitKg, because the scope 1/2 sub-totals are facility emissions
// already captured by the facility aggregation.
type ProductFootprint struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	OrgID           snowflake.ID `gorm:"not null;index"`
	ProductID       snowflake.ID `gorm:"not null;index"`
	Status          Status       `gorm:"type:text;not null;default:'draft'"`
	ReferenceYear   int          `gorm:"not null"`
	TotalPerUnitKg  float64      `gorm:"not null"`
	Scope1PerUnitKg float64      `gorm:"not null;default:0"`
	Scope2PerUnitKg float64      `gorm:"not null;default:0"`
	Scope3PerUnitKg float64      `gorm:"not null;default:0"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ProductFootprint) TableName() string { return "product_footprints" }
