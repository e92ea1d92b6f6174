// Package domain contains persistence models for production-mix allocations.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DataSourceType records where a facility's intensity figure came from.
type DataSourceType string

const (
	SourcePrimary          DataSourceType = "primary"
	SourceSecondaryAverage DataSourceType = "secondary_average"
)

// ProductionMixAllocation distributes a product footprint across the
// facilities that manufacture it. Shares for one footprint must sum to 1.0
// within ShareTolerance; the (footprint, facility) pair is unique.
type ProductionMixAllocation struct {
	ID                snowflake.ID   `gorm:"primaryKey"`
	OrgID             snowflake.ID   `gorm:"not null;index"`
	FootprintID       snowflake.ID   `gorm:"not null;uniqueIndex:idx_allocation_footprint_facility"`
	FacilityID        snowflake.ID   `gorm:"not null;uniqueIndex:idx_allocation_footprint_facility"`
	ProductionShare   float64        `gorm:"not null"`
	FacilityIntensity float64        `gorm:"not null;default:0"`
	DataSourceType    DataSourceType `gorm:"type:text;not null;default:'primary'"`
	CreatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ProductionMixAllocation) TableName() string { return "production_mix_allocations" }
