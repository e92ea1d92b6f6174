// Package domain contains persistence models for products and manufacturing
// runs.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Product is a manufactured good with per-unit lifecycle footprints.
type Product struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }

// ProductionLog records one manufacturing run. UnitsProduced is the discrete
// functional-unit count; Volume is the bulk quantity and must never be used
// for footprint weighting.
type ProductionLog struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	OrgID         snowflake.ID `gorm:"not null;index"`
	ProductID     snowflake.ID `gorm:"not null;index"`
	ProducedAt    time.Time    `gorm:"not null;index"`
	UnitsProduced int64        `gorm:"not null"`
	Volume        float64      `gorm:"not null;default:0"`
	VolumeUnit    string       `gorm:"type:text"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ProductionLog) TableName() string { return "production_logs" }
