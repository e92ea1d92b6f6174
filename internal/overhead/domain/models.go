// Package domain contains persistence models for corporate overhead entries.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Category is the Scope 3 overhead category of an entry.
type Category string

const (
	CategoryBusinessTravel      Category = "business_travel"
	CategoryPurchasedServices   Category = "purchased_services"
	CategoryEmployeeCommuting   Category = "employee_commuting"
	CategoryCapitalGoods        Category = "capital_goods"
	CategoryOperationalWaste    Category = "operational_waste"
	CategoryDownstreamLogistics Category = "downstream_logistics"
	CategoryUpstreamTransport   Category = "upstream_transport"
	CategoryDownstreamTransport Category = "downstream_transport"
	CategoryUsePhase            Category = "use_phase"
)

// Categories lists every overhead category once, in reporting order.
var Categories = []Category{
	CategoryBusinessTravel,
	CategoryPurchasedServices,
	CategoryEmployeeCommuting,
	CategoryCapitalGoods,
	CategoryOperationalWaste,
	CategoryDownstreamLogistics,
	CategoryUpstreamTransport,
	CategoryDownstreamTransport,
	CategoryUsePhase,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// CorporateOverheadEntry is one precomputed overhead emission belonging to a
// corporate report. A purchased_services entry carrying a material type is
// the marketing-materials variant and is bucketed separately.
type CorporateOverheadEntry struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	OrgID        snowflake.ID `gorm:"not null;index"`
	ReportID     snowflake.ID `gorm:"not null;index"`
	Category     Category     `gorm:"type:text;not null"`
	MaterialType *string      `gorm:"type:text"`
	CO2eKg       float64      `gorm:"column:co2e_kg;not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CorporateOverheadEntry) TableName() string { return "corporate_overhead_entries" }

// IsMarketingMaterials reports whether the entry is the marketing-materials
// variant of purchased_services.
func (e CorporateOverheadEntry) IsMarketingMaterials() bool {
	return e.Category == CategoryPurchasedServices && e.MaterialType != nil && *e.MaterialType != ""
}
