// Package domain contains the corporate report projection and the emissions
// result types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the lifecycle state of a corporate report.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
)

// CorporateReport is one (organization, year) projection row. It caches the
// latest aggregation; the source tables stay the durable truth, so the row is
// recomputed wholesale and upserted last-writer-wins, never patched.
type CorporateReport struct {
	ID           snowflake.ID   `gorm:"primaryKey"`
	OrgID        snowflake.ID   `gorm:"not null;uniqueIndex:idx_report_org_year"`
	Year         int            `gorm:"not null;uniqueIndex:idx_report_org_year"`
	Status       Status         `gorm:"type:text;not null;default:'draft'"`
	TotalKg      float64        `gorm:"not null;default:0"`
	Breakdown    datatypes.JSON `gorm:"type:jsonb"`
	CalculatedAt *time.Time
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CorporateReport) TableName() string { return "corporate_reports" }
