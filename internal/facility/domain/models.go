// Package domain contains persistence models for facilities and their
// utility/fuel consumption records.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OperationalControl distinguishes owned sites from third-party ones.
type OperationalControl string

const (
	ControlOwned      OperationalControl = "owned"
	ControlThirdParty OperationalControl = "third_party"
)

// ScopeTag is the resolved GHG Protocol scope of an activity entry.
type ScopeTag string

const (
	ScopeOne ScopeTag = "scope_1"
	ScopeTwo ScopeTag = "scope_2"
)

// Facility is a physical site. Facilities are soft-archived, never deleted,
// because historical activity entries keep referencing them.
type Facility struct {
	ID                 snowflake.ID       `gorm:"primaryKey"`
	OrgID              snowflake.ID       `gorm:"not null;index"`
	Name               string             `gorm:"type:text;not null"`
	OperationalControl OperationalControl `gorm:"type:text;not null;default:'owned'"`
	ArchivedAt         *time.Time         `gorm:"index"`
	CreatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Facility) TableName() string { return "facilities" }

// ActivityEntry is one utility or fuel consumption record. Entries are
// append-only once a report has been calculated against them.
type ActivityEntry struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	OrgID        snowflake.ID `gorm:"not null;index"`
	FacilityID   snowflake.ID `gorm:"not null;index"`
	ActivityType string       `gorm:"type:text;not null"`
	Quantity     float64      `gorm:"not null"`
	Unit         string       `gorm:"type:text;not null"`
	PeriodStart  time.Time    `gorm:"not null;index"`
	PeriodEnd    time.Time    `gorm:"not null"`
	Scope        ScopeTag     `gorm:"type:text;not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ActivityEntry) TableName() string { return "activity_entries" }
