// Package domain contains persistence models for fleet activity.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ScopeClass classifies a fleet record. Fuel combustion is Scope 1, EV
// charging Scope 2, and grey-fleet / business travel falls under Scope 3
// category 6.
type ScopeClass string

const (
	ClassScopeOne  ScopeClass = "scope_1"
	ClassScopeTwo  ScopeClass = "scope_2"
	ClassGreyFleet ScopeClass = "grey_fleet"
)

// FleetActivity is a vehicle-trip record with emissions already expressed in
// tonnes CO2e at source. It is never recomputed from factors.
type FleetActivity struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	OrgID          snowflake.ID `gorm:"not null;index"`
	EmissionsTCO2e float64      `gorm:"column:emissions_tco2e;not null"`
	ScopeClass     ScopeClass   `gorm:"type:text;not null"`
	ActivityDate   time.Time    `gorm:"not null;index"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FleetActivity) TableName() string { return "fleet_activities" }

// KgCO2e converts the stored tonne value to kilograms, the engine's working
// unit.
func (f FleetActivity) KgCO2e() float64 {
	return f.EmissionsTCO2e * 1000
}
