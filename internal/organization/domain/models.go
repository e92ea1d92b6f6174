// Package domain contains persistence models for reporting organizations.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Organization is the reporting entity all source records hang off.
type Organization struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }
