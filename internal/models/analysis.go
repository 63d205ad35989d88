package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Analysis stores one generated financial analysis for a user.
type Analysis struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	UserID string `gorm:"type:varchar(36);not null;index"` // Owner user ID.

	Summary          string                      `gorm:"type:text;not null"` // Overall summary.
	PositivePoint    string                      `gorm:"type:text;not null"` // Something the user is doing well.
	AttentionPoint   string                      `gorm:"type:text;not null"` // Something that needs care.
	PatternsDetected datatypes.JSONSlice[string] `gorm:"type:json"`          // Up to three spending patterns.
	Advice           datatypes.JSONSlice[string] `gorm:"type:json"`          // Ordered advice items.
	EmergencyPlan    datatypes.JSONSlice[string] `gorm:"type:json"`          // Up to four emergency steps.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// BeforeCreate assigns a UUID when none is set.
func (a *Analysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
