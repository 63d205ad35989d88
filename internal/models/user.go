package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account that owns transactions and analyses.
type User struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	Name     string `gorm:"type:varchar(120);not null"`             // Display name.
	Email    string `gorm:"type:varchar(255);not null;uniqueIndex"` // Unique login email.
	Password string `gorm:"type:varchar(255);not null"`             // Hashed password.

	HasSubscription   bool      `gorm:"not null;default:false"` // Paid plan; analysis quota does not apply.
	AIAnalysisCount   int       `gorm:"not null;default:0"`     // Analyses consumed in the current window.
	LastAnalysisReset time.Time `gorm:"not null"`               // Start of the current quota window.
	AnalysisWindow    int64     `gorm:"not null;default:0"`     // Generation counter, bumped on every window reset.

	Transactions []Transaction `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"` // Owned transactions.
	Analyses     []Analysis    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"` // Owned analyses.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// BeforeCreate assigns an ID and opens the first quota window.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.LastAnalysisReset.IsZero() {
		u.LastAnalysisReset = time.Now().UTC()
	}
	return nil
}
