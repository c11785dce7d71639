package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKey is an issued credential. Only the SHA-256 fingerprint of the secret is stored.
type APIKey struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	KeyHash    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	Label      string     `gorm:"type:varchar(255);not null" json:"label"`
	PlanID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"plan_id"`
	Plan       *Plan      `gorm:"foreignKey:PlanID;constraint:OnDelete:RESTRICT" json:"-"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

func (a *APIKey) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (APIKey) TableName() string {
	return "api_keys"
}
