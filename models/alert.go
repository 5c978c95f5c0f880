package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Alert is one entry in a member's inbox. Alerts are append-only: they are
// written when a rotation event is dispatched and never updated.
type Alert struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID   uuid.UUID `gorm:"type:uuid;index" json:"group_id"`
	GroupName string    `gorm:"-" json:"group_name,omitempty"`
	Type      string    `gorm:"not null;size:30" json:"type"` // group_full, member_joined, payment_confirmed, your_turn, turn_transferred
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
