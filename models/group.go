package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Group status values
const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Contribution frequencies
const (
	FrequencyWeekly   = "weekly"
	FrequencyBiWeekly = "bi-weekly"
	FrequencyMonthly  = "monthly"
)

// Reception status values (per member, per cycle)
const (
	ReceptionPending  = "pending"
	ReceptionReceived = "received"
)

// ReceptionMap maps a member ID to their reception status for the cycle.
// Stored as a jsonb column.
type ReceptionMap map[string]string

func (m ReceptionMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *ReceptionMap) Scan(value interface{}) error {
	if value == nil {
		*m = ReceptionMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for ReceptionMap")
	}
	return json.Unmarshal(data, m)
}

// ReceivedCount returns how many members have confirmed reception.
func (m ReceptionMap) ReceivedCount() int {
	count := 0
	for _, status := range m {
		if status == ReceptionReceived {
			count++
		}
	}
	return count
}

type Group struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"not null;size:100" json:"name"`
	Contribution    float64        `gorm:"type:decimal(12,2);not null" json:"contribution"`
	Frequency       string         `gorm:"not null;size:20" json:"frequency"` // weekly, bi-weekly, monthly
	MaxMembers      int            `gorm:"not null" json:"max_members"`
	TotalRounds     int            `gorm:"not null" json:"total_rounds"`
	Members         pq.StringArray `gorm:"type:text[]" json:"members"`
	AdminID         uuid.UUID      `gorm:"type:uuid" json:"admin_id"`
	InviteCode      string         `gorm:"uniqueIndex;not null;size:12" json:"invite_code"`
	StartDate       time.Time      `gorm:"type:date" json:"start_date"`
	TurnOrder       pq.StringArray `gorm:"type:text[]" json:"turn_order"`
	ReceptionStatus ReceptionMap   `gorm:"type:jsonb;default:'{}'" json:"reception_status"`
	Status          string         `gorm:"not null;size:20;default:waiting" json:"status"`
	Version         int            `gorm:"not null;default:1" json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Clone returns a deep copy so the rotation engine can build a new state
// without mutating the record read from the store.
func (g *Group) Clone() *Group {
	dup := *g
	dup.Members = append(pq.StringArray{}, g.Members...)
	dup.TurnOrder = append(pq.StringArray{}, g.TurnOrder...)
	dup.ReceptionStatus = make(ReceptionMap, len(g.ReceptionStatus))
	for k, v := range g.ReceptionStatus {
		dup.ReceptionStatus[k] = v
	}
	return &dup
}

// HasMember reports whether memberID is part of the group.
func (g *Group) HasMember(memberID string) bool {
	for _, id := range g.Members {
		if id == memberID {
			return true
		}
	}
	return false
}

// ReceivedCount is the number of completed rounds in the cycle.
func (g *Group) ReceivedCount() int {
	return g.ReceptionStatus.ReceivedCount()
}

// Request structs
type CreateGroupRequest struct {
	Name         string  `json:"name" binding:"required,min=3"`
	Contribution float64 `json:"contribution" binding:"required,gt=0"`
	Frequency    string  `json:"frequency" binding:"required,oneof=weekly bi-weekly monthly"`
	MaxMembers   int     `json:"max_members" binding:"required,min=2"`
	StartDate    string  `json:"start_date"` // YYYY-MM-DD, defaults to today
}

type JoinGroupRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

type GiveTurnRequest struct {
	ToMemberID string `json:"to_member_id" binding:"required"`
}

// Response structs
type GroupResponse struct {
	ID                 uuid.UUID             `json:"id"`
	Name               string                `json:"name"`
	Contribution       float64               `json:"contribution"`
	Frequency          string                `json:"frequency"`
	MaxMembers         int                   `json:"max_members"`
	TotalRounds        int                   `json:"total_rounds"`
	Status             string                `json:"status"`
	AdminID            uuid.UUID             `json:"admin_id"`
	InviteCode         string                `json:"invite_code,omitempty"`
	StartDate          time.Time             `json:"start_date"`
	CurrentRound       int                   `json:"current_round"`
	CurrentBeneficiary *GroupMemberResponse  `json:"current_beneficiary,omitempty"`
	TotalPot           float64               `json:"total_pot"`
	FinalReceptionDate *time.Time            `json:"final_reception_date,omitempty"`
	Members            []GroupMemberResponse `json:"members"`
	CreatedAt          time.Time             `json:"created_at"`
}

type GroupMemberResponse struct {
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role"` // admin, member
	TurnPosition    int    `json:"turn_position,omitempty"`
	ReceptionStatus string `json:"reception_status,omitempty"`
}

type ScheduleEntry struct {
	Round           int       `json:"round"`
	BeneficiaryID   string    `json:"beneficiary_id"`
	BeneficiaryName string    `json:"beneficiary_name"`
	Date            time.Time `json:"date"`
	Received        bool      `json:"received"`
}
