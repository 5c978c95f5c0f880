// Package directory resolves member IDs to display attributes. It is
// read-only from the rotation flow's perspective.
package directory

import (
	"context"

	"gorm.io/gorm"

	"tontine-backend/models"
)

// Profile is what the notification and response layers need to render a
// member without touching the group record.
type Profile struct {
	DisplayName string
	Email       string
	FCMToken    string
}

// Directory maps member IDs to profiles. Unknown IDs resolve to a
// placeholder profile; a lookup never fails the caller.
type Directory interface {
	Lookup(ctx context.Context, memberIDs []string) map[string]Profile
}

// Placeholder is returned for IDs that no longer resolve to a user.
var Placeholder = Profile{DisplayName: "Unknown member"}

type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) Lookup(ctx context.Context, memberIDs []string) map[string]Profile {
	profiles := make(map[string]Profile, len(memberIDs))
	for _, id := range memberIDs {
		profiles[id] = Placeholder
	}
	if len(memberIDs) == 0 {
		return profiles
	}

	var users []models.User
	if err := d.db.WithContext(ctx).Where("id IN ?", memberIDs).Find(&users).Error; err != nil {
		return profiles
	}
	for _, u := range users {
		profiles[u.ID.String()] = Profile{
			DisplayName: u.Name,
			Email:       u.Email,
			FCMToken:    u.FCMToken,
		}
	}
	return profiles
}
