// Package store is the persistence boundary for group records and alerts.
// The rotation engine never sees it; the service layer reads a record,
// applies a pure transition and writes the result back with an optimistic
// version check.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"tontine-backend/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConcurrentModification means another writer committed first.
	// Callers re-read and re-apply.
	ErrConcurrentModification = errors.New("record was modified concurrently")
)

// GroupStore is durable, queryable storage for group records.
type GroupStore interface {
	Create(ctx context.Context, group *models.Group) error
	Read(ctx context.Context, id uuid.UUID) (*models.Group, error)
	// WriteIfUnchanged persists group only if the stored version still
	// matches group.Version, and bumps the version on success.
	WriteIfUnchanged(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id uuid.UUID) error
	ByInviteCode(ctx context.Context, code string) (*models.Group, error)
	ByMember(ctx context.Context, memberID string) ([]models.Group, error)
}

// AlertStore is the append-only inbox log.
type AlertStore interface {
	Append(ctx context.Context, alert *models.Alert) error
	ByGroups(ctx context.Context, groupIDs []uuid.UUID, limit int) ([]models.Alert, error)
}
