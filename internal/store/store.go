// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"bess-trader/internal/models"
)

// SessionStore defines the persistence interface for pipeline sessions.
type SessionStore interface {
	// SaveSession inserts or replaces a session record.
	SaveSession(ctx context.Context, rec *models.SessionRecord) error
	// GetSessions retrieves sessions matching the filter, newest first.
	GetSessions(ctx context.Context, filter SessionFilter) ([]models.SessionRecord, error)
	// GetSessionByID retrieves one session. Returns ErrSessionNotFound
	// when no row matches.
	GetSessionByID(ctx context.Context, id string) (*models.SessionRecord, error)
	// CountSessions returns the total number of stored sessions.
	CountSessions(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

// SessionFilter represents filters for querying sessions.
type SessionFilter struct {
	Symbol string
	Since  time.Time
	Limit  int
}
