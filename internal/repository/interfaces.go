package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vedran77/statusd/internal/domain"
)

var (
	// ErrNotFound means no live status has the given id.
	ErrNotFound = errors.New("status not found")
	// ErrConflict means the live status was modified after the caller's
	// expected modified time.
	ErrConflict = errors.New("status modified concurrently")
)

// StatusRepository is the persistent backend for statuses. Every method is
// atomic with respect to a single record and must be safe for concurrent use
// from many goroutines and processes.
type StatusRepository interface {
	Create(ctx context.Context, status *domain.Status) error
	// GetByID returns ErrNotFound for absent and tombstoned ids alike.
	GetByID(ctx context.Context, id string) (*domain.StatusPublic, error)
	// Update replaces the body of a live status. When expectedModified is
	// non-nil the write happens only if it equals the stored modified time,
	// otherwise ErrConflict. The new modified time is max(now, modified+1µs).
	Update(ctx context.Context, id, body string, expectedModified *time.Time, now time.Time) (*domain.StatusPublic, error)
	// SoftDelete tombstones a live status. ErrNotFound if already gone.
	SoftDelete(ctx context.Context, id string, now time.Time) error
	// ListLive returns up to limit live statuses ordered created DESC, id ASC,
	// starting strictly after the cursor when one is given.
	ListLive(ctx context.Context, after *domain.Cursor, limit int) ([]domain.StatusPublic, error)
	Ping(ctx context.Context) error
}

// Tick is the smallest step the backend can represent. Timestamps are
// truncated to it and modified times advance by at least one tick.
const Tick = time.Microsecond
