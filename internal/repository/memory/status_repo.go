// Package memory is a single-process StatusRepository. It offers the same
// per-record atomicity as the postgres backend but only within one process,
// so it backs development mode and tests, never a multi-instance deployment.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vedran77/statusd/internal/domain"
	"github.com/vedran77/statusd/internal/repository"
)

var errDuplicateID = errors.New("memory: duplicate status id")

type StatusRepo struct {
	mu       sync.RWMutex
	statuses map[string]*domain.Status
}

func NewStatusRepo() *StatusRepo {
	return &StatusRepo{statuses: make(map[string]*domain.Status)}
}

func (r *StatusRepo) Create(ctx context.Context, st *domain.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.statuses[st.ID]; exists {
		return errDuplicateID
	}
	cp := *st
	r.statuses[st.ID] = &cp
	return nil
}

func (r *StatusRepo) GetByID(ctx context.Context, id string) (*domain.StatusPublic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.statuses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	pub, live := st.Public()
	if !live {
		return nil, repository.ErrNotFound
	}
	return &pub, nil
}

func (r *StatusRepo) Update(ctx context.Context, id, body string, expectedModified *time.Time, now time.Time) (*domain.StatusPublic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.statuses[id]
	if !ok || st.IsDeleted() {
		return nil, repository.ErrNotFound
	}
	if expectedModified != nil && !expectedModified.Equal(st.Modified) {
		return nil, repository.ErrConflict
	}

	next := st.Modified.Add(repository.Tick)
	if now.After(next) {
		next = now
	}
	st.Body = body
	st.Modified = next

	pub, _ := st.Public()
	return &pub, nil
}

func (r *StatusRepo) SoftDelete(ctx context.Context, id string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.statuses[id]
	if !ok || st.IsDeleted() {
		return repository.ErrNotFound
	}
	deleted := now
	st.Deleted = &deleted
	return nil
}

// ListLive keeps at most limit candidates while scanning, in page order.
func (r *StatusRepo) ListLive(ctx context.Context, after *domain.Cursor, limit int) ([]domain.StatusPublic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []domain.StatusPublic{}, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	page := make([]domain.StatusPublic, 0, limit+1)
	for _, st := range r.statuses {
		pub, ok := st.Public()
		if !ok {
			continue
		}
		if after != nil && !after.Precedes(pub) {
			continue
		}
		i := sort.Search(len(page), func(i int) bool { return domain.Less(pub, page[i]) })
		if i >= limit {
			continue
		}
		page = append(page, domain.StatusPublic{})
		copy(page[i+1:], page[i:])
		page[i] = pub
		if len(page) > limit {
			page = page[:limit]
		}
	}
	return page, nil
}

func (r *StatusRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}
