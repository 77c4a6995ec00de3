package service

import (
	"context"
	"errors"
	"time"

	"github.com/vedran77/statusd/internal/domain"
	"github.com/vedran77/statusd/internal/idgen"
	"github.com/vedran77/statusd/internal/metrics"
	"github.com/vedran77/statusd/internal/repository"
	"github.com/vedran77/statusd/pkg/validator"
)

// Notifier broadcasts lifecycle events after they are committed. Delivery is
// best effort and never changes the outcome of an operation.
type Notifier interface {
	NotifyCreated(st *domain.StatusPublic)
	NotifyUpdated(st *domain.StatusPublic)
	NotifyDeleted(id string)
}

type Options struct {
	MaxBodyLength   int
	DefaultPageSize int
	MaxPageSize     int

	// Clock and NewID default to time.Now and idgen.New.
	Clock func() time.Time
	NewID idgen.Generator
}

type StatusService struct {
	repo     repository.StatusRepository
	opts     Options
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewStatusService(repo repository.StatusRepository, opts Options) *StatusService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = idgen.New
	}
	if opts.MaxBodyLength <= 0 {
		opts.MaxBodyLength = 500
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	if opts.DefaultPageSize <= 0 || opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = min(50, opts.MaxPageSize)
	}
	return &StatusService{repo: repo, opts: opts}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *StatusService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetMetrics enables per-operation counters (optional dependency).
func (s *StatusService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

type CreateStatusInput struct {
	Body string `json:"body"`
}

type UpdateStatusInput struct {
	Body             string     `json:"body"`
	ExpectedModified *time.Time `json:"expected_modified,omitempty"`
}

type StatusPage struct {
	Statuses   []domain.StatusPublic `json:"statuses"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

func (s *StatusService) Create(ctx context.Context, input CreateStatusInput) (st *domain.StatusPublic, err error) {
	defer s.observe("create", &err)

	if err := s.validateBody(input.Body); err != nil {
		return nil, err
	}

	record := domain.NewStatus(s.opts.NewID(), input.Body, s.now())
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, classify(err)
	}

	pub, _ := record.Public()
	if s.notifier != nil {
		s.notifier.NotifyCreated(&pub)
	}
	return &pub, nil
}

func (s *StatusService) Get(ctx context.Context, id string) (st *domain.StatusPublic, err error) {
	defer s.observe("get", &err)

	if id == "" {
		return nil, ErrStatusNotFound
	}
	st, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoErr(err)
	}
	return st, nil
}

// Update replaces the body of a live status. With ExpectedModified set, the
// write only happens if the stored modified time still matches.
func (s *StatusService) Update(ctx context.Context, id string, input UpdateStatusInput) (st *domain.StatusPublic, err error) {
	defer s.observe("update", &err)

	if err := s.validateBody(input.Body); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrStatusNotFound
	}

	st, err = s.repo.Update(ctx, id, input.Body, input.ExpectedModified, s.now())
	if err != nil {
		return nil, s.mapRepoErr(err)
	}

	if s.notifier != nil {
		s.notifier.NotifyUpdated(st)
	}
	return st, nil
}

func (s *StatusService) Delete(ctx context.Context, id string) (err error) {
	defer s.observe("delete", &err)

	if id == "" {
		return ErrStatusNotFound
	}
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return s.mapRepoErr(err)
	}

	if s.notifier != nil {
		s.notifier.NotifyDeleted(id)
	}
	return nil
}

// List returns one page of live statuses, newest first. An empty cursor starts
// from the top; limit <= 0 selects the default page size.
func (s *StatusService) List(ctx context.Context, cursor string, limit int) (page *StatusPage, err error) {
	defer s.observe("list", &err)

	if limit <= 0 {
		limit = s.opts.DefaultPageSize
	}
	if limit > s.opts.MaxPageSize {
		limit = s.opts.MaxPageSize
	}

	var after *domain.Cursor
	if cursor != "" {
		c, err := domain.DecodeCursor(cursor)
		if err != nil {
			return nil, &ValidationError{Fields: validator.ValidationErrors{"cursor": "Invalid cursor"}}
		}
		after = &c
	}

	// Fetch limit+1 to learn whether another page exists.
	statuses, err := s.repo.ListLive(ctx, after, limit+1)
	if err != nil {
		return nil, classify(err)
	}

	page = &StatusPage{Statuses: statuses}
	if len(statuses) > limit {
		page.Statuses = statuses[:limit]
		page.NextCursor = domain.CursorAfter(page.Statuses[limit-1]).Encode()
	}
	if page.Statuses == nil {
		page.Statuses = []domain.StatusPublic{}
	}
	return page, nil
}

// Ping reports whether the backend is reachable.
func (s *StatusService) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func (s *StatusService) validateBody(body string) error {
	if errs := validator.ValidateStatusBody(body, s.opts.MaxBodyLength); errs.HasErrors() {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (s *StatusService) now() time.Time {
	return s.opts.Clock().UTC().Truncate(repository.Tick)
}

func (s *StatusService) mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrStatusNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	default:
		return classify(err)
	}
}

func (s *StatusService) observe(op string, err *error) {
	s.metrics.ObserveOperation(op, Outcome(*err))
}

// Outcome names the error class of err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrStatusNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
