package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/statusd/internal/domain"
	"github.com/vedran77/statusd/internal/repository"
)

type StatusRepo struct {
	pool *pgxpool.Pool
}

func NewStatusRepo(pool *pgxpool.Pool) *StatusRepo {
	return &StatusRepo{pool: pool}
}

func (r *StatusRepo) Create(ctx context.Context, st *domain.Status) error {
	query := `
		INSERT INTO statuses (id, body, created, modified, deleted)
		VALUES ($1, $2, $3, $4, NULL)`
	_, err := r.pool.Exec(ctx, query, st.ID, st.Body, st.Created, st.Modified)
	return err
}

func (r *StatusRepo) GetByID(ctx context.Context, id string) (*domain.StatusPublic, error) {
	query := `
		SELECT id, body, created, modified
		FROM statuses
		WHERE id = $1 AND deleted IS NULL`
	st, err := scanStatus(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Update is one conditional statement, so the optimistic check and the write
// cannot interleave with another writer.
func (r *StatusRepo) Update(ctx context.Context, id, body string, expectedModified *time.Time, now time.Time) (*domain.StatusPublic, error) {
	query := `
		UPDATE statuses
		SET body = $2,
			modified = GREATEST($3::timestamptz, modified + interval '1 microsecond')
		WHERE id = $1
			AND deleted IS NULL
			AND ($4::timestamptz IS NULL OR modified = $4::timestamptz)
		RETURNING id, body, created, modified`
	st, err := scanStatus(r.pool.QueryRow(ctx, query, id, body, now, expectedModified))
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Nothing written; work out why.
	var live bool
	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM statuses WHERE id = $1 AND deleted IS NULL)`, id,
	).Scan(&live)
	if err != nil {
		return nil, err
	}
	if live && expectedModified != nil {
		return nil, repository.ErrConflict
	}
	return nil, repository.ErrNotFound
}

func (r *StatusRepo) SoftDelete(ctx context.Context, id string, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE statuses SET deleted = $2 WHERE id = $1 AND deleted IS NULL`, id, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *StatusRepo) ListLive(ctx context.Context, after *domain.Cursor, limit int) ([]domain.StatusPublic, error) {
	var query string
	var args []any

	if after != nil {
		query = `
			SELECT id, body, created, modified
			FROM statuses
			WHERE deleted IS NULL
				AND (created < $1 OR (created = $1 AND id > $2))
			ORDER BY created DESC, id ASC
			LIMIT $3`
		args = []any{after.Created, after.ID, limit}
	} else {
		query = `
			SELECT id, body, created, modified
			FROM statuses
			WHERE deleted IS NULL
			ORDER BY created DESC, id ASC
			LIMIT $1`
		args = []any{limit}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make([]domain.StatusPublic, 0, limit)
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *st)
	}
	return statuses, rows.Err()
}

func (r *StatusRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanStatus(row pgx.Row) (*domain.StatusPublic, error) {
	var st domain.StatusPublic
	if err := row.Scan(&st.ID, &st.Body, &st.Created, &st.Modified); err != nil {
		return nil, err
	}
	st.Created = st.Created.UTC()
	st.Modified = st.Modified.UTC()
	return &st, nil
}
