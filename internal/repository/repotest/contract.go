// Package repotest holds the behavioral contract every StatusRepository
// implementation must satisfy.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/statusd/internal/domain"
	"github.com/vedran77/statusd/internal/repository"
)

// Factory returns an empty repository for a single subtest.
type Factory func(t *testing.T) repository.StatusRepository

func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateThenGet", func(t *testing.T) { testCreateThenGet(t, newRepo(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newRepo(t)) })
	t.Run("UpdateGuarded", func(t *testing.T) { testUpdateGuarded(t, newRepo(t)) })
	t.Run("UpdateUnconditional", func(t *testing.T) { testUpdateUnconditional(t, newRepo(t)) })
	t.Run("UpdateModifiedStrictlyIncreases", func(t *testing.T) { testUpdateMonotonic(t, newRepo(t)) })
	t.Run("UpdateMissingOrDeleted", func(t *testing.T) { testUpdateMissingOrDeleted(t, newRepo(t)) })
	t.Run("SoftDelete", func(t *testing.T) { testSoftDelete(t, newRepo(t)) })
	t.Run("ListOrderAndPaging", func(t *testing.T) { testListPaging(t, newRepo(t)) })
	t.Run("ListSkipsDeletedBetweenPages", func(t *testing.T) { testListDeleteBetweenPages(t, newRepo(t)) })
	t.Run("ConcurrentGuardedUpdates", func(t *testing.T) { testConcurrentGuardedUpdates(t, newRepo(t)) })
	t.Run("CanceledContext", func(t *testing.T) { testCanceledContext(t, newRepo(t)) })
}

func baseTime() time.Time {
	return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
}

func mustCreate(t *testing.T, repo repository.StatusRepository, id, body string, at time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), domain.NewStatus(id, body, at)))
}

func testCreateThenGet(t *testing.T, repo repository.StatusRepository) {
	ctx := context.Background()
	at := baseTime().Add(123 * time.Microsecond)
	mustCreate(t, repo, "s1", "first post", at)

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, "first post", got.Body)
	assert.True(t, got.Created.Equal(at))
	assert.True(t, got.Modified.Equal(got.Created))
}

func testGetMissing(t *testing.T, repo repository.StatusRepository) {
	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testUpdateGuarded(t *testing.T, repo repository.StatusRepository) {
	ctx := context.Background()
	at := baseTime()
	mustCreate(t, repo, "s1", "v1", at)

	first, err := repo.Update(ctx, "s1", "v2", &at, at.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "v2", first.Body)
	assert.True(t, first.Modified.After(at))
	assert.True(t, first.Created.Equal(at), "created must not change")

	_, err = repo.Update(ctx, "s1", "v3", &at, at.Add(2*time.Second))
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Body)
	assert.True(t, got.Modified.Equal(first.Modified))
}

func testUpdateUnconditional(t *testing.T, repo repository.StatusRepository) {
	ctx := context.Background()
	at := baseTime()
	mustCreate(t, repo, "s1", "v1", at)

	got, err := repo.Update(ctx, "s1", "v2", nil, at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Body)
	assert.True(t, got.Modified.Equal(at.Add(time.Minute)))
}

func testUpdateMonotonic(t *testing.T, repo repository.StatusRepository) {
	ctx := context.Background()
	at := baseTime()
	mustCreate(t, repo, "s1", "v1", at)

	// A clock that stands still or runs backwards still yields a newer version.
	first, err := repo.Update(ctx, "s1", "v2", nil, at)
	require.NoError(t, err)
	assert.True(t, first.Modified.After(at))

	second, err := repo.Update(ctx, "s1", "v3", &first.Modified, at.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, second.Modified.After(first.Modified))
	assert.False(t, second.Modified.Before(second.Created))
}

func testUpdateMissingOrDeleted(t *testing.T, repo repository.StatusRepository) {
	ctx := context.Background()
	at := baseTime()

	_, err := repo.Update(ctx, "missing", "x", nil, at)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	mustCreate(t, repo, "s1", "v1", at)
	require.NoError(t, repo.SoftDelete(ctx, "s1", at.Add(time.Second)))

	_, err = repo.Update(ctx, "s1", "x", nil, at.Add(2*time.Second))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Update(ctx, "s1", "x", &at, at.Add(2*time.Second))
	assert.ErrorIs(t, err, repository.ErrNotFound, "tombstones are not-found even with a guard")
}

func testSoftDelete(t *testing.T, repo repository.StatusRepository) {
	ctx := context.Background()
	at := baseTime()
	mustCreate(t, repo, "s1", "v1", at)
	mustCreate(t, repo, "s2", "v2", at.Add(time.Second))

	require.NoError(t, repo.SoftDelete(ctx, "s1", at.Add(time.Minute)))
	assert.ErrorIs(t, repo.SoftDelete(ctx, "s1", at.Add(2*time.Minute)), repository.ErrNotFound)
	assert.ErrorIs(t, repo.SoftDelete(ctx, "missing", at), repository.ErrNotFound)

	_, err := repo.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	page, err := repo.ListLive(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "s2", page[0].ID)
}

func testListPaging(t *testing.T, repo repository.StatusRepository) {
	ctx := context.Background()
	at := baseTime()

	// Three share a created time to exercise the id tie-break.
	mustCreate(t, repo, "c", "tie", at)
	mustCreate(t, repo, "a", "tie", at)
	mustCreate(t, repo, "b", "tie", at)
	mustCreate(t, repo, "old", "older", at.Add(-time.Hour))
	mustCreate(t, repo, "new", "newer", at.Add(time.Hour))
	mustCreate(t, repo, "gone", "deleted", at.Add(2*time.Hour))
	require.NoError(t, repo.SoftDelete(ctx, "gone", at.Add(3*time.Hour)))

	want := []string{"new", "a", "b", "c", "old"}

	all, err := repo.ListLive(ctx, nil, 100)
	require.NoError(t, err)
	assert.Equal(t, want, ids(all))

	for _, size := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			var got []string
			var after *domain.Cursor
			for pages := 0; ; pages++ {
				require.Less(t, pages, 10, "pagination does not terminate")
				page, err := repo.ListLive(ctx, after, size)
				require.NoError(t, err)
				require.LessOrEqual(t, len(page), size)
				got = append(got, ids(page)...)
				if len(page) < size {
					break
				}
				c := domain.CursorAfter(page[len(page)-1])
				after = &c
			}
			assert.Equal(t, want, got)
		})
	}
}

func testListDeleteBetweenPages(t *testing.T, repo repository.StatusRepository) {
	ctx := context.Background()
	at := baseTime()
	for i := 0; i < 4; i++ {
		mustCreate(t, repo, fmt.Sprintf("s%d", i), "body", at.Add(time.Duration(i)*time.Second))
	}

	first, err := repo.ListLive(ctx, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s2"}, ids(first))

	require.NoError(t, repo.SoftDelete(ctx, "s1", at.Add(time.Minute)))

	c := domain.CursorAfter(first[len(first)-1])
	second, err := repo.ListLive(ctx, &c, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"s0"}, ids(second))
}

func testConcurrentGuardedUpdates(t *testing.T, repo repository.StatusRepository) {
	ctx := context.Background()
	at := baseTime()
	mustCreate(t, repo, "s1", "v0", at)

	const writers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Update(ctx, "s1", fmt.Sprintf("v%d", i+1), &at, at.Add(time.Second))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, repository.ErrConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one guarded writer may win")
	assert.Equal(t, writers-1, conflicts)
}

func testCanceledContext(t *testing.T, repo repository.StatusRepository) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Create(ctx, domain.NewStatus("s1", "never", baseTime()))
	require.Error(t, err)

	_, err = repo.GetByID(context.Background(), "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound, "canceled create must not persist")
}

func ids(page []domain.StatusPublic) []string {
	out := make([]string, 0, len(page))
	for _, st := range page {
		out = append(out, st.ID)
	}
	return out
}
