package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "tasks.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	return NewStore(db)
}

var base = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store, title string, offset time.Duration) domain.Task {
	t.Helper()

	task, err := domain.NewTask(title, "", nil, base.Add(offset))
	require.NoError(t, err)
	_, err = s.Insert(context.Background(), task)
	require.NoError(t, err)
	return *task
}

func ids(tasks []domain.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestInsert_AssignsIDs(t *testing.T) {
	s := setupStore(t)

	a := seed(t, s, "a", 0)
	b := seed(t, s, "b", time.Minute)

	assert.NotZero(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestInsert_StampsMissingTimestamps(t *testing.T) {
	s := setupStore(t).WithClock(func() time.Time { return base })

	task := &domain.Task{Title: "no clock"}
	_, err := s.Insert(context.Background(), task)
	require.NoError(t, err)

	assert.True(t, task.CreatedAt.Equal(base))
	assert.True(t, task.UpdatedAt.Equal(base))
}

func TestListActive_NewestFirst(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	oldest := seed(t, s, "oldest", 0)
	middle := seed(t, s, "middle", time.Hour)
	newest := seed(t, s, "newest", 2*time.Hour)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{newest.ID, middle.ID, oldest.ID}, ids(active))
}

func TestPendingAndCompleted_PartitionActive(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for i, done := range []bool{false, true, false, true, true} {
		task := seed(t, s, "task", time.Duration(i)*time.Minute)
		if done {
			task.IsCompleted = true
			require.NoError(t, s.Update(ctx, &task))
		}
	}
	trashed := seed(t, s, "trashed", time.Hour)
	require.NoError(t, s.SoftDelete(ctx, trashed.ID))

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	completed, err := s.ListCompleted(ctx)
	require.NoError(t, err)

	assert.Len(t, pending, 2)
	assert.Len(t, completed, 3)

	seen := map[int64]bool{}
	for _, id := range append(ids(pending), ids(completed)...) {
		assert.False(t, seen[id], "task %d in both pending and completed", id)
		seen[id] = true
	}
	assert.ElementsMatch(t, ids(active), append(ids(pending), ids(completed)...))
	assert.NotContains(t, ids(active), trashed.ID)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	task := seed(t, s, "temporary", 0)

	require.NoError(t, s.SoftDelete(ctx, task.ID))

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids(active), task.ID)

	deleted, err := s.ListDeleted(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids(deleted), task.ID)

	// second delete is a no-op apart from updated_at
	require.NoError(t, s.SoftDelete(ctx, task.ID))

	require.NoError(t, s.Restore(ctx, task.ID))

	active, err = s.ListActive(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{task.ID}, ids(active))
	assert.False(t, active[0].IsDeleted)
	assert.False(t, active[0].UpdatedAt.Before(active[0].CreatedAt))

	require.NoError(t, s.Restore(ctx, task.ID))
}

func TestSoftDelete_RefreshesUpdatedAt(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	task := seed(t, s, "touched", 0)
	later := base.Add(3 * time.Hour)
	s.WithClock(func() time.Time { return later })

	require.NoError(t, s.SoftDelete(ctx, task.ID))

	deleted, err := s.ListDeleted(ctx)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.True(t, deleted[0].UpdatedAt.Equal(later))
	assert.True(t, deleted[0].CreatedAt.Equal(task.CreatedAt))
}

func TestListDeleted_OrderedByUpdatedAt(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	first := seed(t, s, "first", 0)
	second := seed(t, s, "second", time.Minute)

	s.WithClock(func() time.Time { return base.Add(time.Hour) })
	require.NoError(t, s.SoftDelete(ctx, second.ID))
	s.WithClock(func() time.Time { return base.Add(2 * time.Hour) })
	require.NoError(t, s.SoftDelete(ctx, first.ID))

	deleted, err := s.ListDeleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID, second.ID}, ids(deleted))
}

func TestMissingID_NotFound(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.SoftDelete(ctx, 404), domain.ErrTaskNotFound)
	assert.ErrorIs(t, s.Restore(ctx, 404), domain.ErrTaskNotFound)
	assert.ErrorIs(t, s.DeleteHard(ctx, 404), domain.ErrTaskNotFound)
	assert.ErrorIs(t, s.Update(ctx, &domain.Task{ID: 404, Title: "ghost"}), domain.ErrTaskNotFound)
}

func TestPurgeDeleted(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	keep := seed(t, s, "keep", 0)
	for i := 0; i < 3; i++ {
		task := seed(t, s, "trash", time.Duration(i+1)*time.Minute)
		require.NoError(t, s.SoftDelete(ctx, task.ID))
	}

	before, err := s.ListDeleted(ctx)
	require.NoError(t, err)

	purged, err := s.PurgeDeleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(before)), purged)

	after, err := s.ListDeleted(ctx)
	require.NoError(t, err)
	assert.Empty(t, after)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{keep.ID}, ids(active))

	purged, err = s.PurgeDeleted(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestDeleteHard(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	task := seed(t, s, "gone", 0)
	require.NoError(t, s.DeleteHard(ctx, task.ID))

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.ErrorIs(t, s.DeleteHard(ctx, task.ID), domain.ErrTaskNotFound)
}

func TestSearch(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	older := seed(t, s, "buy ABC batteries", 0)
	_ = seed(t, s, "walk the dog", time.Minute)

	withDesc, err := domain.NewTask("groceries", "remember abc cereal", nil, base.Add(2*time.Minute))
	require.NoError(t, err)
	_, err = s.Insert(ctx, withDesc)
	require.NoError(t, err)

	trashed := seed(t, s, "abc trashed", 3*time.Minute)
	require.NoError(t, s.SoftDelete(ctx, trashed.ID))

	found, err := s.Search(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []int64{withDesc.ID, older.ID}, ids(found))
}

func TestSearch_NonASCII(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	transfer := seed(t, s, "Überweisung an Ärztin", 0)
	school := seed(t, s, "ÉCOLE", time.Minute)
	_ = seed(t, s, "买菜", 2*time.Minute)

	found, err := s.Search(ctx, "Überweisung")
	require.NoError(t, err)
	assert.Equal(t, []int64{transfer.ID}, ids(found))

	found, err = s.Search(ctx, "ÉCOLE")
	require.NoError(t, err)
	assert.Equal(t, []int64{school.ID}, ids(found))

	// only ASCII letters fold
	found, err = s.Search(ctx, "ärztin")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = s.Search(ctx, "AN Ä")
	require.NoError(t, err)
	assert.Equal(t, []int64{transfer.ID}, ids(found))
}

func TestSearch_EscapesWildcards(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	literal := seed(t, s, "100% done", 0)
	_ = seed(t, s, "100 percent", time.Minute)
	underscore := seed(t, s, "snake_case", 2*time.Minute)
	_ = seed(t, s, "snakeXcase", 3*time.Minute)

	found, err := s.Search(ctx, "100%")
	require.NoError(t, err)
	assert.Equal(t, []int64{literal.ID}, ids(found))

	found, err = s.Search(ctx, "e_c")
	require.NoError(t, err)
	assert.Equal(t, []int64{underscore.ID}, ids(found))

	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestUpdate_PreservesCreatedAtAndRoundTrips(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	loc := time.FixedZone("UTC-5", -5*3600)
	dueDate := time.Date(2024, 6, 30, 17, 45, 12, 123456000, loc)

	task, err := domain.NewTask("file taxes", "form 1040", &dueDate, base)
	require.NoError(t, err)
	_, err = s.Insert(ctx, task)
	require.NoError(t, err)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].DueDate)
	assert.True(t, active[0].DueDate.Equal(dueDate))
	assert.True(t, active[0].CreatedAt.Equal(base))

	title := "file taxes early"
	changed, err := active[0].Apply(domain.Changes{Title: &title, ClearDueDate: true}, base.Add(time.Hour))
	require.NoError(t, err)
	changed.CreatedAt = base.Add(-24 * time.Hour) // must not be written
	require.NoError(t, s.Update(ctx, &changed))

	active, err = s.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, title, active[0].Title)
	assert.Nil(t, active[0].DueDate)
	assert.True(t, active[0].CreatedAt.Equal(base))
	assert.False(t, active[0].UpdatedAt.Before(active[0].CreatedAt))
}
