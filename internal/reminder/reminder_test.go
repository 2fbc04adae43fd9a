package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func due(t time.Time) *time.Time { return &t }

func TestEvaluate_ExactlyTwentyFourHours(t *testing.T) {
	task := domain.Task{ID: 1, Title: "pay rent", DueDate: due(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))}

	got := Evaluate([]domain.Task{task}, now)

	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Task.ID)
	assert.Equal(t, int64(24), got[0].HoursUntilDue)
	assert.True(t, got[0].DueDate.Equal(*task.DueDate))
}

func TestEvaluate_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		task domain.Task
	}{
		{"23 hours", domain.Task{DueDate: due(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))}},
		{"25 hours", domain.Task{DueDate: due(time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC))}},
		{"completed", domain.Task{IsCompleted: true, DueDate: due(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))}},
		{"deleted", domain.Task{IsDeleted: true, DueDate: due(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))}},
		{"no due date", domain.Task{}},
		{"overdue", domain.Task{DueDate: due(time.Date(2023, 12, 31, 10, 0, 0, 0, time.UTC))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Evaluate([]domain.Task{tt.task}, now))
		})
	}
}

func TestEvaluate_WithinTriggerHour(t *testing.T) {
	// 24h59m still floors to 24
	task := domain.Task{DueDate: due(now.Add(24*time.Hour + 59*time.Minute))}
	assert.Len(t, Evaluate([]domain.Task{task}, now), 1)

	// 23h59m floors to 23
	task.DueDate = due(now.Add(24*time.Hour - time.Minute))
	assert.Empty(t, Evaluate([]domain.Task{task}, now))
}

func TestEvaluate_PreservesOrderAndRepeats(t *testing.T) {
	d := due(now.Add(24 * time.Hour))
	tasks := []domain.Task{{ID: 3, DueDate: d}, {ID: 1}, {ID: 2, DueDate: d}}

	first := Evaluate(tasks, now)
	second := Evaluate(tasks, now)

	require.Len(t, first, 2)
	assert.Equal(t, int64(3), first[0].Task.ID)
	assert.Equal(t, int64(2), first[1].Task.ID)
	assert.Equal(t, first, second)
}

func TestHoursUntil_FloorsNegative(t *testing.T) {
	assert.Equal(t, int64(-1), HoursUntil(now, now.Add(-time.Minute)))
	assert.Equal(t, int64(0), HoursUntil(now, now.Add(59*time.Minute)))
	assert.Equal(t, int64(-2), HoursUntil(now, now.Add(-2*time.Hour)))
}

type recordingNotifier struct {
	got  []int64
	fail map[int64]error
}

func (n *recordingNotifier) Notify(_ context.Context, r Reminder) error {
	if err := n.fail[r.Task.ID]; err != nil {
		return err
	}
	n.got = append(n.got, r.Task.ID)
	return nil
}

type staticTasks struct {
	tasks []domain.Task
	err   error
}

func (s staticTasks) ListActive(context.Context) ([]domain.Task, error) {
	return s.tasks, s.err
}

func TestService_CheckNow(t *testing.T) {
	d := due(now.Add(24 * time.Hour))
	notifier := &recordingNotifier{}
	svc := NewService(staticTasks{tasks: []domain.Task{{ID: 1, DueDate: d}, {ID: 2}}}, notifier, zap.NewNop()).
		WithClock(func() time.Time { return now })

	reminders, err := svc.CheckNow(context.Background())

	require.NoError(t, err)
	assert.Len(t, reminders, 1)
	assert.Equal(t, []int64{1}, notifier.got)
}

func TestService_DeliveryFailuresJoined(t *testing.T) {
	d := due(now.Add(24 * time.Hour))
	boom := errors.New("boom")
	notifier := &recordingNotifier{fail: map[int64]error{1: boom}}
	svc := NewService(nil, notifier, zap.NewNop()).WithClock(func() time.Time { return now })

	reminders, err := svc.CheckTasks(context.Background(), []domain.Task{{ID: 1, DueDate: d}, {ID: 2, DueDate: d}})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, reminders, 2)
	assert.Equal(t, []int64{2}, notifier.got)
}

func TestService_SnapshotError(t *testing.T) {
	failure := domain.NewStorageError("list active tasks", errors.New("disk"))
	svc := NewService(staticTasks{err: failure}, &recordingNotifier{}, zap.NewNop())

	_, err := svc.CheckNow(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageFailure)
}
