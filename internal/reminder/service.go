package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var remindersEmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "todo_reminders_emitted_total",
		Help: "Reminders handed to the notifier, by delivery outcome",
	},
	[]string{"outcome"},
)

// Snapshotter supplies the task snapshot a check runs over.
type Snapshotter interface {
	ListActive(ctx context.Context) ([]domain.Task, error)
}

// Service runs the evaluator over a snapshot and delivers the result. It is
// invoked explicitly by callers; it never schedules itself.
type Service struct {
	tasks    Snapshotter
	notifier Notifier
	logger   *zap.Logger
	clock    func() time.Time
}

func NewService(tasks Snapshotter, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		tasks:    tasks,
		notifier: notifier,
		logger:   logger,
		clock:    time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// CheckNow evaluates every active task against the current time.
func (s *Service) CheckNow(ctx context.Context) ([]Reminder, error) {
	tasks, err := s.tasks.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.CheckTasks(ctx, tasks)
}

// CheckTasks evaluates the given snapshot and notifies for each match. Every
// reminder is attempted; delivery failures are joined into the returned error
// and the reminders are still returned.
func (s *Service) CheckTasks(ctx context.Context, tasks []domain.Task) ([]Reminder, error) {
	reminders := Evaluate(tasks, s.clock())

	var errs []error
	for _, r := range reminders {
		if err := s.notifier.Notify(ctx, r); err != nil {
			remindersEmitted.WithLabelValues("failed").Inc()
			s.logger.Warn("failed to deliver reminder",
				zap.Int64("task_id", r.Task.ID),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		remindersEmitted.WithLabelValues("delivered").Inc()
	}

	if len(reminders) > 0 {
		s.logger.Info("reminder check completed",
			zap.Int("evaluated", len(tasks)),
			zap.Int("reminders", len(reminders)),
			zap.Int("failed", len(errs)),
		)
	}
	return reminders, errors.Join(errs...)
}
