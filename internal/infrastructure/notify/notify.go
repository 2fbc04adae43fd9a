// Package notify holds the Notifier adapters reminders are delivered through.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/dmehra2102/todokeeper/internal/reminder"
	"go.uber.org/zap"
)

// Message is the wire payload published for a reminder.
type Message struct {
	TaskID        int64     `json:"task_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	DueDate       time.Time `json:"due_date"`
	HoursUntilDue int64     `json:"hours_until_due"`
}

func NewMessage(r reminder.Reminder) Message {
	return Message{
		TaskID:        r.Task.ID,
		Title:         r.Task.Title,
		Description:   r.Task.Description,
		DueDate:       r.DueDate,
		HoursUntilDue: r.HoursUntilDue,
	}
}

// LogNotifier writes reminders to the service log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, r reminder.Reminder) error {
	msg := NewMessage(r)
	n.logger.Info("task due soon",
		zap.Int64("task_id", msg.TaskID),
		zap.String("title", msg.Title),
		zap.Time("due_date", msg.DueDate),
		zap.Int64("hours_until_due", msg.HoursUntilDue),
	)
	return nil
}

// Multi delivers each reminder to every notifier in order. All notifiers are
// attempted even when an earlier one fails.
type Multi []reminder.Notifier

func (m Multi) Notify(ctx context.Context, r reminder.Reminder) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
