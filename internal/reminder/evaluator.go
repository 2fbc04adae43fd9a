// Package reminder decides which tasks warrant a due-date alert and hands them
// to a Notifier.
package reminder

import (
	"context"
	"time"

	"github.com/dmehra2102/todokeeper/internal/domain"
)

// LeadHours is the only hoursUntilDue value that triggers a reminder.
const LeadHours = 24

// Reminder is a request to alert the user about one task.
type Reminder struct {
	Task          domain.Task
	HoursUntilDue int64
	DueDate       time.Time
}

// Notifier delivers reminders. Delivery is at-least-once: evaluating the same
// snapshot twice within the trigger hour produces the same reminder twice, and
// a Notifier that cares must suppress duplicates itself.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// Evaluate returns, in input order, a reminder for every pending task with a
// due date exactly LeadHours whole hours after now. Overdue tasks yield
// negative hour counts and never match.
func Evaluate(tasks []domain.Task, now time.Time) []Reminder {
	var out []Reminder
	for _, t := range tasks {
		if !t.IsPending() || t.DueDate == nil {
			continue
		}
		hours := HoursUntil(now, *t.DueDate)
		if hours == LeadHours {
			out = append(out, Reminder{Task: t, HoursUntilDue: hours, DueDate: *t.DueDate})
		}
	}
	return out
}

// HoursUntil is floor((due - now) / 1h).
func HoursUntil(now, due time.Time) int64 {
	d := due.Sub(now)
	h := int64(d / time.Hour)
	if d%time.Hour < 0 {
		h--
	}
	return h
}
