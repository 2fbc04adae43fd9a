package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
)

// Task is the single persisted entity of the tracker.
type Task struct {
	ID          int64
	Title       string
	Description string
	IsCompleted bool
	IsDeleted   bool
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Now returns the current wall-clock time at the precision every store can persist.
func Now() time.Time {
	return Normalize(time.Now())
}

// Normalize truncates t to microseconds and drops the monotonic reading.
func Normalize(t time.Time) time.Time {
	return t.Truncate(time.Microsecond)
}

// NewTask creates an unsaved task with validation
func NewTask(title, description string, dueDate *time.Time, now time.Time) (*Task, error) {
	title = strings.TrimSpace(title)
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	now = Normalize(now)

	return &Task{
		Title:       title,
		Description: description,
		DueDate:     normalizePtr(dueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsPending reports whether the task is active and not completed.
func (t Task) IsPending() bool {
	return !t.IsCompleted && !t.IsDeleted
}

// Changes lists the editable fields of a task. Nil pointers leave the field untouched.
type Changes struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	IsCompleted  *bool
}

// Apply returns a copy of t with the changes applied. ID and CreatedAt are always
// preserved and UpdatedAt is set to now.
func (t Task) Apply(ch Changes, now time.Time) (Task, error) {
	out := t

	if ch.Title != nil {
		title := strings.TrimSpace(*ch.Title)
		if err := ValidateTitle(title); err != nil {
			return Task{}, err
		}
		out.Title = title
	}

	if ch.Description != nil {
		if err := validateDescription(*ch.Description); err != nil {
			return Task{}, err
		}
		out.Description = *ch.Description
	}

	switch {
	case ch.ClearDueDate:
		out.DueDate = nil
	case ch.DueDate != nil:
		out.DueDate = normalizePtr(ch.DueDate)
	}

	if ch.IsCompleted != nil {
		out.IsCompleted = *ch.IsCompleted
	}

	out.ID = t.ID
	out.CreatedAt = t.CreatedAt
	out.UpdatedAt = touch(t.CreatedAt, now)
	return out, nil
}

// WithCompleted returns a copy of t with the completion flag set.
func (t Task) WithCompleted(done bool, now time.Time) Task {
	out := t
	out.IsCompleted = done
	out.UpdatedAt = touch(t.CreatedAt, now)
	return out
}

// ValidateTitle checks the title rules enforced before a task reaches a store.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// touch keeps UpdatedAt >= CreatedAt even if the clock stepped backwards.
func touch(createdAt, now time.Time) time.Time {
	now = Normalize(now)
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}

func normalizePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := Normalize(*t)
	return &n
}
