package domain

import "context"

// TaskStore defines the contract for task persistence.
//
// Failures are either ErrTaskNotFound or a *StorageError. Implementations
// serialize concurrent writes themselves.
type TaskStore interface {
	// ListActive returns tasks that are not deleted, newest first
	ListActive(ctx context.Context) ([]Task, error)

	// ListPending returns active tasks that are not completed, newest first
	ListPending(ctx context.Context) ([]Task, error)

	// ListCompleted returns active completed tasks, newest first
	ListCompleted(ctx context.Context) ([]Task, error)

	// ListDeleted returns the trash, most recently touched first
	ListDeleted(ctx context.Context) ([]Task, error)

	// Search matches query as a case-insensitive substring of title or description
	Search(ctx context.Context, query string) ([]Task, error)

	// Insert persists a new task and assigns its ID
	Insert(ctx context.Context, task *Task) (int64, error)

	// Update replaces the stored record with the same ID
	Update(ctx context.Context, task *Task) error

	// SoftDelete moves a task to the trash
	SoftDelete(ctx context.Context, id int64) error

	// Restore takes a task out of the trash
	Restore(ctx context.Context, id int64) error

	// DeleteHard permanently removes a task
	DeleteHard(ctx context.Context, id int64) error

	// PurgeDeleted permanently removes every task in the trash
	PurgeDeleted(ctx context.Context) (int64, error)
}
