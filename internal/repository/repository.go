// Package repository is the façade every caller uses to reach task storage.
package repository

import (
	"context"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TaskRepository passes calls through to a domain.TaskStore. It holds no state
// and performs no caching; store errors are returned unchanged.
type TaskRepository struct {
	store  domain.TaskStore
	tracer trace.Tracer
}

func NewTaskRepository(store domain.TaskStore) *TaskRepository {
	return &TaskRepository{
		store:  store,
		tracer: otel.Tracer("task-repository"),
	}
}

func (r *TaskRepository) ListActive(ctx context.Context) ([]domain.Task, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ListActive")
	defer span.End()

	return r.store.ListActive(ctx)
}

func (r *TaskRepository) ListPending(ctx context.Context) ([]domain.Task, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ListPending")
	defer span.End()

	return r.store.ListPending(ctx)
}

func (r *TaskRepository) ListCompleted(ctx context.Context) ([]domain.Task, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ListCompleted")
	defer span.End()

	return r.store.ListCompleted(ctx)
}

func (r *TaskRepository) ListDeleted(ctx context.Context) ([]domain.Task, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ListDeleted")
	defer span.End()

	return r.store.ListDeleted(ctx)
}

func (r *TaskRepository) Search(ctx context.Context, query string) ([]domain.Task, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Search")
	defer span.End()

	span.SetAttributes(attribute.Int("query.length", len(query)))
	return r.store.Search(ctx, query)
}

// Add inserts a task that the caller has already validated.
func (r *TaskRepository) Add(ctx context.Context, task *domain.Task) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Add")
	defer span.End()

	return r.store.Insert(ctx, task)
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	ctx, span := r.tracer.Start(ctx, "repository.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("task.id", task.ID))
	return r.store.Update(ctx, task)
}

func (r *TaskRepository) SoftDelete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "repository.SoftDelete")
	defer span.End()

	span.SetAttributes(attribute.Int64("task.id", id))
	return r.store.SoftDelete(ctx, id)
}

func (r *TaskRepository) Restore(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "repository.Restore")
	defer span.End()

	span.SetAttributes(attribute.Int64("task.id", id))
	return r.store.Restore(ctx, id)
}

func (r *TaskRepository) DeleteHard(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "repository.DeleteHard")
	defer span.End()

	span.SetAttributes(attribute.Int64("task.id", id))
	return r.store.DeleteHard(ctx, id)
}

func (r *TaskRepository) PurgeDeleted(ctx context.Context) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "repository.PurgeDeleted")
	defer span.End()

	return r.store.PurgeDeleted(ctx)
}

// GetAllTasks concatenates pending, completed and deleted tasks in that order.
// The result is a display aggregate: it is neither re-sorted nor de-duplicated.
func (r *TaskRepository) GetAllTasks(ctx context.Context) ([]domain.Task, error) {
	ctx, span := r.tracer.Start(ctx, "repository.GetAllTasks")
	defer span.End()

	pending, err := r.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	completed, err := r.store.ListCompleted(ctx)
	if err != nil {
		return nil, err
	}
	deleted, err := r.store.ListDeleted(ctx)
	if err != nil {
		return nil, err
	}

	all := make([]domain.Task, 0, len(pending)+len(completed)+len(deleted))
	all = append(all, pending...)
	all = append(all, completed...)
	all = append(all, deleted...)

	span.SetAttributes(attribute.Int("returned_count", len(all)))
	return all, nil
}

// FindTask scans GetAllTasks for id; the first match wins. The store contract
// has no by-id query, so this is O(n).
func (r *TaskRepository) FindTask(ctx context.Context, id int64) (domain.Task, error) {
	all, err := r.GetAllTasks(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	for _, t := range all {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Task{}, domain.ErrTaskNotFound
}

// SetCompleted flips the completion flag of task id and persists the full record.
func (r *TaskRepository) SetCompleted(ctx context.Context, id int64, done bool) (domain.Task, error) {
	task, err := r.FindTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}

	updated := task.WithCompleted(done, domain.Now())
	if err := r.Update(ctx, &updated); err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}
