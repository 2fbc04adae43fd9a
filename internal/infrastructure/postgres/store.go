package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const queryTimeout = 5 * time.Second

const taskColumns = `id, title, description, is_completed, is_deleted, due_date, created_at, updated_at`

type Store struct {
	db     *sql.DB
	tracer trace.Tracer
	now    func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		tracer: otel.Tracer("postgres-store"),
		now:    domain.Now,
	}
}

// WithClock replaces the timestamp source used for updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = func() time.Time { return domain.Normalize(now()) }
	return s
}

func (s *Store) ListActive(ctx context.Context) ([]domain.Task, error) {
	return s.list(ctx, "ListActive", "list active tasks", `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE NOT is_deleted
		ORDER BY created_at DESC, id DESC
	`)
}

func (s *Store) ListPending(ctx context.Context) ([]domain.Task, error) {
	return s.list(ctx, "ListPending", "list pending tasks", `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE NOT is_deleted AND NOT is_completed
		ORDER BY created_at DESC, id DESC
	`)
}

func (s *Store) ListCompleted(ctx context.Context) ([]domain.Task, error) {
	return s.list(ctx, "ListCompleted", "list completed tasks", `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE NOT is_deleted AND is_completed
		ORDER BY created_at DESC, id DESC
	`)
}

func (s *Store) ListDeleted(ctx context.Context) ([]domain.Task, error) {
	return s.list(ctx, "ListDeleted", "list deleted tasks", `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE is_deleted
		ORDER BY updated_at DESC, id DESC
	`)
}

func (s *Store) Search(ctx context.Context, query string) ([]domain.Task, error) {
	return s.list(ctx, "Search", "search tasks", `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE NOT is_deleted AND (title ILIKE $1 OR description ILIKE $1)
		ORDER BY created_at DESC, id DESC
	`, "%"+escapeLike(query)+"%")
}

func (s *Store) list(ctx context.Context, name, op, query string, args ...any) ([]domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "postgres."+name)
	defer span.End()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, domain.NewStorageError(op, err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var (
			task    domain.Task
			dueDate sql.NullTime
		)
		err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.IsCompleted,
			&task.IsDeleted,
			&dueDate,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			span.RecordError(err)
			return nil, domain.NewStorageError("scan task", err)
		}
		if dueDate.Valid {
			d := dueDate.Time
			task.DueDate = &d
		}
		tasks = append(tasks, task)
	}

	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, domain.NewStorageError(op, err)
	}

	span.SetAttributes(attribute.Int("returned_count", len(tasks)))
	return tasks, nil
}

func (s *Store) Insert(ctx context.Context, task *domain.Task) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "postgres.Insert")
	defer span.End()

	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}
	if task.UpdatedAt.IsZero() || task.UpdatedAt.Before(task.CreatedAt) {
		task.UpdatedAt = task.CreatedAt
	}

	query := `
		INSERT INTO tasks (title, description, is_completed, is_deleted, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		task.Title,
		task.Description,
		task.IsCompleted,
		task.IsDeleted,
		nullTime(task.DueDate),
		task.CreatedAt.UTC(),
		task.UpdatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		span.RecordError(err)
		return 0, domain.NewStorageError("insert task", err)
	}

	task.ID = id
	span.SetAttributes(attribute.Int64("task.id", id))
	return id, nil
}

// Update replaces every column except id and created_at. The stamped
// updated_at is written back to task.
func (s *Store) Update(ctx context.Context, task *domain.Task) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "postgres.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("task.id", task.ID))

	query := `
		UPDATE tasks
		SET title = $1, description = $2, is_completed = $3, is_deleted = $4, due_date = $5,
			updated_at = GREATEST(created_at, $6)
		WHERE id = $7
		RETURNING updated_at
	`

	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, query,
		task.Title,
		task.Description,
		task.IsCompleted,
		task.IsDeleted,
		nullTime(task.DueDate),
		s.now().UTC(),
		task.ID,
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetAttributes(attribute.Bool("not_found", true))
			return domain.ErrTaskNotFound
		}
		span.RecordError(err)
		return domain.NewStorageError("update task", err)
	}

	task.UpdatedAt = updatedAt
	return nil
}

// SoftDelete and Restore refresh updated_at even if the flag already has the
// requested value.
func (s *Store) SoftDelete(ctx context.Context, id int64) error {
	return s.setDeleted(ctx, "SoftDelete", "soft delete task", id, true)
}

func (s *Store) Restore(ctx context.Context, id int64) error {
	return s.setDeleted(ctx, "Restore", "restore task", id, false)
}

func (s *Store) setDeleted(ctx context.Context, name, op string, id int64, deleted bool) error {
	query := `
		UPDATE tasks
		SET is_deleted = $1, updated_at = GREATEST(created_at, $2)
		WHERE id = $3
	`
	return s.execOne(ctx, name, op, id, query, deleted, s.now().UTC(), id)
}

func (s *Store) DeleteHard(ctx context.Context, id int64) error {
	return s.execOne(ctx, "DeleteHard", "delete task", id, `DELETE FROM tasks WHERE id = $1`, id)
}

// execOne runs a statement expected to touch exactly the row with id.
func (s *Store) execOne(ctx context.Context, name, op string, id int64, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "postgres."+name)
	defer span.End()

	span.SetAttributes(attribute.Int64("task.id", id))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return domain.NewStorageError(op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return domain.NewStorageError("get rows affected", err)
	}

	if rowsAffected == 0 {
		span.SetAttributes(attribute.Bool("not_found", true))
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *Store) PurgeDeleted(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "postgres.PurgeDeleted")
	defer span.End()

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE is_deleted`)
	if err != nil {
		span.RecordError(err)
		return 0, domain.NewStorageError("purge deleted tasks", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return 0, domain.NewStorageError("get rows affected", err)
	}

	span.SetAttributes(attribute.Int64("purged_count", purged))
	return purged, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes wildcards so the query matches as a plain substring.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var _ domain.TaskStore = (*Store)(nil)

