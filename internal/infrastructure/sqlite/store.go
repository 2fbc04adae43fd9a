// Package sqlite is the embedded, single-file TaskStore used for local runs.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// taskRecord is the row layout. Timestamps are managed by the store, not by
// GORM, so the auto time tracking is switched off.
type taskRecord struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	Title       string     `gorm:"size:200;not null"`
	Description string     `gorm:"size:2000;not null;default:''"`
	IsCompleted bool       `gorm:"not null;default:false;index:idx_tasks_state,priority:2"`
	IsDeleted   bool       `gorm:"not null;default:false;index:idx_tasks_state,priority:1"`
	DueDate     *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime:false"`
}

func (taskRecord) TableName() string {
	return "tasks"
}

// Options tune Open.
type Options struct {
	Debug bool
}

// Open connects to the database file at path and migrates the schema.
func Open(path string, opts Options) (*gorm.DB, error) {
	logLevel := logger.Silent
	if opts.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// one connection serializes writers and avoids SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

type Store struct {
	db     *gorm.DB
	tracer trace.Tracer
	now    func() time.Time
}

var _ domain.TaskStore = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:     db,
		tracer: otel.Tracer("sqlite-store"),
		now:    domain.Now,
	}
}

// WithClock replaces the timestamp source used for UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = func() time.Time { return domain.Normalize(now()) }
	return s
}

const newestFirst = "created_at DESC, id DESC"

func (s *Store) ListActive(ctx context.Context) ([]domain.Task, error) {
	ctx, span := s.tracer.Start(ctx, "sqlite.ListActive")
	defer span.End()

	return s.find(ctx, span, "list active tasks", newestFirst, "is_deleted = ?", false)
}

func (s *Store) ListPending(ctx context.Context) ([]domain.Task, error) {
	ctx, span := s.tracer.Start(ctx, "sqlite.ListPending")
	defer span.End()

	return s.find(ctx, span, "list pending tasks", newestFirst, "is_deleted = ? AND is_completed = ?", false, false)
}

func (s *Store) ListCompleted(ctx context.Context) ([]domain.Task, error) {
	ctx, span := s.tracer.Start(ctx, "sqlite.ListCompleted")
	defer span.End()

	return s.find(ctx, span, "list completed tasks", newestFirst, "is_deleted = ? AND is_completed = ?", false, true)
}

func (s *Store) ListDeleted(ctx context.Context) ([]domain.Task, error) {
	ctx, span := s.tracer.Start(ctx, "sqlite.ListDeleted")
	defer span.End()

	return s.find(ctx, span, "list deleted tasks", "updated_at DESC, id DESC", "is_deleted = ?", true)
}

func (s *Store) Search(ctx context.Context, query string) ([]domain.Task, error) {
	ctx, span := s.tracer.Start(ctx, "sqlite.Search")
	defer span.End()

	// sqlite LIKE folds ASCII case only; other characters must match exactly
	pattern := "%" + escapeLike(query) + "%"
	return s.find(ctx, span, "search tasks", newestFirst,
		`is_deleted = ? AND (title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`,
		false, pattern, pattern,
	)
}

func (s *Store) find(ctx context.Context, span trace.Span, op, order string, where string, args ...any) ([]domain.Task, error) {
	var records []taskRecord
	err := s.db.WithContext(ctx).
		Where(where, args...).
		Order(order).
		Find(&records).Error
	if err != nil {
		span.RecordError(err)
		return nil, domain.NewStorageError(op, err)
	}

	tasks := make([]domain.Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, rec.toDomain())
	}
	span.SetAttributes(attribute.Int("returned_count", len(tasks)))
	return tasks, nil
}

func (s *Store) Insert(ctx context.Context, task *domain.Task) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "sqlite.Insert")
	defer span.End()

	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}
	if task.UpdatedAt.IsZero() || task.UpdatedAt.Before(task.CreatedAt) {
		task.UpdatedAt = task.CreatedAt
	}

	rec := fromDomain(task)
	rec.ID = 0
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		span.RecordError(err)
		return 0, domain.NewStorageError("insert task", err)
	}

	task.ID = rec.ID
	span.SetAttributes(attribute.Int64("task.id", rec.ID))
	return rec.ID, nil
}

// Update writes every field except ID and CreatedAt and stamps UpdatedAt on
// both the row and task.
func (s *Store) Update(ctx context.Context, task *domain.Task) error {
	ctx, span := s.tracer.Start(ctx, "sqlite.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("task.id", task.ID))

	updatedAt := s.now()
	if updatedAt.Before(task.CreatedAt) {
		updatedAt = task.CreatedAt
	}

	result := s.db.WithContext(ctx).
		Model(&taskRecord{}).
		Where("id = ?", task.ID).
		Updates(map[string]any{
			"title":        task.Title,
			"description":  task.Description,
			"is_completed": task.IsCompleted,
			"is_deleted":   task.IsDeleted,
			"due_date":     utcPtr(task.DueDate),
			"updated_at":   updatedAt.UTC(),
		})
	if err := result.Error; err != nil {
		span.RecordError(err)
		return domain.NewStorageError("update task", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}

	task.UpdatedAt = updatedAt
	return nil
}

// SoftDelete and Restore refresh updated_at even when the task is already in
// the target state.
func (s *Store) SoftDelete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "sqlite.SoftDelete")
	defer span.End()

	span.SetAttributes(attribute.Int64("task.id", id))
	return s.setDeleted(ctx, span, "soft delete task", id, true)
}

func (s *Store) Restore(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "sqlite.Restore")
	defer span.End()

	span.SetAttributes(attribute.Int64("task.id", id))
	return s.setDeleted(ctx, span, "restore task", id, false)
}

func (s *Store) setDeleted(ctx context.Context, span trace.Span, op string, id int64, deleted bool) error {
	// max() keeps updated_at >= created_at if the clock stepped backwards
	result := s.db.WithContext(ctx).
		Model(&taskRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_deleted": deleted,
			"updated_at": gorm.Expr("max(created_at, ?)", s.now().UTC()),
		})
	if err := result.Error; err != nil {
		span.RecordError(err)
		return domain.NewStorageError(op, err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *Store) DeleteHard(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "sqlite.DeleteHard")
	defer span.End()

	span.SetAttributes(attribute.Int64("task.id", id))

	result := s.db.WithContext(ctx).Delete(&taskRecord{}, "id = ?", id)
	if err := result.Error; err != nil {
		span.RecordError(err)
		return domain.NewStorageError("delete task", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *Store) PurgeDeleted(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "sqlite.PurgeDeleted")
	defer span.End()

	result := s.db.WithContext(ctx).Where("is_deleted = ?", true).Delete(&taskRecord{})
	if err := result.Error; err != nil {
		span.RecordError(err)
		return 0, domain.NewStorageError("purge deleted tasks", err)
	}

	span.SetAttributes(attribute.Int64("purged_count", result.RowsAffected))
	return result.RowsAffected, nil
}

func fromDomain(t *domain.Task) taskRecord {
	return taskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		IsDeleted:   t.IsDeleted,
		DueDate:     utcPtr(t.DueDate),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}

func (r taskRecord) toDomain() domain.Task {
	return domain.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		IsCompleted: r.IsCompleted,
		IsDeleted:   r.IsDeleted,
		DueDate:     r.DueDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

