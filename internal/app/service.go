package app

import (
	"context"
	"errors"
	"time"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"github.com/dmehra2102/todokeeper/internal/interceptors"
	"github.com/dmehra2102/todokeeper/internal/reminder"
	"github.com/dmehra2102/todokeeper/internal/stats"
	"github.com/dmehra2102/todokeeper/pkg/auth"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Tasks is the repository surface the service needs.
type Tasks interface {
	ListActive(ctx context.Context) ([]domain.Task, error)
	ListPending(ctx context.Context) ([]domain.Task, error)
	ListCompleted(ctx context.Context) ([]domain.Task, error)
	ListDeleted(ctx context.Context) ([]domain.Task, error)
	GetAllTasks(ctx context.Context) ([]domain.Task, error)
	Search(ctx context.Context, query string) ([]domain.Task, error)
	Add(ctx context.Context, task *domain.Task) (int64, error)
	Update(ctx context.Context, task *domain.Task) error
	FindTask(ctx context.Context, id int64) (domain.Task, error)
	SetCompleted(ctx context.Context, id int64, done bool) (domain.Task, error)
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	DeleteHard(ctx context.Context, id int64) error
	PurgeDeleted(ctx context.Context) (int64, error)
}

// Mirror receives local writes for best-effort replication elsewhere.
type Mirror interface {
	Created(ctx context.Context, task domain.Task)
	Updated(ctx context.Context, task domain.Task)
	Deleted(ctx context.Context, id int64)
}

type TaskServer struct {
	repo      Tasks
	reminders *reminder.Service
	mirror    Mirror
	logger    *zap.Logger
	tracer    trace.Tracer
	clock     func() time.Time
	loc       *time.Location
}

var _ TaskServiceServer = (*TaskServer)(nil)

// Option customizes a TaskServer.
type Option func(*TaskServer)

// WithMirror forwards create, update and permanent delete to m.
func WithMirror(m Mirror) Option {
	return func(s *TaskServer) { s.mirror = m }
}

// WithClock replaces time.Now; useful in tests.
func WithClock(clock func() time.Time) Option {
	return func(s *TaskServer) { s.clock = clock }
}

// WithLocation sets the zone used for local due dates and stats calendar days.
func WithLocation(loc *time.Location) Option {
	return func(s *TaskServer) { s.loc = loc }
}

func NewTaskServer(repo Tasks, reminders *reminder.Service, logger *zap.Logger, opts ...Option) *TaskServer {
	s := &TaskServer{
		repo:      repo,
		reminders: reminders,
		logger:    logger,
		tracer:    otel.Tracer("task-service"),
		clock:     time.Now,
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskServer) now() time.Time {
	return domain.Normalize(s.clock()).In(s.loc)
}

func (s *TaskServer) ListActive(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return s.list(ctx, "ListActive", s.repo.ListActive)
}

func (s *TaskServer) ListPending(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return s.list(ctx, "ListPending", s.repo.ListPending)
}

func (s *TaskServer) ListCompleted(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return s.list(ctx, "ListCompleted", s.repo.ListCompleted)
}

func (s *TaskServer) ListDeleted(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return s.list(ctx, "ListDeleted", s.repo.ListDeleted)
}

func (s *TaskServer) ListAll(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return s.list(ctx, "ListAll", s.repo.GetAllTasks)
}

func (s *TaskServer) Search(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	return s.list(ctx, "Search", func(ctx context.Context) ([]domain.Task, error) {
		return s.repo.Search(ctx, req.GetValue())
	})
}

func (s *TaskServer) list(ctx context.Context, name string, fetch func(context.Context) ([]domain.Task, error)) (*structpb.ListValue, error) {
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()

	tasks, err := fetch(ctx)
	if err != nil {
		return nil, s.mapDomainError(ctx, name, err)
	}

	span.SetAttributes(attribute.Int("returned_count", len(tasks)))
	return mapTasksToList(tasks), nil
}

func (s *TaskServer) CreateTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, span := s.tracer.Start(ctx, "CreateTask")
	defer span.End()

	title, err := stringField(req, fieldTitle)
	if err != nil {
		return nil, s.mapDomainError(ctx, "CreateTask", err)
	}
	if title == nil {
		return nil, status.Error(codes.InvalidArgument, domain.ErrEmptyTitle.Error())
	}
	description, err := stringField(req, fieldDescription)
	if err != nil {
		return nil, s.mapDomainError(ctx, "CreateTask", err)
	}
	dueDate, _, err := dueDateField(req, s.loc)
	if err != nil {
		return nil, s.mapDomainError(ctx, "CreateTask", err)
	}

	var desc string
	if description != nil {
		desc = *description
	}

	task, err := domain.NewTask(*title, desc, dueDate, s.now())
	if err != nil {
		return nil, s.mapDomainError(ctx, "CreateTask", err)
	}

	if _, err := s.repo.Add(ctx, task); err != nil {
		return nil, s.mapDomainError(ctx, "CreateTask", err)
	}

	span.SetAttributes(attribute.Int64("task.id", task.ID))
	s.logger.Info("task created",
		zap.Int64("task_id", task.ID),
		zap.String("subject", subject(ctx)),
		requestID(ctx),
	)

	// a task created 24h before its due date gets its reminder right away
	if s.reminders != nil {
		if _, err := s.reminders.CheckTasks(ctx, []domain.Task{*task}); err != nil {
			s.logger.Warn("reminder check after create failed",
				zap.Int64("task_id", task.ID),
				requestID(ctx),
				zap.Error(err),
			)
		}
	}
	if s.mirror != nil {
		s.mirror.Created(ctx, *task)
	}

	return mapDomainToStruct(*task), nil
}

func (s *TaskServer) UpdateTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateTask")
	defer span.End()

	id, err := idField(req)
	if err != nil {
		return nil, s.mapDomainError(ctx, "UpdateTask", err)
	}
	span.SetAttributes(attribute.Int64("task.id", id))

	changes, err := s.changesFromStruct(req)
	if err != nil {
		return nil, s.mapDomainError(ctx, "UpdateTask", err)
	}

	existing, err := s.repo.FindTask(ctx, id)
	if err != nil {
		return nil, s.mapDomainError(ctx, "UpdateTask", err)
	}

	updated, err := existing.Apply(changes, s.now())
	if err != nil {
		return nil, s.mapDomainError(ctx, "UpdateTask", err)
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, s.mapDomainError(ctx, "UpdateTask", err)
	}

	s.logger.Info("task updated", zap.Int64("task_id", id), requestID(ctx))
	if s.mirror != nil {
		s.mirror.Updated(ctx, updated)
	}

	return mapDomainToStruct(updated), nil
}

func (s *TaskServer) changesFromStruct(req *structpb.Struct) (domain.Changes, error) {
	var ch domain.Changes
	var err error

	if ch.Title, err = stringField(req, fieldTitle); err != nil {
		return ch, err
	}
	if ch.Description, err = stringField(req, fieldDescription); err != nil {
		return ch, err
	}
	if ch.IsCompleted, err = boolField(req, fieldIsCompleted); err != nil {
		return ch, err
	}

	dueDate, present, err := dueDateField(req, s.loc)
	if err != nil {
		return ch, err
	}
	if present {
		ch.DueDate = dueDate
		ch.ClearDueDate = dueDate == nil
	}
	return ch, nil
}

func (s *TaskServer) SetCompleted(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, span := s.tracer.Start(ctx, "SetCompleted")
	defer span.End()

	id, err := idField(req)
	if err != nil {
		return nil, s.mapDomainError(ctx, "SetCompleted", err)
	}
	done, err := boolField(req, fieldCompleted)
	if err != nil {
		return nil, s.mapDomainError(ctx, "SetCompleted", err)
	}
	if done == nil {
		return nil, status.Error(codes.InvalidArgument, `field "completed" is required`)
	}
	span.SetAttributes(attribute.Int64("task.id", id), attribute.Bool("task.completed", *done))

	task, err := s.repo.SetCompleted(ctx, id, *done)
	if err != nil {
		return nil, s.mapDomainError(ctx, "SetCompleted", err)
	}

	if s.mirror != nil {
		s.mirror.Updated(ctx, task)
	}
	return mapDomainToStruct(task), nil
}

func (s *TaskServer) DeleteTask(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	resp, err := s.byID(ctx, "DeleteTask", req, s.repo.SoftDelete)
	if err == nil {
		s.mirrorCurrent(ctx, req.GetValue())
	}
	return resp, err
}

func (s *TaskServer) RestoreTask(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	resp, err := s.byID(ctx, "RestoreTask", req, s.repo.Restore)
	if err == nil {
		s.mirrorCurrent(ctx, req.GetValue())
	}
	return resp, err
}

// mirrorCurrent re-reads task id so the mirror sees the stored is_deleted
// flag and updated_at.
func (s *TaskServer) mirrorCurrent(ctx context.Context, id int64) {
	if s.mirror == nil {
		return
	}
	task, err := s.repo.FindTask(ctx, id)
	if err != nil {
		s.logger.Warn("failed to reload task for mirror", zap.Int64("task_id", id), requestID(ctx), zap.Error(err))
		return
	}
	s.mirror.Updated(ctx, task)
}

func (s *TaskServer) DeleteTaskPermanently(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	resp, err := s.byID(ctx, "DeleteTaskPermanently", req, s.repo.DeleteHard)
	if err == nil && s.mirror != nil {
		s.mirror.Deleted(ctx, req.GetValue())
	}
	return resp, err
}

func (s *TaskServer) byID(ctx context.Context, name string, req *wrapperspb.Int64Value, op func(context.Context, int64) error) (*emptypb.Empty, error) {
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()

	id := req.GetValue()
	if id <= 0 {
		return nil, status.Error(codes.InvalidArgument, "task ID is required")
	}
	span.SetAttributes(attribute.Int64("task.id", id))

	if err := op(ctx, id); err != nil {
		return nil, s.mapDomainError(ctx, name, err)
	}

	s.logger.Info("task state changed",
		zap.String("operation", name),
		zap.Int64("task_id", id),
		requestID(ctx),
	)
	return &emptypb.Empty{}, nil
}

func (s *TaskServer) PurgeDeleted(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	ctx, span := s.tracer.Start(ctx, "PurgeDeleted")
	defer span.End()

	purged, err := s.repo.PurgeDeleted(ctx)
	if err != nil {
		return nil, s.mapDomainError(ctx, "PurgeDeleted", err)
	}

	span.SetAttributes(attribute.Int64("purged_count", purged))
	s.logger.Info("trash purged", zap.Int64("purged_count", purged), requestID(ctx))
	return wrapperspb.Int64(purged), nil
}

func (s *TaskServer) GetStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ctx, span := s.tracer.Start(ctx, "GetStats")
	defer span.End()

	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, s.mapDomainError(ctx, "GetStats", err)
	}

	return mapStatsToStruct(stats.Compute(active, s.now())), nil
}

// CheckReminders evaluates the active tasks now. Tasks whose notification
// failed are still returned; the failure is only logged.
func (s *TaskServer) CheckReminders(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	ctx, span := s.tracer.Start(ctx, "CheckReminders")
	defer span.End()

	if s.reminders == nil {
		return nil, status.Error(codes.Unimplemented, "reminders are not configured")
	}

	reminders, err := s.reminders.CheckNow(ctx)
	if err != nil && reminders == nil {
		return nil, s.mapDomainError(ctx, "CheckReminders", err)
	}
	if err != nil {
		s.logger.Warn("some reminders were not delivered", requestID(ctx), zap.Error(err))
	}

	tasks := make([]domain.Task, 0, len(reminders))
	for _, r := range reminders {
		tasks = append(tasks, r.Task)
	}
	span.SetAttributes(attribute.Int("reminder_count", len(tasks)))
	return mapTasksToList(tasks), nil
}

func requestID(ctx context.Context) zap.Field {
	return zap.String("request_id", interceptors.RequestIDFromContext(ctx))
}

func subject(ctx context.Context) string {
	p, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		return ""
	}
	return p.Subject
}

func (s *TaskServer) mapDomainError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrTaskNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		trace.SpanFromContext(ctx).RecordError(err)
		s.logger.Error("storage operation failed",
			zap.String("operation", op),
			requestID(ctx),
			zap.Error(err),
		)
		return status.Error(codes.Internal, "internal server error")
	}
}
