package remote

import (
	"context"

	"github.com/dmehra2102/todokeeper/internal/domain"
	"go.uber.org/zap"
)

// Mirror forwards local writes to the remote endpoint. Failures are logged and
// dropped; nothing is queued or reconciled.
type Mirror struct {
	client *Client
	logger *zap.Logger
}

func NewMirror(client *Client, logger *zap.Logger) *Mirror {
	return &Mirror{client: client, logger: logger}
}

func (m *Mirror) Created(ctx context.Context, task domain.Task) {
	if _, err := m.client.CreateTask(ctx, task); err != nil {
		m.logger.Warn("failed to mirror created task", zap.Int64("task_id", task.ID), zap.Error(err))
	}
}

func (m *Mirror) Updated(ctx context.Context, task domain.Task) {
	if _, err := m.client.UpdateTask(ctx, task); err != nil {
		m.logger.Warn("failed to mirror updated task", zap.Int64("task_id", task.ID), zap.Error(err))
	}
}

func (m *Mirror) Deleted(ctx context.Context, id int64) {
	if err := m.client.DeleteTask(ctx, id); err != nil {
		m.logger.Warn("failed to mirror deleted task", zap.Int64("task_id", id), zap.Error(err))
	}
}
