package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/todokeeper/internal/reminder"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dedupPrefix = "todo:reminder:"

// DedupNotifier suppresses reminders already delivered for the same task and
// due date within ttl. Marks are claimed with SETNX before delivery and
// released again if the wrapped notifier fails.
type DedupNotifier struct {
	client *redis.Client
	next   reminder.Notifier
	ttl    time.Duration
	logger *zap.Logger
}

func NewDedupNotifier(client *redis.Client, next reminder.Notifier, ttl time.Duration, logger *zap.Logger) *DedupNotifier {
	return &DedupNotifier{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

func (d *DedupNotifier) Notify(ctx context.Context, r reminder.Reminder) error {
	key := dedupKey(r)

	claimed, err := d.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to claim reminder mark: %w", err)
	}
	if !claimed {
		d.logger.Debug("reminder already delivered", zap.Int64("task_id", r.Task.ID))
		return nil
	}

	if err := d.next.Notify(ctx, r); err != nil {
		if delErr := d.client.Del(ctx, key).Err(); delErr != nil {
			d.logger.Warn("failed to release reminder mark",
				zap.String("key", key),
				zap.Error(delErr),
			)
		}
		return err
	}
	return nil
}

func dedupKey(r reminder.Reminder) string {
	var due int64
	if !r.DueDate.IsZero() {
		due = r.DueDate.Unix()
	}
	return fmt.Sprintf("%s%d:%d", dedupPrefix, r.Task.ID, due)
}
