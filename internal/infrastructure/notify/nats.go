package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmehra2102/todokeeper/internal/reminder"
	"github.com/nats-io/nats.go"
)

// DefaultSubject is where reminders are published unless configured otherwise.
const DefaultSubject = "todo.reminders"

// ConnectNATS dials url with reconnect settings suitable for a long-lived service.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("todokeeper"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSNotifier publishes each reminder as a JSON Message.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
}

func NewNATSNotifier(nc *nats.Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{nc: nc, subject: subject}
}

// Notify returns once the server has acknowledged the publish via flush.
func (n *NATSNotifier) Notify(ctx context.Context, r reminder.Reminder) error {
	data, err := json.Marshal(NewMessage(r))
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}

	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish reminder: %w", err)
	}
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush reminder: %w", err)
	}
	return nil
}
