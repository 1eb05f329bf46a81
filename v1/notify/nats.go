package notify

import (
	"context"
	"encoding/json"

	nats "github.com/nats-io/nats.go"
)

const defaultNATSSubject = "booksphere.notifications"

// NATS publishes events to a NATS subject.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// NATSOption configures a NATS notifier.
type NATSOption func(*NATS)

// WithSubject overrides the subject events are published to.
func WithSubject(s string) NATSOption {
	return func(n *NATS) {
		n.subject = s
	}
}

// NewNATS returns a Notifier publishing on the provided connection.
func NewNATS(conn *nats.Conn, opts ...NATSOption) *NATS {
	n := &NATS{conn: conn, subject: defaultNATSSubject}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Publish implements Notifier.Publish.
func (n *NATS) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, data)
}
