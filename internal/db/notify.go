package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Notifier announces escalated sessions on a Postgres channel so clinic
// staff tooling can react without polling the transcript tables.
type Notifier struct {
	DB      *sql.DB
	DSN     string
	Channel string
	Log     *zap.Logger
}

// NewNotifier constructs a Notifier. The channel should match the
// POSTGRES_NOTIFY_CHANNEL environment variable on the consuming side.
func NewNotifier(db *sql.DB, dsn, channel string, log *zap.Logger) *Notifier {
	return &Notifier{DB: db, DSN: dsn, Channel: channel, Log: log}
}

// Notify publishes a session id on the channel.
func (n *Notifier) Notify(ctx context.Context, sessionID string) error {
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, sessionID)
	return err
}

// Listen yields session ids as they are announced. The returned channel is
// closed when the context is cancelled. A dedicated pq listener connection is
// used so notifications do not interfere with pooled queries.
func (n *Notifier) Listen(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(n.DSN, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil && n.Log != nil {
			n.Log.Warn("pq listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(n.Channel); err != nil {
		_ = listener.Close()
		return nil, err
	}
	ch := make(chan string)
	go func() {
		defer func() {
			_ = listener.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case note, ok := <-listener.Notify:
				if !ok {
					return
				}
				if note == nil {
					// Reconnect signal; the listener resubscribes itself.
					continue
				}
				select {
				case ch <- note.Extra:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				go func() { _ = listener.Ping() }()
			}
		}
	}()
	return ch, nil
}
