// internal/realtime/listener.go
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Listener holds a dedicated Postgres connection in LISTEN mode and feeds
// notifications into the hub. The connection is separate from the pooled
// query connections: LISTEN pins a session.
type Listener struct {
	dsn     string
	channel string
	hub     *Hub
	logger  *slog.Logger
}

func NewListener(dsn, channel string, hub *Hub, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		dsn:     dsn,
		channel: channel,
		hub:     hub,
		logger:  logger,
	}
}

// Run listens until ctx is cancelled, reconnecting with backoff on failure.
// Notifications that fail to decode are logged and skipped; a malformed
// payload must not wedge the feed.
func (l *Listener) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Warn("realtime listener disconnected", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connecting listener: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listening on %s: %w", l.channel, err)
	}
	l.logger.Info("realtime listener connected", "channel", l.channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}

		var ev Event
		if err := json.Unmarshal([]byte(notification.Payload), &ev); err != nil {
			l.logger.Warn("dropping undecodable realtime payload", "error", err)
			continue
		}
		l.hub.Dispatch(ev)
	}
}
