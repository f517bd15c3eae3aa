// Package postgres provides a tally.Feed implementation for PostgreSQL
// using LISTEN/NOTIFY.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zoobzio/tally"
)

// DefaultChannel is the notification channel listened on.
const DefaultChannel = "tally_changes"

// Feed emits a tally.Change for every notification on the channel whose
// payload names a watched table. Requires triggers on the watched tables
// that send notifications.
//
// Example trigger setup:
//
//	CREATE OR REPLACE FUNCTION notify_tally_change() RETURNS trigger AS $$
//	BEGIN
//	    PERFORM pg_notify('tally_changes', TG_TABLE_NAME || ':' || TG_OP);
//	    RETURN COALESCE(NEW, OLD);
//	END;
//	$$ LANGUAGE plpgsql;
//
//	CREATE TRIGGER clientes_tally_trigger
//	    AFTER INSERT OR UPDATE OR DELETE ON clientes
//	    FOR EACH ROW EXECUTE FUNCTION notify_tally_change();
//
// The payload format is "table" or "table:kind"; the kind passes through to
// tally.Change.Kind untouched.
type Feed struct {
	pool    *pgxpool.Pool
	channel string
	tables  map[string]bool
}

// Option configures a Feed.
type Option func(*Feed)

// WithChannel sets the notification channel.
// Defaults to DefaultChannel.
func WithChannel(channel string) Option {
	return func(f *Feed) {
		f.channel = channel
	}
}

// New creates a Feed watching the given tables. Notifications for other
// tables on the same channel are ignored.
func New(pool *pgxpool.Pool, tables []string, opts ...Option) *Feed {
	f := &Feed{
		pool:    pool,
		channel: DefaultChannel,
		tables:  make(map[string]bool, len(tables)),
	}
	for _, t := range tables {
		f.tables[t] = true
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Watch begins listening and returns a channel that emits a tally.Change
// per notification on a watched table. The channel closes when the context
// is canceled; connection drops are not retried within this contract.
func (f *Feed) Watch(ctx context.Context) (<-chan tally.Change, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf("LISTEN %s", f.channel)); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on channel %s: %w", f.channel, err)
	}

	out := make(chan tally.Change)

	go func() {
		defer close(out)
		defer conn.Release()

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}

			table, kind := splitPayload(notification.Payload)
			if !f.tables[table] {
				continue
			}

			select {
			case out <- tally.Change{Table: table, Kind: kind}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// splitPayload parses "table" or "table:kind".
func splitPayload(payload string) (table, kind string) {
	if i := strings.IndexByte(payload, ':'); i >= 0 {
		return payload[:i], payload[i+1:]
	}
	return payload, ""
}

// Ensure Feed implements tally.Feed.
var _ tally.Feed = (*Feed)(nil)
