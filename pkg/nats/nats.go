// Package nats provides a tally.Feed implementation for NATS using
// subject-per-table subscriptions.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/zoobzio/tally"
)

// DefaultSubjectPrefix is prepended to table names to form subjects.
const DefaultSubjectPrefix = "tables."

// Feed emits a tally.Change for every message published on a watched
// table's subject. The message body, if any, is carried through as the
// change kind; no payload contract beyond "something changed" is assumed.
type Feed struct {
	nc     *nats.Conn
	tables []string
	prefix string
}

// Option configures a Feed.
type Option func(*Feed)

// WithSubjectPrefix sets the subject prefix.
// Defaults to DefaultSubjectPrefix.
func WithSubjectPrefix(prefix string) Option {
	return func(f *Feed) {
		f.prefix = prefix
	}
}

// New creates a Feed for the given tables on an established connection.
func New(nc *nats.Conn, tables []string, opts ...Option) *Feed {
	f := &Feed{
		nc:     nc,
		tables: tables,
		prefix: DefaultSubjectPrefix,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Watch subscribes to each table's subject and returns a channel that emits
// a tally.Change per message. Subscriptions are drained when the context is
// canceled; reconnection behavior is whatever the underlying connection
// offers.
func (f *Feed) Watch(ctx context.Context) (<-chan tally.Change, error) {
	// Callbacks write to inbox, never to out, so closing out is safe while
	// late deliveries are still in flight. Overflow drops are acceptable:
	// the feed contract only promises at least one refresh follows.
	inbox := make(chan tally.Change, 64)
	subs := make([]*nats.Subscription, 0, len(f.tables))

	for _, table := range f.tables {
		table := table
		sub, err := f.nc.Subscribe(f.prefix+table, func(msg *nats.Msg) {
			select {
			case inbox <- tally.Change{Table: table, Kind: string(msg.Data)}:
			default:
			}
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, fmt.Errorf("failed to subscribe to table %s: %w", table, err)
		}
		subs = append(subs, sub)
	}

	out := make(chan tally.Change)
	go func() {
		defer close(out)
		defer func() {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-inbox:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Ensure Feed implements tally.Feed.
var _ tally.Feed = (*Feed)(nil)
