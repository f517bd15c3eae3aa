package tally

import "context"

// Change is an opaque notification that a watched table changed. Feeds carry
// no delta payload; the contract is "something changed, go re-fetch".
type Change struct {
	// Table is the server-side table the event refers to.
	Table string

	// Kind is the event kind as reported by the feed (insert, update,
	// delete), or empty when the transport does not distinguish.
	Kind string
}

// Feed observes a realtime change source and emits a Change for every event
// on the watched tables.
type Feed interface {
	// Watch begins observing the source and returns a channel that emits a
	// Change per event. The channel is closed when the context is canceled
	// or the subscription drops; feeds do not manage reconnection within
	// this contract (whatever the underlying channel offers is inherited).
	Watch(ctx context.Context) (<-chan Change, error)
}

// NoFeed returns a Feed that never emits. It is the explicit
// degrade-to-disabled policy for boards whose realtime configuration is
// absent: the board runs pull-only, and that is not an error.
func NoFeed() Feed {
	return noFeed{}
}

type noFeed struct{}

func (noFeed) Watch(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

// ChannelFeed wraps an existing Change channel as a Feed.
// Useful for testing and custom sources that already produce events.
type ChannelFeed struct {
	ch   <-chan Change
	sync bool
}

// NewChannelFeed creates a ChannelFeed that forwards events from the given
// channel through an internal goroutine.
func NewChannelFeed(ch <-chan Change) *ChannelFeed {
	return &ChannelFeed{ch: ch, sync: false}
}

// NewSyncChannelFeed creates a ChannelFeed that returns the source channel
// directly without an intermediate goroutine, for deterministic tests.
func NewSyncChannelFeed(ch <-chan Change) *ChannelFeed {
	return &ChannelFeed{ch: ch, sync: true}
}

// Watch returns a channel that emits events from the wrapped channel.
func (f *ChannelFeed) Watch(ctx context.Context) (<-chan Change, error) {
	if f.sync {
		return f.ch, nil
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-f.ch:
				if !ok {
					return
				}
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
