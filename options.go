package tally

import (
	"context"

	"github.com/zoobzio/pipz"
)

// refreshID names the terminal processor that triggers the silent refresh.
const refreshID pipz.Name = "feed-refresh"

// Option configures the processing pipeline for a Board's feed changes.
// Options wrap the refresh trigger with middleware for filtering and
// observation. Instance configuration (clock, debounce, toast duration, etc.)
// is handled via chainable methods on the Board before calling Start().
type Option func(pipz.Chainable[*Change]) pipz.Chainable[*Change]

// buildPipeline wraps a terminal with pipeline options.
func buildPipeline(terminal pipz.Chainable[*Change], opts []Option) pipz.Chainable[*Change] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// WithFeedFilter adds conditional processing to the feed path.
//
// Changes only trigger a refresh when they pass the predicate; events that
// don't match are silently skipped. Useful for boards that only care about a
// subset of the feed's tables.
//
// Example:
//
//	tally.WithFeedFilter(func(c tally.Change) bool {
//	    return c.Table == "clientes"
//	})
func WithFeedFilter(predicate func(Change) bool) Option {
	wrapper := func(_ context.Context, c *Change) bool {
		return predicate(*c)
	}
	return func(p pipz.Chainable[*Change]) pipz.Chainable[*Change] {
		return pipz.NewFilter("feed-filter", wrapper, p)
	}
}

// WithErrorHandler adds error observation to the feed path. Refresh errors
// are passed to the handler for logging, metrics, or alerting, but still
// propagate into the board's error state. Use this for observability, not
// recovery.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*Change]]) Option {
	return func(p pipz.Chainable[*Change]) pipz.Chainable[*Change] {
		return pipz.NewHandle("error-handler", p, handler)
	}
}

// WithMiddleware wraps the feed path with a sequence of processors.
// Processors execute in order, with the refresh trigger last.
//
// Use the Use* functions to create processors for common patterns, or
// provide custom pipz.Chainable implementations directly.
func WithMiddleware(processors ...pipz.Chainable[*Change]) Option {
	return func(p pipz.Chainable[*Change]) pipz.Chainable[*Change] {
		all := make([]pipz.Chainable[*Change], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence("middleware", all...)
	}
}

// UseTransform creates a processor that rewrites the change event.
// Cannot fail. Use for pure transformations that always succeed.
func UseTransform(name string, fn func(context.Context, *Change) *Change) pipz.Chainable[*Change] {
	return pipz.Transform(pipz.Name(name), fn)
}

// UseEffect creates a processor that performs a side effect. The change
// passes through unchanged. Use for logging, metrics, or notifications.
func UseEffect(name string, fn func(context.Context, *Change) error) pipz.Chainable[*Change] {
	return pipz.Effect(pipz.Name(name), fn)
}
