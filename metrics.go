package tally

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus,
// StatsD, etc. Implement this interface to receive callbacks on key board
// events. An adapter for Prometheus lives in pkg/prometheus.
type MetricsProvider interface {
	// OnRefreshSuccess is called when a refresh replaces the snapshot.
	// Duration covers both fetches and the apply.
	OnRefreshSuccess(duration time.Duration)

	// OnRefreshFailure is called when a refresh fails and the prior
	// snapshot is retained.
	OnRefreshFailure(duration time.Duration)

	// OnActionFailure is called when a user-triggered action fails.
	// Action is one of "sync", "export", "submit", "delete".
	OnActionFailure(action string)

	// OnChangeReceived is called for every event received from the feed.
	OnChangeReceived()
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnRefreshSuccess(_ time.Duration) {}
func (NoOpMetricsProvider) OnRefreshFailure(_ time.Duration) {}
func (NoOpMetricsProvider) OnActionFailure(_ string)         {}
func (NoOpMetricsProvider) OnChangeReceived()                {}
