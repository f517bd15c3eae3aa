// Package prometheus provides a tally.MetricsProvider backed by
// Prometheus collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zoobzio/tally"
)

// Provider implements tally.MetricsProvider over Prometheus collectors.
// Register it on a Board with Board.Metrics.
type Provider struct {
	refreshDuration *prometheus.HistogramVec
	actionFailures  *prometheus.CounterVec
	changesReceived prometheus.Counter
}

// New creates a Provider and registers its collectors on reg.
// Pass prometheus.DefaultRegisterer to use the default registry.
func New(reg prometheus.Registerer) *Provider {
	p := &Provider{
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tally",
			Name:      "refresh_duration_seconds",
			Help:      "Snapshot refresh duration by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		actionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "action_failures_total",
			Help:      "Failed user actions by category.",
		}, []string{"action"}),
		changesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "feed_changes_received_total",
			Help:      "Change events received from the realtime feed.",
		}),
	}
	reg.MustRegister(p.refreshDuration, p.actionFailures, p.changesReceived)
	return p
}

// OnRefreshSuccess records a successful refresh.
func (p *Provider) OnRefreshSuccess(d time.Duration) {
	p.refreshDuration.WithLabelValues("success").Observe(d.Seconds())
}

// OnRefreshFailure records a failed refresh.
func (p *Provider) OnRefreshFailure(d time.Duration) {
	p.refreshDuration.WithLabelValues("failure").Observe(d.Seconds())
}

// OnActionFailure records a failed user action.
func (p *Provider) OnActionFailure(action string) {
	p.actionFailures.WithLabelValues(action).Inc()
}

// OnChangeReceived records a feed event.
func (p *Provider) OnChangeReceived() {
	p.changesReceived.Inc()
}

// Ensure Provider implements tally.MetricsProvider.
var _ tally.MetricsProvider = (*Provider)(nil)
