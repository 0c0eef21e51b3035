package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync outcomes
const (
	OutcomeNoop   = "noop"
	OutcomeSynced = "synced"
	OutcomeFailed = "failed"
)

// Push send results
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

var (
	registry = prometheus.NewRegistry()

	// DeviceSyncs counts device sync attempts by outcome
	DeviceSyncs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rsvp",
		Name:      "device_syncs_total",
		Help:      "Device sync attempts by outcome.",
	}, []string{"outcome"})

	// RsvpsSynced counts subscription rows rewritten by device syncs and sweeps
	RsvpsSynced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rsvp",
		Name:      "rsvps_synced_total",
		Help:      "RSVP device mirrors rewritten.",
	})

	// PushSends counts provider sends by provider and result
	PushSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rsvp",
		Name:      "push_sends_total",
		Help:      "Push sends by provider and result.",
	}, []string{"provider", "result"})

	// ChangesDropped counts changes that never reached the dispatch queue
	ChangesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rsvp",
		Name:      "changes_dropped_total",
		Help:      "Changes dropped before dispatch, by kind.",
	}, []string{"kind"})

	// FanoutRecipients observes how many subscribers one change reached
	FanoutRecipients = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rsvp",
		Name:      "fanout_recipients",
		Help:      "Eligible subscribers per event change.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"category"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		DeviceSyncs,
		RsvpsSynced,
		PushSends,
		ChangesDropped,
		FanoutRecipients,
	)
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
