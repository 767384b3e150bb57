// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTracked counts accepted events by priority path.
	EventsTracked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsetrack",
		Name:      "events_tracked_total",
		Help:      "Behavior events accepted for processing, by path.",
	}, []string{"path"})

	// EventsShed counts events dropped under queue pressure, per queue, so
	// real-time shedding and trigger overflow stay distinguishable.
	EventsShed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsetrack",
		Name:      "events_shed_total",
		Help:      "Events dropped because a queue passed its shed watermark or filled up.",
	}, []string{"queue"})

	// QueueDepth tracks current depth of the bounded queues.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pulsetrack",
		Name:      "queue_depth",
		Help:      "Current depth of the processing queues.",
	}, []string{"queue"})

	// ActiveProfiles tracks the number of behavior profiles in memory.
	ActiveProfiles = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pulsetrack",
		Name:      "active_profiles",
		Help:      "Behavior profiles currently held in the store.",
	})

	// ActiveSessions tracks the number of personalization sessions in memory.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pulsetrack",
		Name:      "active_sessions",
		Help:      "Personalization sessions currently held in the store.",
	})

	// RuleMatches counts rules matched during recommendation evaluation.
	RuleMatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pulsetrack",
		Name:      "rule_matches_total",
		Help:      "Rules matched by the evaluation engine.",
	})

	// RuleApplications counts applied personalizations by outcome.
	RuleApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsetrack",
		Name:      "rule_applications_total",
		Help:      "ApplyPersonalization calls, by outcome.",
	}, []string{"outcome"})

	// RecommendationLatency observes end-to-end recommendation generation time.
	RecommendationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pulsetrack",
		Name:      "recommendation_latency_seconds",
		Help:      "Latency of GetPersonalizationRecommendations.",
		Buckets:   prometheus.DefBuckets,
	})

	// CollectorFailures counts failed deliveries to the external collector.
	CollectorFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pulsetrack",
		Name:      "collector_failures_total",
		Help:      "Best-effort external collector deliveries that failed or timed out.",
	})

	// ProfilesEvicted counts profiles removed by retention or capacity eviction.
	ProfilesEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsetrack",
		Name:      "profiles_evicted_total",
		Help:      "Profiles evicted from the store, by reason.",
	}, []string{"reason"})
)
