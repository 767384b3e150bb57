package workers

import (
	"context"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/services"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// HealthWorker periodically recomputes aggregate statistics, refreshes the
// capacity gauges, and logs warnings when queue depth or profile count passes
// the configured thresholds. Warnings are the backpressure signal; they never
// fail the process.
type HealthWorker struct {
	statistics *services.StatisticsService
	logger     *logging.ChanneledLogger
}

// NewHealthWorker creates the health worker.
func NewHealthWorker(statistics *services.StatisticsService, logger *logging.ChanneledLogger) *HealthWorker {
	return &HealthWorker{statistics: statistics, logger: logger}
}

// Start runs the health loop until the context is cancelled.
func (w *HealthWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(config.HealthCheckInterval)
	defer ticker.Stop()

	w.logger.Worker().Info("Health worker started", "interval", config.HealthCheckInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Worker().Info("Health worker stopping")
			return
		case <-ticker.C:
			w.RunCheck()
		}
	}
}

// RunCheck performs one statistics pass with threshold warnings.
func (w *HealthWorker) RunCheck() {
	stats := w.statistics.Statistics()

	metrics.ActiveProfiles.Set(float64(stats.ProfileCount))
	metrics.ActiveSessions.Set(float64(stats.ActiveSessions))
	metrics.QueueDepth.WithLabelValues("realtime").Set(float64(stats.RealTimeQueue.Depth))
	metrics.QueueDepth.WithLabelValues("trigger").Set(float64(stats.TriggerQueue.Depth))

	if stats.RealTimeQueue.Depth > config.QueueDepthWarnThreshold {
		w.logger.Alert().Warn("Real-time queue depth above threshold",
			"depth", stats.RealTimeQueue.Depth,
			"threshold", config.QueueDepthWarnThreshold)
	}
	if stats.TriggerQueue.Depth > config.QueueDepthWarnThreshold {
		w.logger.Alert().Warn("Trigger queue depth above threshold",
			"depth", stats.TriggerQueue.Depth,
			"threshold", config.QueueDepthWarnThreshold)
	}
	if stats.ProfileCount > config.ProfileCountWarnThreshold {
		w.logger.Alert().Warn("Profile count above threshold",
			"profiles", stats.ProfileCount,
			"threshold", config.ProfileCountWarnThreshold)
	}

	w.logger.Worker().Debug("Health check completed",
		"profiles", stats.ProfileCount,
		"sessions", stats.ActiveSessions,
		"eventsProcessed", stats.EventsProcessed,
		"eventsShed", stats.EventsShed,
		"avgEngagement", stats.AvgEngagementScore)
}
