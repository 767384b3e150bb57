// Package workers hosts the four periodic loops operating over shared state.
package workers

import (
	"context"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/services"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// RealTimeDrainWorker drains the real-time event queue in small batches,
// folding each event into its profile and refreshing predictions.
type RealTimeDrainWorker struct {
	queue    *caching.EventQueue
	tracking *services.TrackingService
	logger   *logging.ChanneledLogger
}

// NewRealTimeDrainWorker creates the real-time drain worker.
func NewRealTimeDrainWorker(queue *caching.EventQueue, tracking *services.TrackingService, logger *logging.ChanneledLogger) *RealTimeDrainWorker {
	return &RealTimeDrainWorker{queue: queue, tracking: tracking, logger: logger}
}

// Start runs the drain loop until the context is cancelled. Cancellation is
// honored at batch boundaries; the in-flight batch always completes.
func (w *RealTimeDrainWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(config.RealTimeDrainInterval)
	defer ticker.Stop()

	w.logger.Worker().Info("Real-time drain worker started",
		"interval", config.RealTimeDrainInterval,
		"batchSize", config.RealTimeDrainBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.drainBatch()
			w.logger.Worker().Info("Real-time drain worker stopping")
			return
		case <-ticker.C:
			w.drainBatch()
		}
	}
}

func (w *RealTimeDrainWorker) drainBatch() {
	batch := w.queue.DrainBatch(config.RealTimeDrainBatchSize)
	if len(batch) == 0 {
		return
	}

	start := time.Now()
	for _, event := range batch {
		w.processOne(event)
	}
	w.logger.Worker().Debug("Real-time batch drained",
		"events", len(batch),
		"duration", time.Since(start))
}

// processOne isolates per-event failures so one bad event cannot halt the loop.
func (w *RealTimeDrainWorker) processOne(event *events.BehaviorEvent) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Worker().Error("Panic recovered while processing event",
				"eventId", event.EventID, "sessionId", event.SessionID, "panic", r)
		}
	}()

	w.tracking.ProcessEvent(event)
	w.tracking.PersistEvent(event)
}
