package workers

import (
	"context"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// TriggerDrainWorker drains queued personalization triggers, marking session
// trigger counts and touching last-activity timestamps.
type TriggerDrainWorker struct {
	queue  *caching.EventQueue
	store  *caching.Store
	logger *logging.ChanneledLogger
}

// NewTriggerDrainWorker creates the trigger drain worker.
func NewTriggerDrainWorker(queue *caching.EventQueue, store *caching.Store, logger *logging.ChanneledLogger) *TriggerDrainWorker {
	return &TriggerDrainWorker{queue: queue, store: store, logger: logger}
}

// Start runs the drain loop until the context is cancelled.
func (w *TriggerDrainWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(config.TriggerDrainInterval)
	defer ticker.Stop()

	w.logger.Worker().Info("Trigger drain worker started",
		"interval", config.TriggerDrainInterval,
		"batchSize", config.TriggerDrainBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.drainBatch()
			w.logger.Worker().Info("Trigger drain worker stopping")
			return
		case <-ticker.C:
			w.drainBatch()
		}
	}
}

func (w *TriggerDrainWorker) drainBatch() {
	batch := w.queue.DrainBatch(config.TriggerDrainBatchSize)
	for _, event := range batch {
		w.processOne(event)
	}
}

func (w *TriggerDrainWorker) processOne(event *events.BehaviorEvent) {
	session, exists := w.store.GetSession(event.SessionID)
	if !exists {
		// No personalization session was started for this visitor; the
		// trigger carries no work.
		return
	}

	lock := w.store.SessionLock(event.SessionID)
	lock.Lock()
	session.TriggerCount++
	session.LastActivity = time.Now().UTC()
	lock.Unlock()

	w.logger.Worker().Debug("Personalization trigger drained",
		"sessionId", event.SessionID,
		"eventId", event.EventID)
}
