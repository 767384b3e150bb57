package services

import (
	"context"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/collector"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/analytics"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// TrackingService is the event intake path: enrich synchronously, then either
// process high-priority events inline or hand the event to the drain workers.
// Intake never fails; every downstream error is logged and swallowed.
type TrackingService struct {
	store      *caching.Store
	enrichment *EnrichmentService
	profiles   *ProfileService
	collector  collector.Collector
	repository *analytics.SQLEventRepository

	realTimeQueue *caching.EventQueue
	triggerQueue  *caching.EventQueue

	logger *logging.ChanneledLogger
}

// NewTrackingService creates the tracking service. The repository may be nil
// when durable persistence is disabled.
func NewTrackingService(
	store *caching.Store,
	enrichment *EnrichmentService,
	profileService *ProfileService,
	eventCollector collector.Collector,
	repository *analytics.SQLEventRepository,
	realTimeQueue, triggerQueue *caching.EventQueue,
	logger *logging.ChanneledLogger,
) *TrackingService {
	return &TrackingService{
		store:         store,
		enrichment:    enrichment,
		profiles:      profileService,
		collector:     eventCollector,
		repository:    repository,
		realTimeQueue: realTimeQueue,
		triggerQueue:  triggerQueue,
		logger:        logger,
	}
}

// TrackBehaviorEvent enriches and routes one raw event. It always returns an
// event id; high-priority events are fully processed before it returns.
func (s *TrackingService) TrackBehaviorEvent(ctx context.Context, event *events.BehaviorEvent) string {
	if event.EventID == "" {
		event.EventID = security.GenerateULID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	profile := s.profiles.GetOrCreate(event.SessionID, event.UserID)

	lock := s.store.SessionLock(event.SessionID)
	lock.Lock()
	s.enrichment.EnrichEvent(event, profile)
	lock.Unlock()

	if event.IsHighPriority() {
		s.processFastPath(ctx, event)
		metrics.EventsTracked.WithLabelValues("fast").Inc()
		return event.EventID
	}

	if !s.realTimeQueue.Enqueue(event) {
		s.store.AddEventsShed(1)
		s.logger.Alert().Warn("Event shed under queue pressure",
			"eventId", event.EventID,
			"sessionId", event.SessionID,
			"queueDepth", s.realTimeQueue.Depth())
		metrics.EventsTracked.WithLabelValues("shed").Inc()
		return event.EventID
	}
	if !s.triggerQueue.Enqueue(event) {
		// Trigger evaluation is advisory; the event still reaches the
		// real-time drain, so this is not counted as shed.
		s.logger.Worker().Debug("Trigger queue full, rule trigger dropped",
			"eventId", event.EventID,
			"sessionId", event.SessionID)
	}
	metrics.EventsTracked.WithLabelValues("queued").Inc()
	return event.EventID
}

// processFastPath applies the event synchronously, notifies the external
// collector within a bounded timeout, and persists the event. Failures on the
// collector or persistence are recorded and swallowed.
func (s *TrackingService) processFastPath(ctx context.Context, event *events.BehaviorEvent) {
	s.ProcessEvent(event)
	s.store.AddFastPathEvents(1)

	collectorCtx, cancel := context.WithTimeout(ctx, config.CollectorTimeout)
	defer cancel()
	err := s.collector.CollectEvent(collectorCtx, event.SessionID, "behavior", "engine", event.Type, map[string]any{
		"subtype":        event.Subtype,
		"intentStrength": event.Signals.IntentStrength,
		"urgency":        string(event.Signals.UrgencyLevel),
	})
	if err != nil {
		s.logger.Analytics().Warn("Fast-path collector delivery failed", "eventId", event.EventID, "error", err.Error())
	}

	s.PersistEvent(event)
}

// ProcessEvent folds an enriched event into its profile under the session
// lock and refreshes the deterministic predictions. Used by both the fast
// path and the real-time drain worker.
func (s *TrackingService) ProcessEvent(event *events.BehaviorEvent) {
	profile := s.profiles.GetOrCreate(event.SessionID, event.UserID)

	lock := s.store.SessionLock(event.SessionID)
	lock.Lock()
	defer lock.Unlock()

	s.profiles.ApplyEvent(profile, event)
	s.profiles.RefreshPredictions(profile)
	s.store.AddEventsProcessed(1)
}

// PersistEvent writes the enriched event to the durable store, best effort.
func (s *TrackingService) PersistEvent(event *events.BehaviorEvent) {
	if s.repository == nil {
		return
	}
	if err := s.repository.StoreBehaviorEvent(event); err != nil {
		s.logger.Database().Warn("Behavior event persistence failed", "eventId", event.EventID, "error", err.Error())
	}
}
