package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/collector"
)

func newTrackingFixture(t *testing.T, realTimeCapacity, shedWatermark int) (*TrackingService, *caching.Store, *caching.EventQueue, *caching.EventQueue) {
	t.Helper()
	logger := newTestLogger(t)
	store := caching.NewStore(logger)
	enrichment := NewEnrichmentService(logger)
	profileService := NewProfileService(store, nil, logger)
	realTimeQueue := caching.NewEventQueue("realtime", realTimeCapacity, shedWatermark)
	triggerQueue := caching.NewEventQueue("trigger", realTimeCapacity, 0)
	svc := NewTrackingService(store, enrichment, profileService, collector.NoopCollector{}, nil, realTimeQueue, triggerQueue, logger)
	return svc, store, realTimeQueue, triggerQueue
}

func TestTrackAssignsEventIDAndEnriches(t *testing.T) {
	svc, _, realTimeQueue, triggerQueue := newTrackingFixture(t, 16, 0)

	event := &events.BehaviorEvent{SessionID: "sess-track", Type: events.TypeInteraction, Subtype: events.SubtypeHover}
	eventID := svc.TrackBehaviorEvent(context.Background(), event)

	assert.NotEmpty(t, eventID)
	assert.Equal(t, eventID, event.EventID)
	require.NotNil(t, event.Signals)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, 1, realTimeQueue.Depth())
	assert.Equal(t, 1, triggerQueue.Depth())
}

func TestHighPriorityEventBypassesQueues(t *testing.T) {
	svc, store, realTimeQueue, triggerQueue := newTrackingFixture(t, 16, 0)

	event := &events.BehaviorEvent{SessionID: "sess-fast", Type: events.TypePurchase, Subtype: events.SubtypePurchase}
	svc.TrackBehaviorEvent(context.Background(), event)

	assert.Zero(t, realTimeQueue.Depth())
	assert.Zero(t, triggerQueue.Depth())
	assert.Equal(t, int64(1), store.FastPathEvents())
	assert.Equal(t, int64(1), store.EventsProcessed())

	// The fast path already folded the event into the profile.
	profile, exists := store.GetProfile("sess-fast")
	require.True(t, exists)
	assert.Greater(t, profile.RealTime.EngagementScore, 50.0)
}

func TestQueuedEventDefersProfileUpdate(t *testing.T) {
	svc, store, realTimeQueue, _ := newTrackingFixture(t, 16, 0)

	event := &events.BehaviorEvent{SessionID: "sess-defer", Type: events.TypeInteraction, Subtype: events.SubtypeClick}
	svc.TrackBehaviorEvent(context.Background(), event)

	profile, _ := store.GetProfile("sess-defer")
	assert.Equal(t, 50.0, profile.RealTime.EngagementScore)
	assert.Equal(t, int64(0), store.EventsProcessed())

	for _, queued := range realTimeQueue.DrainBatch(10) {
		svc.ProcessEvent(queued)
	}
	assert.Equal(t, int64(1), store.EventsProcessed())
	assert.Greater(t, profile.RealTime.EngagementScore, 50.0)
}

func TestTriggerOverflowNotCountedAsShed(t *testing.T) {
	logger := newTestLogger(t)
	store := caching.NewStore(logger)
	enrichment := NewEnrichmentService(logger)
	profileService := NewProfileService(store, nil, logger)
	realTimeQueue := caching.NewEventQueue("realtime", 8, 0)
	triggerQueue := caching.NewEventQueue("trigger", 1, 0)
	svc := NewTrackingService(store, enrichment, profileService, collector.NoopCollector{}, nil, realTimeQueue, triggerQueue, logger)

	for i := 0; i < 2; i++ {
		event := &events.BehaviorEvent{SessionID: "sess-trigger", Type: events.TypeInteraction, Subtype: events.SubtypeHover}
		require.NotEmpty(t, svc.TrackBehaviorEvent(context.Background(), event))
	}

	// Both events reach the real-time drain. Only the first fits the trigger
	// queue; the dropped trigger is advisory and never counts as shedding.
	assert.Equal(t, 2, realTimeQueue.Depth())
	assert.Equal(t, 1, triggerQueue.Depth())
	assert.Equal(t, int64(0), store.EventsShed())
}

func TestSheddingCountsAndStillReturnsEventID(t *testing.T) {
	svc, store, realTimeQueue, triggerQueue := newTrackingFixture(t, 8, 1)

	first := &events.BehaviorEvent{SessionID: "sess-shed", Type: events.TypeInteraction, Subtype: events.SubtypeHover}
	require.NotEmpty(t, svc.TrackBehaviorEvent(context.Background(), first))
	require.Equal(t, 1, realTimeQueue.Depth())

	// At the watermark the next routine event is shed but still acknowledged.
	second := &events.BehaviorEvent{SessionID: "sess-shed", Type: events.TypeInteraction, Subtype: events.SubtypeHover}
	eventID := svc.TrackBehaviorEvent(context.Background(), second)

	assert.NotEmpty(t, eventID)
	assert.Equal(t, 1, realTimeQueue.Depth())
	assert.Equal(t, 1, triggerQueue.Depth())
	assert.Equal(t, int64(1), store.EventsShed())
}
