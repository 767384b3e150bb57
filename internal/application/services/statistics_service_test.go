package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/collector"
)

func newStatisticsFixture(t *testing.T) (*StatisticsService, *TrackingService, *caching.Store) {
	t.Helper()
	logger := newTestLogger(t)
	store := caching.NewStore(logger)
	enrichment := NewEnrichmentService(logger)
	profileService := NewProfileService(store, nil, logger)
	realTimeQueue := caching.NewEventQueue("realtime", 64, 0)
	triggerQueue := caching.NewEventQueue("trigger", 64, 0)
	tracking := NewTrackingService(store, enrichment, profileService, collector.NoopCollector{}, nil, realTimeQueue, triggerQueue, logger)
	statistics := NewStatisticsService(store, realTimeQueue, triggerQueue, logger)
	return statistics, tracking, store
}

func TestStatisticsAggregatesEngagement(t *testing.T) {
	statistics, _, store := newStatisticsFixture(t)

	store.GetOrCreateProfile("sess-1", "").RealTime.EngagementScore = 40
	store.GetOrCreateProfile("sess-2", "").RealTime.EngagementScore = 80

	snapshot := statistics.Statistics()
	assert.Equal(t, 2, snapshot.ProfileCount)
	assert.InDelta(t, 60.0, snapshot.AvgEngagementScore, 0.001)
}

func TestProfileUnknownSessionErrors(t *testing.T) {
	statistics, _, _ := newStatisticsFixture(t)

	_, err := statistics.Profile("ghost-session")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestProfileSnapshotIndependentOfLiveProfile(t *testing.T) {
	statistics, tracking, store := newStatisticsFixture(t)

	// Purchase events take the fast path, so the profile is mutated inline.
	seed := &events.BehaviorEvent{SessionID: "sess-snap", Type: events.TypePurchase, Subtype: events.SubtypePurchase, ContentID: "product-1"}
	tracking.TrackBehaviorEvent(context.Background(), seed)

	snapshot, err := statistics.Profile("sess-snap")
	require.NoError(t, err)

	live, exists := store.GetProfile("sess-snap")
	require.True(t, exists)
	require.NotSame(t, live, snapshot)

	// Mutating the snapshot leaves the live profile untouched.
	snapshot.ContentPreferences["product"] = 0.9
	snapshot.RealTime.PredictedActions = append(snapshot.RealTime.PredictedActions, "exit")
	assert.InDelta(t, 0.1, live.ContentPreferences["product"], 0.001)
	assert.Len(t, live.RealTime.PredictedActions, 1)

	// Further events leave the snapshot untouched.
	engagementBefore := snapshot.RealTime.EngagementScore
	next := &events.BehaviorEvent{SessionID: "sess-snap", Type: events.TypePurchase, Subtype: events.SubtypeAddToCart, ContentID: "product-1"}
	tracking.TrackBehaviorEvent(context.Background(), next)
	assert.Equal(t, engagementBefore, snapshot.RealTime.EngagementScore)
}

func TestProfileReadsSafeDuringConcurrentUpdates(t *testing.T) {
	statistics, tracking, _ := newStatisticsFixture(t)

	seed := &events.BehaviorEvent{SessionID: "sess-live", Type: events.TypePurchase, Subtype: events.SubtypePurchase, ContentID: "product-1"}
	tracking.TrackBehaviorEvent(context.Background(), seed)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			event := &events.BehaviorEvent{SessionID: "sess-live", Type: events.TypePurchase, Subtype: events.SubtypeAddToCart, ContentID: "pricing-page"}
			tracking.TrackBehaviorEvent(context.Background(), event)
		}
	}()

	// Serializing snapshots while the writer mutates the live profile must
	// never observe a partially written map or slice.
	for i := 0; i < 200; i++ {
		snapshot, err := statistics.Profile("sess-live")
		require.NoError(t, err)
		_, err = json.Marshal(snapshot)
		require.NoError(t, err)
		statistics.Statistics()
	}
	<-done
}
