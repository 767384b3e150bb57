package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/analytics"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/profiles"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/rules"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

// StatisticsService produces the read-only snapshots of the public contract:
// engine statistics, individual profiles, the rule catalog and the clusters.
type StatisticsService struct {
	store         *caching.Store
	realTimeQueue *caching.EventQueue
	triggerQueue  *caching.EventQueue
	logger        *logging.ChanneledLogger
}

// NewStatisticsService creates the statistics service.
func NewStatisticsService(store *caching.Store, realTimeQueue, triggerQueue *caching.EventQueue, logger *logging.ChanneledLogger) *StatisticsService {
	return &StatisticsService{
		store:         store,
		realTimeQueue: realTimeQueue,
		triggerQueue:  triggerQueue,
		logger:        logger,
	}
}

// Statistics returns the aggregate engine snapshot. Per-profile reads take
// the session lock so concurrent event application never races them.
func (s *StatisticsService) Statistics() *analytics.EngineStatistics {
	var engagementSum float64
	profileCount := 0
	for _, sessionID := range s.store.ProfileSessionIDs() {
		profile, exists := s.store.GetProfile(sessionID)
		if !exists {
			continue
		}
		lock := s.store.SessionLock(sessionID)
		lock.Lock()
		engagementSum += profile.RealTime.EngagementScore
		lock.Unlock()
		profileCount++
	}

	avgEngagement := 0.0
	if profileCount > 0 {
		avgEngagement = engagementSum / float64(profileCount)
	}

	clusterSizes := make(map[string]int)
	for clusterID, ids := range s.store.ClusterIndex() {
		clusterSizes[clusterID] = len(ids)
	}
	segmentSizes := make(map[string]int)
	for segment, ids := range s.store.SegmentIndex() {
		segmentSizes[segment] = len(ids)
	}

	now := time.Now().UTC()
	return &analytics.EngineStatistics{
		ProfileCount:    profileCount,
		ActiveSessions:  s.store.SessionCount(),
		RuleCount:       s.store.RuleCount(),
		EventsProcessed: s.store.EventsProcessed(),
		EventsShed:      s.store.EventsShed(),
		FastPathEvents:  s.store.FastPathEvents(),
		RuleActivations: s.store.RuleActivationsTotal(),
		RealTimeQueue: analytics.QueueStats{
			Depth:    s.realTimeQueue.Depth(),
			Capacity: s.realTimeQueue.Capacity(),
		},
		TriggerQueue: analytics.QueueStats{
			Depth:    s.triggerQueue.Depth(),
			Capacity: s.triggerQueue.Capacity(),
		},
		AvgEngagementScore: avgEngagement,
		ClusterSizes:       clusterSizes,
		SegmentSizes:       segmentSizes,
		UptimeSeconds:      now.Sub(s.store.StartedAt()).Seconds(),
		GeneratedAt:        now,
	}
}

// Profile returns a snapshot of the behavior profile for one session. The
// copy is taken under the session lock; callers may serialize it freely while
// events keep mutating the live profile.
func (s *StatisticsService) Profile(sessionID string) (*profiles.BehaviorProfile, error) {
	profile, exists := s.store.GetProfile(sessionID)
	if !exists {
		return nil, fmt.Errorf("profile for %q: %w", sessionID, ErrSessionNotFound)
	}

	lock := s.store.SessionLock(sessionID)
	lock.Lock()
	snapshot := profile.Clone()
	lock.Unlock()
	return snapshot, nil
}

// Rules returns the full rule catalog.
func (s *StatisticsService) Rules() []*rules.PersonalizationRule {
	return s.store.AllRules()
}

// Clusters summarizes the behavioral clusters from the current index.
func (s *StatisticsService) Clusters() []*analytics.ClusterSnapshot {
	clusterIndex := s.store.ClusterIndex()

	snapshots := make([]*analytics.ClusterSnapshot, 0, len(clusterIndex))
	for clusterID, sessionIDs := range clusterIndex {
		var engagementSum float64
		segmentCounts := make(map[string]int)
		members := 0
		for _, sessionID := range sessionIDs {
			profile, exists := s.store.GetProfile(sessionID)
			if !exists {
				continue
			}
			lock := s.store.SessionLock(sessionID)
			lock.Lock()
			engagement := profile.RealTime.EngagementScore
			segment := profile.Segmentation.PrimarySegment
			lock.Unlock()

			engagementSum += engagement
			segmentCounts[segment]++
			members++
		}

		snapshot := &analytics.ClusterSnapshot{
			ClusterID: clusterID,
			Size:      members,
		}
		if members > 0 {
			snapshot.AvgEngagement = engagementSum / float64(members)
			snapshot.TopSegments = topSegments(segmentCounts, 3)
		}
		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].ClusterID < snapshots[j].ClusterID })
	return snapshots
}

func topSegments(counts map[string]int, limit int) []string {
	segments := make([]string, 0, len(counts))
	for segment := range counts {
		segments = append(segments, segment)
	}
	sort.Slice(segments, func(i, j int) bool {
		if counts[segments[i]] != counts[segments[j]] {
			return counts[segments[i]] > counts[segments[j]]
		}
		return segments[i] < segments[j]
	})
	if len(segments) > limit {
		segments = segments[:limit]
	}
	return segments
}
