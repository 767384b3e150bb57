package workers

import (
	"context"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/services"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// PatternAnalysisWorker periodically decays freshness scores, reclassifies
// every profile's archetype/cluster/segments, evicts profiles past their
// retention window, and rebuilds the cluster and segment indices from scratch.
type PatternAnalysisWorker struct {
	store        *caching.Store
	profiles     *services.ProfileService
	segmentation *services.SegmentationService
	broadcaster  *messaging.Broadcaster
	logger       *logging.ChanneledLogger
}

// NewPatternAnalysisWorker creates the pattern analysis worker.
func NewPatternAnalysisWorker(
	store *caching.Store,
	profileService *services.ProfileService,
	segmentation *services.SegmentationService,
	broadcaster *messaging.Broadcaster,
	logger *logging.ChanneledLogger,
) *PatternAnalysisWorker {
	return &PatternAnalysisWorker{
		store:        store,
		profiles:     profileService,
		segmentation: segmentation,
		broadcaster:  broadcaster,
		logger:       logger,
	}
}

// Start runs the analysis loop until the context is cancelled. A cancelled
// context stops the loop between passes; a running pass completes.
func (w *PatternAnalysisWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(config.PatternAnalysisInterval)
	defer ticker.Stop()

	w.logger.Worker().Info("Pattern analysis worker started", "interval", config.PatternAnalysisInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Worker().Info("Pattern analysis worker stopping")
			return
		case <-ticker.C:
			w.RunPass(ctx)
		}
	}
}

// RunPass executes one full analysis pass.
func (w *PatternAnalysisWorker) RunPass(ctx context.Context) {
	log := w.logger.WithOperation(logging.ChannelWorker, "patternAnalysisPass")
	start := time.Now()

	evicted := w.store.EvictIdleProfiles(config.ProfileRetention)

	reclassified := 0
	for _, sessionID := range w.store.ProfileSessionIDs() {
		select {
		case <-ctx.Done():
			log.Info("Pattern analysis pass interrupted", "duration", time.Since(start))
			return
		default:
		}
		if w.analyzeProfile(sessionID) {
			reclassified++
		}
	}

	w.rebuildIndices()

	log.Info("Pattern analysis pass completed",
		"profiles", w.store.ProfileCount(),
		"reclassified", reclassified,
		"evicted", evicted,
		"duration", time.Since(start))
}

// analyzeProfile decays freshness and reclassifies one profile. Reports
// whether the cluster or primary segment changed.
func (w *PatternAnalysisWorker) analyzeProfile(sessionID string) bool {
	profile, exists := w.store.GetProfile(sessionID)
	if !exists {
		return false
	}

	lock := w.store.SessionLock(sessionID)
	lock.Lock()

	previousCluster := profile.Segmentation.ClusterID
	previousSegment := profile.Segmentation.PrimarySegment

	w.profiles.DecayFreshness(profile)
	w.segmentation.Reclassify(profile)

	changed := profile.Segmentation.ClusterID != previousCluster ||
		profile.Segmentation.PrimarySegment != previousSegment
	cluster := profile.Segmentation.ClusterID
	segment := profile.Segmentation.PrimarySegment

	lock.Unlock()

	if changed {
		w.broadcaster.Broadcast(messaging.EventProfileReclassified, sessionID, map[string]any{
			"clusterId":      cluster,
			"primarySegment": segment,
		})
	}
	return changed
}

// rebuildIndices recomputes the cluster and segment indices in full and swaps
// them in atomically. Indices are never partially updated anywhere else.
func (w *PatternAnalysisWorker) rebuildIndices() {
	clusterIndex := make(map[string][]string)
	segmentIndex := make(map[string][]string)

	for _, sessionID := range w.store.ProfileSessionIDs() {
		profile, exists := w.store.GetProfile(sessionID)
		if !exists {
			continue
		}
		clusterIndex[profile.Segmentation.ClusterID] = append(clusterIndex[profile.Segmentation.ClusterID], sessionID)
		segmentIndex[profile.Segmentation.PrimarySegment] = append(segmentIndex[profile.Segmentation.PrimarySegment], sessionID)
		for _, secondary := range profile.Segmentation.SecondarySegments {
			segmentIndex[secondary] = append(segmentIndex[secondary], sessionID)
		}
	}

	w.store.ReplaceIndices(clusterIndex, segmentIndex)
}
