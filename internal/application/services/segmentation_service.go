package services

import (
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/profiles"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

// Archetype names assigned by the deterministic classifier.
const (
	ArchetypePowerUser         = "power_user"
	ArchetypeExplorer          = "explorer"
	ArchetypeFocusedResearcher = "focused_researcher"
	ArchetypeEngagedVisitor    = "engaged_visitor"
	ArchetypeCasualBrowser     = "casual_browser"
)

// Cluster names. Profiles that fit no cluster fall into "general".
const (
	ClusterChampions      = "champions"
	ClusterHighVelocity   = "high_velocity"
	ClusterLoyalReturners = "loyal_returners"
	ClusterNewEnthusiasts = "new_enthusiasts"
	ClusterAtRisk         = "at_risk"
	ClusterGeneral        = "general"
)

// SegmentationService reclassifies profiles along three independent axes:
// archetype (behavioral style), cluster (similarity group) and segments
// (marketing tiers). All classification is fixed-threshold, not ML.
type SegmentationService struct {
	logger *logging.ChanneledLogger
}

// NewSegmentationService creates the segmentation service.
func NewSegmentationService(logger *logging.ChanneledLogger) *SegmentationService {
	return &SegmentationService{logger: logger}
}

// Reclassify recomputes all three axes on the profile in place. The caller
// must hold the profile's session lock.
func (s *SegmentationService) Reclassify(profile *profiles.BehaviorProfile) {
	archetype := s.Archetype(profile)
	cluster := s.Cluster(profile)
	segments := s.Segments(profile, archetype)

	profile.Segmentation.Archetype = archetype
	profile.Segmentation.ClusterID = cluster
	profile.Segmentation.PrimarySegment = segments[0]
	if len(segments) > 3 {
		segments = segments[:3]
	}
	profile.Segmentation.SecondarySegments = segments[1:]
}

// Archetype assigns a behavioral style from engagement, velocity and
// exploration tendency.
func (s *SegmentationService) Archetype(profile *profiles.BehaviorProfile) string {
	engagement := profile.RealTime.EngagementScore
	velocity := profile.Patterns.InteractionVelocity
	exploration := profile.ExplorationTendency()

	switch {
	case engagement >= 80 && velocity >= 8:
		return ArchetypePowerUser
	case exploration >= 0.5:
		return ArchetypeExplorer
	case engagement >= 60 && exploration < 0.2:
		return ArchetypeFocusedResearcher
	case engagement >= 40:
		return ArchetypeEngagedVisitor
	default:
		return ArchetypeCasualBrowser
	}
}

// Cluster assigns a similarity group from engagement, the return-visitor flag
// and velocity.
func (s *SegmentationService) Cluster(profile *profiles.BehaviorProfile) string {
	engagement := profile.RealTime.EngagementScore
	velocity := profile.Patterns.InteractionVelocity

	switch {
	case engagement >= 80 && profile.ReturnVisitor:
		return ClusterChampions
	case velocity >= 10:
		return ClusterHighVelocity
	case profile.ReturnVisitor && engagement >= 50:
		return ClusterLoyalReturners
	case !profile.ReturnVisitor && engagement >= 70:
		return ClusterNewEnthusiasts
	case engagement < 30:
		return ClusterAtRisk
	default:
		return ClusterGeneral
	}
}

// Segments computes the multi-valued marketing segments in a fixed order:
// engagement tier, visitor type, intent tier, archetype. The first entry
// becomes the primary segment.
func (s *SegmentationService) Segments(profile *profiles.BehaviorProfile, archetype string) []string {
	segments := make([]string, 0, 4)

	switch {
	case profile.RealTime.EngagementScore >= 70:
		segments = append(segments, "highly_engaged")
	case profile.RealTime.EngagementScore >= 40:
		segments = append(segments, "moderately_engaged")
	default:
		segments = append(segments, "low_engagement")
	}

	if profile.ReturnVisitor {
		segments = append(segments, "returning_visitor")
	} else {
		segments = append(segments, "new_visitor")
	}

	switch {
	case profile.RealTime.ConversionLikelihood >= 70:
		segments = append(segments, "high_intent")
	case profile.RealTime.ConversionLikelihood >= 40:
		segments = append(segments, "medium_intent")
	default:
		segments = append(segments, "low_intent")
	}

	return append(segments, archetype)
}
