package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/profiles"
)

func profileWithExploration(share float64, total int) *profiles.BehaviorProfile {
	profile := &profiles.BehaviorProfile{SessionID: "sess-seg"}
	exploring := int(share * float64(total))
	for i := 0; i < total; i++ {
		profile.EventLog = append(profile.EventLog, &events.BehaviorEvent{
			Signals: &events.BehavioralSignals{ExplorationMode: i < exploring},
		})
	}
	return profile
}

func TestArchetypeThresholds(t *testing.T) {
	svc := NewSegmentationService(newTestLogger(t))

	cases := []struct {
		name        string
		engagement  float64
		velocity    int
		exploration float64
		want        string
	}{
		{"power user", 85, 9, 0.1, ArchetypePowerUser},
		{"high engagement low velocity is not power user", 85, 3, 0.1, ArchetypeFocusedResearcher},
		{"explorer wins over engaged", 65, 2, 0.6, ArchetypeExplorer},
		{"focused researcher", 62, 1, 0.1, ArchetypeFocusedResearcher},
		{"engaged visitor", 45, 1, 0.3, ArchetypeEngagedVisitor},
		{"casual browser", 20, 0, 0.0, ArchetypeCasualBrowser},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile := profileWithExploration(tc.exploration, 10)
			profile.RealTime.EngagementScore = tc.engagement
			profile.Patterns.InteractionVelocity = tc.velocity
			assert.Equal(t, tc.want, svc.Archetype(profile))
		})
	}
}

func TestClusterThresholds(t *testing.T) {
	svc := NewSegmentationService(newTestLogger(t))

	cases := []struct {
		name       string
		engagement float64
		velocity   int
		returning  bool
		want       string
	}{
		{"champion", 85, 2, true, ClusterChampions},
		{"high velocity", 60, 12, false, ClusterHighVelocity},
		{"loyal returner", 55, 2, true, ClusterLoyalReturners},
		{"new enthusiast", 75, 2, false, ClusterNewEnthusiasts},
		{"at risk", 20, 2, false, ClusterAtRisk},
		{"general", 45, 2, false, ClusterGeneral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile := &profiles.BehaviorProfile{
				ReturnVisitor: tc.returning,
			}
			profile.RealTime.EngagementScore = tc.engagement
			profile.Patterns.InteractionVelocity = tc.velocity
			assert.Equal(t, tc.want, svc.Cluster(profile))
		})
	}
}

func TestSegmentsOrderAndTiers(t *testing.T) {
	svc := NewSegmentationService(newTestLogger(t))

	profile := &profiles.BehaviorProfile{ReturnVisitor: true}
	profile.RealTime.EngagementScore = 75
	profile.RealTime.ConversionLikelihood = 72

	segments := svc.Segments(profile, ArchetypeFocusedResearcher)
	assert.Equal(t, []string{"highly_engaged", "returning_visitor", "high_intent", ArchetypeFocusedResearcher}, segments)

	profile.RealTime.EngagementScore = 50
	profile.RealTime.ConversionLikelihood = 50
	profile.ReturnVisitor = false
	segments = svc.Segments(profile, ArchetypeEngagedVisitor)
	assert.Equal(t, []string{"moderately_engaged", "new_visitor", "medium_intent", ArchetypeEngagedVisitor}, segments)

	profile.RealTime.EngagementScore = 10
	profile.RealTime.ConversionLikelihood = 10
	segments = svc.Segments(profile, ArchetypeCasualBrowser)
	assert.Equal(t, []string{"low_engagement", "new_visitor", "low_intent", ArchetypeCasualBrowser}, segments)
}

func TestReclassifySetsPrimaryAndSecondaries(t *testing.T) {
	svc := NewSegmentationService(newTestLogger(t))

	profile := profileWithExploration(0.0, 5)
	profile.ReturnVisitor = true
	profile.RealTime.EngagementScore = 85
	profile.RealTime.ConversionLikelihood = 80
	profile.Patterns.InteractionVelocity = 9

	svc.Reclassify(profile)

	assert.Equal(t, ArchetypePowerUser, profile.Segmentation.Archetype)
	assert.Equal(t, ClusterChampions, profile.Segmentation.ClusterID)
	assert.Equal(t, "highly_engaged", profile.Segmentation.PrimarySegment)
	assert.Equal(t, []string{"returning_visitor", "high_intent"}, profile.Segmentation.SecondarySegments)
}
