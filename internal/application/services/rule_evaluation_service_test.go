package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/profiles"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/rules"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/sessions"
)

func testProfile() *profiles.BehaviorProfile {
	return &profiles.BehaviorProfile{
		SessionID: "sess-eval",
		RealTime: profiles.RealTimeState{
			EngagementScore:      75,
			ChurnRiskScore:       85,
			ConversionLikelihood: 65,
		},
		Segmentation: profiles.Segmentation{
			PrimarySegment:    "highly_engaged",
			SecondarySegments: []string{"returning_visitor", "high_intent"},
		},
		ContentPreferences: map[string]float64{},
	}
}

func churnRule(threshold float64) *rules.PersonalizationRule {
	return &rules.PersonalizationRule{
		RuleID:   "rule-churn",
		Name:     "churn rescue",
		Status:   rules.StatusActive,
		Priority: 80,
		Conditions: rules.RuleConditions{
			ML: &rules.MLTrigger{ModelName: rules.ModelChurnRisk, Threshold: threshold},
		},
		Action: rules.RuleAction{
			Kind:                   rules.ActionModifyContent,
			Params:                 rules.ActionParams{ModifyContent: &rules.ModifyContentParams{TargetSelector: "#hero", Variant: "rescue"}},
			ExpectedEngagementLift: 30,
		},
	}
}

func TestMLThresholdMatchBoostsConfidence(t *testing.T) {
	svc := NewRuleEvaluationService(newTestLogger(t))
	profile := testProfile()

	matches := svc.Evaluate([]*rules.PersonalizationRule{churnRule(70)}, profile, nil, time.Now())

	require.Len(t, matches, 1)
	assert.Equal(t, "rule-churn", matches[0].RuleID)
	assert.Equal(t, float64(baseConfidence+30), matches[0].Confidence)
}

func TestMLThresholdBelowRejects(t *testing.T) {
	svc := NewRuleEvaluationService(newTestLogger(t))
	profile := testProfile()
	profile.RealTime.ChurnRiskScore = 50

	matches := svc.Evaluate([]*rules.PersonalizationRule{churnRule(70)}, profile, nil, time.Now())
	assert.Empty(t, matches)
}

func TestSegmentRequirementRejectsNonMembers(t *testing.T) {
	svc := NewRuleEvaluationService(newTestLogger(t))
	profile := testProfile()

	rule := &rules.PersonalizationRule{
		RuleID: "rule-seg",
		Status: rules.StatusActive,
		Conditions: rules.RuleConditions{
			Behavioral: &rules.BehavioralTrigger{Segments: []string{"low_engagement"}},
		},
		Action: rules.RuleAction{Kind: rules.ActionCustomizeUI, ExpectedEngagementLift: 10},
	}
	matches := svc.Evaluate([]*rules.PersonalizationRule{rule}, profile, nil, time.Now())
	assert.Empty(t, matches)

	rule.Conditions.Behavioral.Segments = []string{"high_intent"}
	matches = svc.Evaluate([]*rules.PersonalizationRule{rule}, profile, nil, time.Now())
	require.Len(t, matches, 1)
	assert.Equal(t, float64(baseConfidence+20), matches[0].Confidence)
}

func TestEngagementLevelRequirement(t *testing.T) {
	svc := NewRuleEvaluationService(newTestLogger(t))
	profile := testProfile() // engagement 75 -> "high"

	rule := &rules.PersonalizationRule{
		RuleID: "rule-eng",
		Status: rules.StatusActive,
		Conditions: rules.RuleConditions{
			Behavioral: &rules.BehavioralTrigger{EngagementLevels: []string{"high", "very_high"}},
		},
		Action: rules.RuleAction{Kind: rules.ActionAdjustLayout, ExpectedEngagementLift: 10},
	}
	matches := svc.Evaluate([]*rules.PersonalizationRule{rule}, profile, nil, time.Now())
	require.Len(t, matches, 1)

	profile.RealTime.EngagementScore = 20 // "low"
	matches = svc.Evaluate([]*rules.PersonalizationRule{rule}, profile, nil, time.Now())
	assert.Empty(t, matches)
}

func TestHourOfDayAddsConfidenceWithoutRejecting(t *testing.T) {
	svc := NewRuleEvaluationService(newTestLogger(t))
	profile := testProfile()
	at := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

	rule := &rules.PersonalizationRule{
		RuleID: "rule-hour",
		Status: rules.StatusActive,
		Conditions: rules.RuleConditions{
			Contextual: &rules.ContextualTrigger{HoursOfDay: []int{20, 21}},
		},
		Action: rules.RuleAction{Kind: rules.ActionTriggerBehavior, ExpectedEngagementLift: 10},
	}

	matches := svc.Evaluate([]*rules.PersonalizationRule{rule}, profile, nil, at)
	require.Len(t, matches, 1)
	assert.Equal(t, float64(baseConfidence+10), matches[0].Confidence)

	offHour := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	matches = svc.Evaluate([]*rules.PersonalizationRule{rule}, profile, nil, offHour)
	require.Len(t, matches, 1)
	assert.Equal(t, float64(baseConfidence), matches[0].Confidence)
}

func TestExpectedImpactScaledByEffectivenessHistory(t *testing.T) {
	svc := NewRuleEvaluationService(newTestLogger(t))
	rule := churnRule(70)

	strong := testProfile()
	strong.EffectivenessHistory = []float64{90, 85, 80}
	matches := svc.Evaluate([]*rules.PersonalizationRule{rule}, strong, nil, time.Now())
	require.Len(t, matches, 1)
	assert.InDelta(t, 36.0, matches[0].ExpectedImpact, 0.001)

	weak := testProfile()
	weak.EffectivenessHistory = []float64{10, 20}
	matches = svc.Evaluate([]*rules.PersonalizationRule{rule}, weak, nil, time.Now())
	require.Len(t, matches, 1)
	assert.InDelta(t, 24.0, matches[0].ExpectedImpact, 0.001)

	neutral := testProfile()
	matches = svc.Evaluate([]*rules.PersonalizationRule{rule}, neutral, nil, time.Now())
	require.Len(t, matches, 1)
	assert.InDelta(t, 30.0, matches[0].ExpectedImpact, 0.001)
}

func TestRankingAndTruncation(t *testing.T) {
	svc := NewRuleEvaluationService(newTestLogger(t))
	profile := testProfile()

	candidates := make([]*rules.PersonalizationRule, 0, 12)
	for i := 0; i < 12; i++ {
		candidates = append(candidates, &rules.PersonalizationRule{
			RuleID: fmt.Sprintf("rule-%02d", i),
			Status: rules.StatusActive,
			Action: rules.RuleAction{
				Kind:                   rules.ActionCustomizeUI,
				ExpectedEngagementLift: float64(i + 1),
			},
		})
	}

	matches := svc.Evaluate(candidates, profile, nil, time.Now())
	require.Len(t, matches, 10)
	for i := 1; i < len(matches); i++ {
		prev := matches[i-1].ExpectedImpact * matches[i-1].Confidence
		curr := matches[i].ExpectedImpact * matches[i].Confidence
		assert.GreaterOrEqual(t, prev, curr)
	}
}

func TestEvaluationIsReadOnlyAndDeterministic(t *testing.T) {
	svc := NewRuleEvaluationService(newTestLogger(t))
	profile := testProfile()
	rule := churnRule(70)

	first := svc.Evaluate([]*rules.PersonalizationRule{rule}, profile, nil, time.Now())
	second := svc.Evaluate([]*rules.PersonalizationRule{rule}, profile, nil, time.Now())

	assert.Equal(t, first, second)
	assert.Equal(t, int64(0), rule.Metrics.ActivationCount)
	assert.Equal(t, 85.0, profile.RealTime.ChurnRiskScore)
}

func TestSessionConfigFiltersActionKinds(t *testing.T) {
	svc := NewRuleEvaluationService(newTestLogger(t))
	profile := testProfile()

	sessionConfig := &sessions.SessionConfig{
		EnabledActionKinds: []rules.ActionKind{rules.ActionCustomizeUI},
	}
	matches := svc.Evaluate([]*rules.PersonalizationRule{churnRule(70)}, profile, sessionConfig, time.Now())
	assert.Empty(t, matches)
}
