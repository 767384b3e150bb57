package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/sessions"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/messaging"
)

func newPersonalizationFixture(t *testing.T) (*PersonalizationService, *caching.Store) {
	t.Helper()
	logger := newTestLogger(t)
	store := caching.NewStore(logger)
	profileService := NewProfileService(store, nil, logger)
	evaluation := NewRuleEvaluationService(logger)
	broadcaster := messaging.NewBroadcaster(logger)
	svc := NewPersonalizationService(store, evaluation, profileService, nil, broadcaster, logger)
	return svc, store
}

func TestStartSessionLoadsMatchingRules(t *testing.T) {
	svc, store := newPersonalizationFixture(t)
	SeedDefaultRules(store)

	sessionID := svc.StartPersonalizationSession("sess-start", "user-1", nil)
	assert.Equal(t, "sess-start", sessionID)

	session, exists := store.GetSession("sess-start")
	require.True(t, exists)
	// Rules with a segment trigger excluding "new_visitor" are filtered out;
	// segment-free rules always load.
	assert.NotEmpty(t, session.ActiveRuleIDs)
	assert.NotContains(t, session.ActiveRuleIDs, "rule_returning_welcome_note")
	assert.Contains(t, session.ActiveRuleIDs, "rule_churn_rescue_banner")
}

func TestRecommendationsUnknownSessionErrors(t *testing.T) {
	svc, _ := newPersonalizationFixture(t)

	_, err := svc.GetPersonalizationRecommendations("ghost-session", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRecommendationsIncludeInsights(t *testing.T) {
	svc, store := newPersonalizationFixture(t)
	SeedDefaultRules(store)

	svc.StartPersonalizationSession("sess-rec", "", nil)
	profile, _ := store.GetProfile("sess-rec")
	profile.RealTime.ChurnRiskScore = 90

	response, err := svc.GetPersonalizationRecommendations("sess-rec", time.Now())
	require.NoError(t, err)
	require.NotNil(t, response.UserInsights)
	assert.Equal(t, 90.0, response.UserInsights.ChurnRiskScore)
	assert.GreaterOrEqual(t, response.ProcessingTimeMs, 0.0)

	ruleIDs := make([]string, 0, len(response.Personalizations))
	for _, recommendation := range response.Personalizations {
		ruleIDs = append(ruleIDs, recommendation.RuleID)
	}
	assert.Contains(t, ruleIDs, "rule_churn_rescue_banner")
}

func TestApplyUnknownRuleReturnsFailureWithoutCounting(t *testing.T) {
	svc, store := newPersonalizationFixture(t)
	SeedDefaultRules(store)
	svc.StartPersonalizationSession("sess-apply", "", nil)

	before := store.RuleActivationsTotal()
	result := svc.ApplyPersonalization("sess-apply", "rule-does-not-exist", nil)

	assert.False(t, result.Success)
	assert.Nil(t, result.EffectivenessScore)
	assert.Equal(t, before, store.RuleActivationsTotal())

	session, _ := store.GetSession("sess-apply")
	assert.Empty(t, session.Applied)
}

func TestApplyUnknownSessionReturnsFailure(t *testing.T) {
	svc, store := newPersonalizationFixture(t)
	SeedDefaultRules(store)

	result := svc.ApplyPersonalization("ghost-session", "rule_churn_rescue_banner", nil)
	assert.False(t, result.Success)

	rule, _ := store.GetRule("rule_churn_rescue_banner")
	assert.Equal(t, int64(0), rule.Metrics.ActivationCount)
}

func TestApplyRecordsOutcomeAndUpdatesRuleMetrics(t *testing.T) {
	svc, store := newPersonalizationFixture(t)
	SeedDefaultRules(store)
	svc.StartPersonalizationSession("sess-apply", "", nil)

	feedback := &sessions.Feedback{Action: sessions.FeedbackEngage, SatisfactionRating: 5}
	result := svc.ApplyPersonalization("sess-apply", "rule_churn_rescue_banner", feedback)

	require.True(t, result.Success)
	require.NotNil(t, result.EffectivenessScore)
	assert.Equal(t, 100.0, *result.EffectivenessScore)

	session, _ := store.GetSession("sess-apply")
	require.Len(t, session.Applied, 1)
	assert.Equal(t, "rule_churn_rescue_banner", session.Applied[0].RuleID)

	rule, _ := store.GetRule("rule_churn_rescue_banner")
	assert.Equal(t, int64(1), rule.Metrics.ActivationCount)
	assert.Equal(t, 1.0, rule.Metrics.SuccessRate)

	profile, _ := store.GetProfile("sess-apply")
	assert.Equal(t, 1, profile.PersonalizationsApplied)
	assert.Equal(t, []float64{100}, profile.EffectivenessHistory)
}

func TestSuccessRateGatedOnEffectiveness(t *testing.T) {
	svc, store := newPersonalizationFixture(t)
	SeedDefaultRules(store)
	svc.StartPersonalizationSession("sess-gate", "", nil)

	// Dismissal with a poor rating scores 50-20-20 = 10, below the gate.
	dismissal := &sessions.Feedback{Action: sessions.FeedbackDismiss, SatisfactionRating: 1}
	result := svc.ApplyPersonalization("sess-gate", "rule_churn_rescue_banner", dismissal)
	require.True(t, result.Success)
	assert.Equal(t, 10.0, *result.EffectivenessScore)

	rule, _ := store.GetRule("rule_churn_rescue_banner")
	assert.Equal(t, int64(1), rule.Metrics.ActivationCount)
	assert.Equal(t, 0.0, rule.Metrics.SuccessRate)
}

func TestEffectivenessScoreBounds(t *testing.T) {
	assert.Equal(t, 50.0, effectivenessScore(nil))
	assert.Equal(t, 80.0, effectivenessScore(&sessions.Feedback{Action: sessions.FeedbackEngage}))
	assert.Equal(t, 30.0, effectivenessScore(&sessions.Feedback{Action: sessions.FeedbackDismiss}))
	assert.Equal(t, 100.0, effectivenessScore(&sessions.Feedback{Action: sessions.FeedbackEngage, SatisfactionRating: 5}))
	assert.Equal(t, 10.0, effectivenessScore(&sessions.Feedback{Action: sessions.FeedbackDismiss, SatisfactionRating: 1}))
	// Out-of-range ratings are ignored.
	assert.Equal(t, 50.0, effectivenessScore(&sessions.Feedback{SatisfactionRating: 9}))
}
