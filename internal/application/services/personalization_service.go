package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/rules"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/sessions"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/analytics"
)

// Sentinel errors for lookups against the shared store.
var (
	ErrSessionNotFound = errors.New("personalization session not found")
	ErrRuleNotFound    = errors.New("personalization rule not found")
)

// PersonalizationService manages personalization sessions: starting them,
// generating ranked recommendations, and recording applied personalizations.
//
// Error convention: reads (recommendations) return wrapped sentinel errors on
// unknown ids; writes (start, apply) report failure in the result value and
// never error out to the caller.
type PersonalizationService struct {
	store       *caching.Store
	evaluation  *RuleEvaluationService
	profiles    *ProfileService
	repository  *analytics.SQLEventRepository
	broadcaster *messaging.Broadcaster
	logger      *logging.ChanneledLogger
}

// NewPersonalizationService creates the personalization service.
func NewPersonalizationService(
	store *caching.Store,
	evaluation *RuleEvaluationService,
	profileService *ProfileService,
	repository *analytics.SQLEventRepository,
	broadcaster *messaging.Broadcaster,
	logger *logging.ChanneledLogger,
) *PersonalizationService {
	return &PersonalizationService{
		store:       store,
		evaluation:  evaluation,
		profiles:    profileService,
		repository:  repository,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// StartPersonalizationSession creates or reuses the profile for the session
// id, loads every active rule whose segment trigger (if any) includes the
// profile's primary segment, and registers the session. Restarting an
// existing session reloads its rule set.
func (s *PersonalizationService) StartPersonalizationSession(sessionID, userID string, sessionConfig *sessions.SessionConfig) string {
	profile := s.profiles.GetOrCreate(sessionID, userID)

	var ruleIDs []string
	for _, rule := range s.store.ActiveRules() {
		behavioral := rule.Conditions.Behavioral
		if behavioral != nil && len(behavioral.Segments) > 0 &&
			!containsString(behavioral.Segments, profile.Segmentation.PrimarySegment) {
			continue
		}
		ruleIDs = append(ruleIDs, rule.RuleID)
	}

	now := time.Now().UTC()
	session := &sessions.PersonalizationSession{
		SessionID:     sessionID,
		UserID:        userID,
		Config:        sessionConfig,
		StartedAt:     now,
		LastActivity:  now,
		ActiveRuleIDs: ruleIDs,
	}
	s.store.PutSession(session)

	s.logger.Rules().Info("Personalization session started",
		"sessionId", sessionID,
		"activeRules", len(ruleIDs),
		"segment", profile.Segmentation.PrimarySegment)
	return sessionID
}

// GetPersonalizationRecommendations evaluates the session's rule set against
// the current profile. It is read-only: repeated calls with unchanged state
// return the same ranked list.
func (s *PersonalizationService) GetPersonalizationRecommendations(sessionID string, at time.Time) (*sessions.RecommendationResponse, error) {
	start := time.Now()

	session, exists := s.store.GetSession(sessionID)
	if !exists {
		return nil, fmt.Errorf("recommendations for %q: %w", sessionID, ErrSessionNotFound)
	}
	profile, exists := s.store.GetProfile(sessionID)
	if !exists {
		return nil, fmt.Errorf("profile for %q: %w", sessionID, ErrSessionNotFound)
	}

	candidates := make([]*rules.PersonalizationRule, 0, len(session.ActiveRuleIDs))
	for _, ruleID := range session.ActiveRuleIDs {
		if rule, ok := s.store.GetRule(ruleID); ok && rule.Status == rules.StatusActive {
			candidates = append(candidates, rule)
		}
	}

	lock := s.store.SessionLock(sessionID)
	lock.Lock()
	recommendations := s.evaluation.Evaluate(candidates, profile, session.Config, at)
	insights := &sessions.UserInsights{
		EngagementScore:      profile.RealTime.EngagementScore,
		ChurnRiskScore:       profile.RealTime.ChurnRiskScore,
		ConversionLikelihood: profile.RealTime.ConversionLikelihood,
		PrimarySegment:       profile.Segmentation.PrimarySegment,
		SecondarySegments:    append([]string(nil), profile.Segmentation.SecondarySegments...),
		Archetype:            profile.Segmentation.Archetype,
		PredictedActions:     append([]string(nil), profile.RealTime.PredictedActions...),
		ExplorationTendency:  profile.ExplorationTendency(),
	}
	lock.Unlock()

	elapsed := time.Since(start)
	metrics.RecommendationLatency.Observe(elapsed.Seconds())

	return &sessions.RecommendationResponse{
		SessionID:        sessionID,
		Personalizations: recommendations,
		UserInsights:     insights,
		ProcessingTimeMs: float64(elapsed.Microseconds()) / 1000.0,
	}, nil
}

// ApplyPersonalization records that a rule was surfaced to the visitor and
// scores its effectiveness from the optional feedback. Unknown session or
// rule ids yield Success=false without touching any counter.
func (s *PersonalizationService) ApplyPersonalization(sessionID, ruleID string, feedback *sessions.Feedback) sessions.ApplyResult {
	session, exists := s.store.GetSession(sessionID)
	if !exists {
		return sessions.ApplyResult{Success: false, Reason: "unknown session"}
	}
	rule, exists := s.store.GetRule(ruleID)
	if !exists {
		return sessions.ApplyResult{Success: false, Reason: "unknown rule"}
	}

	effectiveness := effectivenessScore(feedback)
	now := time.Now().UTC()
	applied := &sessions.AppliedPersonalization{
		RuleID:             ruleID,
		ActionKind:         rule.Action.Kind,
		AppliedAt:          now,
		EffectivenessScore: effectiveness,
		Feedback:           feedback,
	}

	lock := s.store.SessionLock(sessionID)
	lock.Lock()
	session.Applied = append(session.Applied, applied)
	session.LastActivity = now
	if profile, ok := s.store.GetProfile(sessionID); ok {
		profile.EffectivenessHistory = append(profile.EffectivenessHistory, effectiveness)
		profile.PersonalizationsApplied++
	}
	lock.Unlock()

	s.store.RecordRuleActivation(ruleID, effectiveness)
	metrics.RuleApplications.WithLabelValues("success").Inc()

	if s.repository != nil {
		if err := s.repository.StoreAppliedPersonalization(sessionID, applied); err != nil {
			s.logger.Database().Warn("Applied personalization persistence failed",
				"sessionId", sessionID, "ruleId", ruleID, "error", err.Error())
		}
	}

	s.broadcaster.Broadcast(messaging.EventPersonalizationApplied, sessionID, map[string]any{
		"ruleId":             ruleID,
		"actionKind":         string(rule.Action.Kind),
		"effectivenessScore": effectiveness,
	})

	score := effectiveness
	return sessions.ApplyResult{Success: true, EffectivenessScore: &score}
}

// effectivenessScore starts at a neutral 50, moves +30/-20 on explicit
// engage/dismiss feedback, and shifts up to +-20 from a 1-5 satisfaction
// rating centered on 3. Clamped to [0,100].
func effectivenessScore(feedback *sessions.Feedback) float64 {
	score := 50.0
	if feedback == nil {
		return score
	}

	switch feedback.Action {
	case sessions.FeedbackEngage:
		score += 30
	case sessions.FeedbackDismiss:
		score -= 20
	}

	if feedback.SatisfactionRating >= 1 && feedback.SatisfactionRating <= 5 {
		score += float64(feedback.SatisfactionRating-3) * 10
	}

	return clampScore(score)
}
