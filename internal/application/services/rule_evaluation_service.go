package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/profiles"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/rules"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/sessions"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

const baseConfidence = 50

// RuleEvaluationService evaluates personalization rules against a profile.
// Evaluation is read-only: rules, profiles and sessions are never mutated here.
type RuleEvaluationService struct {
	logger *logging.ChanneledLogger
}

// NewRuleEvaluationService creates the rule evaluation service.
func NewRuleEvaluationService(logger *logging.ChanneledLogger) *RuleEvaluationService {
	return &RuleEvaluationService{logger: logger}
}

// Evaluate checks every candidate rule independently and returns all matches
// ranked by expectedImpact * confidence descending, truncated to the
// configured maximum. Priority influences ranking only through ties upstream;
// it never short-circuits evaluation.
func (s *RuleEvaluationService) Evaluate(candidates []*rules.PersonalizationRule, profile *profiles.BehaviorProfile, sessionConfig *sessions.SessionConfig, at time.Time) []*rules.Recommendation {
	matches := make([]*rules.Recommendation, 0, len(candidates))

	for _, rule := range candidates {
		if !sessionConfig.KindEnabled(rule.Action.Kind) {
			continue
		}
		recommendation, ok := s.evaluateRule(rule, profile, at)
		if !ok {
			continue
		}
		matches = append(matches, recommendation)
		metrics.RuleMatches.Inc()
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ExpectedImpact*matches[i].Confidence > matches[j].ExpectedImpact*matches[j].Confidence
	})

	limit := config.MaxRecommendations
	if sessionConfig != nil && sessionConfig.MaxActiveRules > 0 && sessionConfig.MaxActiveRules < limit {
		limit = sessionConfig.MaxActiveRules
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// evaluateRule applies each predicate of one rule. Behavioral predicates
// reject when required and absent; the ML predicate rejects below threshold;
// the contextual hour check only adds confidence.
func (s *RuleEvaluationService) evaluateRule(rule *rules.PersonalizationRule, profile *profiles.BehaviorProfile, at time.Time) (*rules.Recommendation, bool) {
	confidence := float64(baseConfidence)
	reason := ""

	if behavioral := rule.Conditions.Behavioral; behavioral != nil {
		if len(behavioral.Segments) > 0 {
			if !profileInSegments(profile, behavioral.Segments) {
				return nil, false
			}
			confidence += 20
			reason = appendReason(reason, "segment match")
		}
		if len(behavioral.EngagementLevels) > 0 {
			if !containsString(behavioral.EngagementLevels, engagementLevelForScore(profile.RealTime.EngagementScore)) {
				return nil, false
			}
			confidence += 20
			reason = appendReason(reason, "engagement match")
		}
	}

	if contextual := rule.Conditions.Contextual; contextual != nil && len(contextual.HoursOfDay) > 0 {
		if containsInt(contextual.HoursOfDay, at.Hour()) {
			confidence += 10
			reason = appendReason(reason, "hour match")
		}
	}

	if ml := rule.Conditions.ML; ml != nil {
		value, ok := modelValue(profile, ml.ModelName)
		if !ok || value < ml.Threshold {
			return nil, false
		}
		confidence += 30
		reason = appendReason(reason, fmt.Sprintf("%s above threshold", ml.ModelName))
	}

	impact := rule.Action.ExpectedEngagementLift
	effectiveness := profile.EffectivenessAverage()
	if effectiveness > 70 {
		impact *= 1.2
	} else if effectiveness < 30 {
		impact *= 0.8
	}

	return &rules.Recommendation{
		RuleID:         rule.RuleID,
		Name:           rule.Name,
		ActionKind:     rule.Action.Kind,
		Params:         rule.Action.Params,
		Confidence:     clampScore(confidence),
		ExpectedImpact: impact,
		Priority:       rule.Priority,
		Reason:         reason,
	}, true
}

// modelValue resolves a named real-time prediction from the profile.
func modelValue(profile *profiles.BehaviorProfile, model rules.ModelName) (float64, bool) {
	switch model {
	case rules.ModelChurnRisk:
		return profile.RealTime.ChurnRiskScore, true
	case rules.ModelConversionLikelihood:
		return profile.RealTime.ConversionLikelihood, true
	case rules.ModelEngagementPrediction:
		return profile.RealTime.EngagementScore, true
	default:
		return 0, false
	}
}

// engagementLevelForScore buckets a 0-100 engagement score the same way event
// enrichment buckets its weighted sum.
func engagementLevelForScore(score float64) string {
	switch {
	case score < 40:
		return "low"
	case score < 60:
		return "medium"
	case score < 80:
		return "high"
	default:
		return "very_high"
	}
}

func profileInSegments(profile *profiles.BehaviorProfile, segments []string) bool {
	if containsString(segments, profile.Segmentation.PrimarySegment) {
		return true
	}
	for _, secondary := range profile.Segmentation.SecondarySegments {
		if containsString(segments, secondary) {
			return true
		}
	}
	return false
}

func containsString(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

func containsInt(list []int, want int) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

func appendReason(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + ", " + addition
}
