// Package sessions defines personalization session state and apply results.
package sessions

import (
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/rules"
)

// Feedback actions accepted by ApplyPersonalization.
const (
	FeedbackEngage  = "engage"
	FeedbackDismiss = "dismiss"
)

// Feedback is optional caller-supplied reaction data for an applied rule.
// SatisfactionRating is 1-5; zero means not provided.
type Feedback struct {
	Action             string `json:"action,omitempty"`
	SatisfactionRating int    `json:"satisfactionRating,omitempty"`
}

// AppliedPersonalization records one rule application within a session.
type AppliedPersonalization struct {
	RuleID             string           `json:"ruleId"`
	ActionKind         rules.ActionKind `json:"actionKind"`
	AppliedAt          time.Time        `json:"appliedAt"`
	EffectivenessScore float64          `json:"effectivenessScore"`
	Feedback           *Feedback        `json:"feedback,omitempty"`
}

// SessionConfig bounds what a personalization session may do. Zero values mean
// no limit / all kinds enabled.
type SessionConfig struct {
	MaxActiveRules     int                `json:"maxActiveRules,omitempty"`
	EnabledActionKinds []rules.ActionKind `json:"enabledActionKinds,omitempty"`
}

// KindEnabled reports whether the config permits the given action kind.
func (c *SessionConfig) KindEnabled(kind rules.ActionKind) bool {
	if c == nil || len(c.EnabledActionKinds) == 0 {
		return true
	}
	for _, enabled := range c.EnabledActionKinds {
		if enabled == kind {
			return true
		}
	}
	return false
}

// PersonalizationSession tracks applied personalizations for one visitor session.
type PersonalizationSession struct {
	SessionID string         `json:"sessionId"`
	UserID    string         `json:"userId,omitempty"`
	Config    *SessionConfig `json:"config,omitempty"`

	StartedAt    time.Time `json:"startedAt"`
	LastActivity time.Time `json:"lastActivity"`

	// ActiveRuleIDs is the rule set loaded for this session at start time.
	ActiveRuleIDs []string `json:"activeRuleIds"`

	// TriggerCount counts personalization triggers drained for this session.
	TriggerCount int `json:"triggerCount"`

	Applied []*AppliedPersonalization `json:"appliedPersonalizations"`
}

// ApplyResult is the outcome of an ApplyPersonalization call. Unknown session
// or rule ids yield Success=false with no score rather than an error.
type ApplyResult struct {
	Success            bool     `json:"success"`
	EffectivenessScore *float64 `json:"effectivenessScore,omitempty"`
	Reason             string   `json:"reason,omitempty"`
}

// UserInsights is the profile-derived summary attached to recommendation responses.
type UserInsights struct {
	EngagementScore      float64  `json:"engagementScore"`
	ChurnRiskScore       float64  `json:"churnRiskScore"`
	ConversionLikelihood float64  `json:"conversionLikelihood"`
	PrimarySegment       string   `json:"primarySegment"`
	SecondarySegments    []string `json:"secondarySegments,omitempty"`
	Archetype            string   `json:"archetype,omitempty"`
	PredictedActions     []string `json:"predictedActions,omitempty"`
	ExplorationTendency  float64  `json:"explorationTendency"`
}

// RecommendationResponse is the full GetPersonalizationRecommendations payload.
type RecommendationResponse struct {
	SessionID        string                  `json:"sessionId"`
	Personalizations []*rules.Recommendation `json:"personalizations"`
	UserInsights     *UserInsights           `json:"userInsights"`
	ProcessingTimeMs float64                 `json:"processingTimeMs"`
}
