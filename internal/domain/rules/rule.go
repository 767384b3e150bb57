// Package rules defines personalization rule entities and evaluation results.
package rules

import "time"

// RuleStatus values. Rules are seeded active at startup; lifecycle transitions
// are managed outside this engine.
type RuleStatus string

const (
	StatusDraft    RuleStatus = "draft"
	StatusActive   RuleStatus = "active"
	StatusPaused   RuleStatus = "paused"
	StatusArchived RuleStatus = "archived"
)

// ActionKind enumerates the personalization actions a rule can surface.
type ActionKind string

const (
	ActionModifyContent         ActionKind = "modify_content"
	ActionAdjustLayout          ActionKind = "adjust_layout"
	ActionChangeRecommendations ActionKind = "change_recommendations"
	ActionCustomizeUI           ActionKind = "customize_ui"
	ActionTriggerBehavior       ActionKind = "trigger_behavior"
	ActionSendNotification      ActionKind = "send_notification"
)

// ModelName identifies which real-time prediction an ML trigger reads.
type ModelName string

const (
	ModelChurnRisk            ModelName = "churn_risk"
	ModelConversionLikelihood ModelName = "conversion_likelihood"
	ModelEngagementPrediction ModelName = "engagement_prediction"
)

// BehavioralTrigger matches against profile segmentation and signal state.
// Empty slices mean the dimension is not required.
type BehavioralTrigger struct {
	Segments         []string `json:"segments,omitempty"`
	EngagementLevels []string `json:"engagementLevels,omitempty"`
}

// ContextualTrigger matches against request context.
type ContextualTrigger struct {
	HoursOfDay []int `json:"hoursOfDay,omitempty"`
}

// MLTrigger requires a named real-time prediction to clear a threshold.
type MLTrigger struct {
	ModelName ModelName `json:"modelName"`
	Threshold float64   `json:"threshold"`
}

// RuleConditions groups the optional trigger predicates of a rule.
type RuleConditions struct {
	Behavioral *BehavioralTrigger `json:"behavioral,omitempty"`
	Contextual *ContextualTrigger `json:"contextual,omitempty"`
	ML         *MLTrigger         `json:"ml,omitempty"`
}

// ModifyContentParams alters copy or media on the current page.
type ModifyContentParams struct {
	TargetSelector string `json:"targetSelector"`
	Variant        string `json:"variant"`
	Headline       string `json:"headline,omitempty"`
}

// AdjustLayoutParams reorders or collapses page regions.
type AdjustLayoutParams struct {
	LayoutName     string   `json:"layoutName"`
	HiddenSections []string `json:"hiddenSections,omitempty"`
}

// ChangeRecommendationsParams swaps the recommendation strategy.
type ChangeRecommendationsParams struct {
	Strategy string `json:"strategy"`
	MaxItems int    `json:"maxItems"`
	Category string `json:"category,omitempty"`
}

// CustomizeUIParams tweaks presentation chrome.
type CustomizeUIParams struct {
	Theme         string `json:"theme,omitempty"`
	CTAStyle      string `json:"ctaStyle,omitempty"`
	DensityPreset string `json:"densityPreset,omitempty"`
}

// TriggerBehaviorParams fires an in-page behavior such as a modal or tour.
type TriggerBehaviorParams struct {
	Behavior string `json:"behavior"`
	DelayMs  int    `json:"delayMs,omitempty"`
}

// SendNotificationParams surfaces a notification through the host page.
type SendNotificationParams struct {
	Channel  string `json:"channel"`
	Template string `json:"template"`
	TTLSec   int    `json:"ttlSec,omitempty"`
}

// ActionParams is a tagged union over action kinds: exactly one field matching
// the RuleAction's Kind is non-nil.
type ActionParams struct {
	ModifyContent         *ModifyContentParams         `json:"modifyContent,omitempty"`
	AdjustLayout          *AdjustLayoutParams          `json:"adjustLayout,omitempty"`
	ChangeRecommendations *ChangeRecommendationsParams `json:"changeRecommendations,omitempty"`
	CustomizeUI           *CustomizeUIParams           `json:"customizeUi,omitempty"`
	TriggerBehavior       *TriggerBehaviorParams       `json:"triggerBehavior,omitempty"`
	SendNotification      *SendNotificationParams      `json:"sendNotification,omitempty"`
}

// RuleAction is the action side of a rule with its declared impact estimate.
type RuleAction struct {
	Kind                   ActionKind   `json:"kind"`
	Params                 ActionParams `json:"params"`
	ExpectedEngagementLift float64      `json:"expectedEngagementLift"`
}

// PerformanceMetrics are mutated on every rule application, under the store lock.
type PerformanceMetrics struct {
	ActivationCount int64   `json:"activationCount"`
	SuccessRate     float64 `json:"successRate"` // incremental running average gated on effectiveness > 60
}

// PersonalizationRule is an immutable rule definition plus mutable metrics.
type PersonalizationRule struct {
	RuleID      string     `json:"ruleId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      RuleStatus `json:"status"`
	Priority    int        `json:"priority"`

	Conditions RuleConditions `json:"conditions"`
	Action     RuleAction     `json:"action"`

	Metrics   PerformanceMetrics `json:"performanceMetrics"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Recommendation is one ranked rule-engine match. Generating recommendations
// never mutates profile, session or rule state.
type Recommendation struct {
	RuleID         string       `json:"ruleId"`
	Name           string       `json:"name"`
	ActionKind     ActionKind   `json:"actionKind"`
	Params         ActionParams `json:"params"`
	Confidence     float64      `json:"confidence"`
	ExpectedImpact float64      `json:"expectedImpact"`
	Priority       int          `json:"priority"`
	Reason         string       `json:"reason,omitempty"`
}
