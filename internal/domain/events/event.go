// Package events defines behavior event types and their derived signals.
package events

import "time"

// Event types that bypass the real-time queue and are processed synchronously.
const (
	TypeInteraction = "interaction"
	TypeNavigation  = "navigation"
	TypeConversion  = "conversion"
	TypeFormSubmit  = "form_submit"
	TypePurchase    = "purchase"
	TypeError       = "error"
	TypeExit        = "exit"
)

// Event subtypes with known intent weights. Unknown subtypes fall back to the
// default weight on purpose - new frontend instrumentation must not break tracking.
const (
	SubtypeClick      = "click"
	SubtypeHover      = "hover"
	SubtypeScroll     = "scroll"
	SubtypeSearch     = "search"
	SubtypeFormFocus  = "form_focus"
	SubtypeFormSubmit = "form_submit"
	SubtypeAddToCart  = "add_to_cart"
	SubtypePurchase   = "purchase"
	SubtypeVideoPlay  = "video_play"
	SubtypeDownload   = "download"
	SubtypeNavigation = "navigation"
	SubtypeLinkClick  = "link_click"
	SubtypeBackButton = "back_button"
)

// EngagementLevel buckets the weighted engagement sum.
type EngagementLevel string

const (
	EngagementLow      EngagementLevel = "low"
	EngagementMedium   EngagementLevel = "medium"
	EngagementHigh     EngagementLevel = "high"
	EngagementVeryHigh EngagementLevel = "very_high"
)

// UrgencyLevel classifies how time-sensitive an interaction is.
type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "low"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyHigh   UrgencyLevel = "high"
)

// ConsentLevel controls how much of an event is retained after enrichment.
type ConsentLevel string

const (
	ConsentNone            ConsentLevel = "none"
	ConsentBasic           ConsentLevel = "basic"
	ConsentAnalytics       ConsentLevel = "analytics"
	ConsentPersonalization ConsentLevel = "personalization"
)

// BehavioralSignals are derived from raw interaction metrics during enrichment.
// All score fields are clamped to [0,100]; enums are always set once enrichment ran.
type BehavioralSignals struct {
	IntentStrength   float64         `json:"intentStrength"`
	EngagementLevel  EngagementLevel `json:"engagementLevel"`
	AttentionQuality float64         `json:"attentionQuality"`
	ExplorationMode  bool            `json:"explorationMode"`
	UrgencyLevel     UrgencyLevel    `json:"urgencyLevel"`
}

// PersonalizationContext carries the profile-level context snapshotted onto the event.
type PersonalizationContext struct {
	Segment             string `json:"segment"`
	JourneyStage        string `json:"journeyStage"`
	PredictedNextAction string `json:"predictedNextAction"`
}

// PrivacyFlags record the consent state the event was enriched under.
type PrivacyFlags struct {
	ConsentLevel  ConsentLevel `json:"consentLevel"`
	Anonymized    bool         `json:"anonymized"`
	RetentionDays int          `json:"retentionDays"`
}

// BehaviorEvent is a single visitor interaction. Raw fields come from the caller;
// Signals, Context and Privacy are populated by enrichment and never mutated after.
type BehaviorEvent struct {
	EventID   string `json:"eventId"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`

	Type    string `json:"type"`
	Subtype string `json:"subtype"`

	Timestamp           time.Time `json:"timestamp"`
	TimeOnPageMs        int       `json:"timeOnPageMs"`
	TimeToInteractionMs int       `json:"timeToInteractionMs"`

	ScrollDepthPercent   float64 `json:"scrollDepthPercent"`
	CursorX              int     `json:"cursorX,omitempty"`
	CursorY              int     `json:"cursorY,omitempty"`
	ViewportWidth        int     `json:"viewportWidth,omitempty"`
	ViewportHeight       int     `json:"viewportHeight,omitempty"`
	InteractionIntensity float64 `json:"interactionIntensity,omitempty"`

	PageContext string `json:"pageContext,omitempty"`
	ContentID   string `json:"contentId,omitempty"`

	Signals *BehavioralSignals      `json:"behavioralSignals,omitempty"`
	Context *PersonalizationContext `json:"personalizationContext,omitempty"`
	Privacy *PrivacyFlags           `json:"privacyFlags,omitempty"`
}

// IsHighPriority reports whether the event must take the synchronous fast path
// instead of the real-time queue.
func (e *BehaviorEvent) IsHighPriority() bool {
	switch e.Type {
	case TypeConversion, TypeFormSubmit, TypePurchase, TypeError, TypeExit:
		return true
	}
	return e.Signals != nil && e.Signals.UrgencyLevel == UrgencyHigh
}
