// Package services contains the application-level orchestration for event
// tracking, enrichment, rule evaluation and personalization sessions.
package services

import (
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/profiles"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

// subtypeIntentWeights maps event subtypes to their intent contribution.
// Unknown subtypes fall back to defaultIntentWeight, intentionally: new
// frontend instrumentation must degrade gracefully, not break tracking.
var subtypeIntentWeights = map[string]float64{
	events.SubtypeClick:      40,
	events.SubtypeHover:      10,
	events.SubtypeScroll:     15,
	events.SubtypeSearch:     50,
	events.SubtypeFormFocus:  55,
	events.SubtypeFormSubmit: 80,
	events.SubtypeAddToCart:  85,
	events.SubtypePurchase:   100,
	events.SubtypeVideoPlay:  45,
	events.SubtypeDownload:   60,
	events.SubtypeNavigation: 20,
	events.SubtypeLinkClick:  30,
	events.SubtypeBackButton: 10,
}

const defaultIntentWeight = 20

// focusedSubtypes are interactions that indicate deliberate attention.
var focusedSubtypes = map[string]bool{
	events.SubtypeSearch:     true,
	events.SubtypeFormFocus:  true,
	events.SubtypeFormSubmit: true,
	events.SubtypeVideoPlay:  true,
	events.SubtypeDownload:   true,
}

// explorationSubtypes mark wayfinding behavior.
var explorationSubtypes = map[string]bool{
	events.SubtypeNavigation: true,
	events.SubtypeLinkClick:  true,
	events.SubtypeBackButton: true,
}

// retentionDaysByConsent fixes the durable retention window per consent level.
var retentionDaysByConsent = map[events.ConsentLevel]int{
	events.ConsentNone:            1,
	events.ConsentBasic:           30,
	events.ConsentAnalytics:       90,
	events.ConsentPersonalization: 365,
}

// EnrichmentService derives behavioral signals from raw events. All scoring is
// pure; the only inputs are the event and an optional profile snapshot.
type EnrichmentService struct {
	logger *logging.ChanneledLogger
}

// NewEnrichmentService creates the enrichment service.
func NewEnrichmentService(logger *logging.ChanneledLogger) *EnrichmentService {
	return &EnrichmentService{logger: logger}
}

// EnrichEvent populates Signals, Context and Privacy on a raw event. It never
// fails; unknown subtypes use default weights. The profile may be nil on the
// very first event for a session.
func (s *EnrichmentService) EnrichEvent(event *events.BehaviorEvent, profile *profiles.BehaviorProfile) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	event.Signals = &events.BehavioralSignals{
		IntentStrength:   s.IntentStrength(event),
		AttentionQuality: s.AttentionQuality(event),
		ExplorationMode:  s.ExplorationMode(event),
		UrgencyLevel:     s.Urgency(event),
	}
	event.Signals.EngagementLevel = s.EngagementLevel(event)

	event.Context = s.personalizationContext(event, profile)

	if event.Privacy == nil {
		event.Privacy = &events.PrivacyFlags{ConsentLevel: events.ConsentAnalytics}
	}
	if event.Privacy.ConsentLevel == "" {
		event.Privacy.ConsentLevel = events.ConsentAnalytics
	}
	event.Privacy.RetentionDays = retentionDaysByConsent[event.Privacy.ConsentLevel]

	s.EnforcePrivacyCompliance(event)
}

// IntentStrength scores how purposeful an interaction is: base 30 plus the
// subtype weight, a time-to-interaction bonus and a scroll-depth bonus,
// clamped to [0,100].
func (s *EnrichmentService) IntentStrength(event *events.BehaviorEvent) float64 {
	score := 30.0

	weight, known := subtypeIntentWeights[event.Subtype]
	if !known {
		weight = defaultIntentWeight
	}
	score += weight

	if event.TimeToInteractionMs > 30000 {
		score += 20
	} else if event.TimeToInteractionMs > 10000 {
		score += 10
	}

	if event.ScrollDepthPercent > 70 {
		score += 15
	}

	return clampScore(score)
}

// EngagementLevel buckets the weighted engagement sum: intent 40%, normalized
// time on page 30% (two minutes counts as full), scroll depth 30%.
func (s *EnrichmentService) EngagementLevel(event *events.BehaviorEvent) events.EngagementLevel {
	timeScore := float64(event.TimeOnPageMs) / 120000.0 * 100
	if timeScore > 100 {
		timeScore = 100
	}

	sum := event.Signals.IntentStrength*0.4 + timeScore*0.3 + event.ScrollDepthPercent*0.3

	switch {
	case sum < 40:
		return events.EngagementLow
	case sum < 60:
		return events.EngagementMedium
	case sum < 80:
		return events.EngagementHigh
	default:
		return events.EngagementVeryHigh
	}
}

// AttentionQuality starts at 50 and moves with interaction deliberateness.
func (s *EnrichmentService) AttentionQuality(event *events.BehaviorEvent) float64 {
	score := 50.0

	if focusedSubtypes[event.Subtype] {
		score += 30
	}
	if event.TimeToInteractionMs > 0 && event.TimeToInteractionMs < 1000 {
		score -= 20
	}
	if event.ScrollDepthPercent > 50 {
		score += 20
	}

	return clampScore(score)
}

// ExplorationMode is set when the visitor is rapidly wayfinding.
func (s *EnrichmentService) ExplorationMode(event *events.BehaviorEvent) bool {
	return event.TimeOnPageMs < 30000 && explorationSubtypes[event.Subtype]
}

// Urgency classifies time pressure behind the interaction.
func (s *EnrichmentService) Urgency(event *events.BehaviorEvent) events.UrgencyLevel {
	fastInteraction := event.TimeToInteractionMs > 0 && event.TimeToInteractionMs < 2000 &&
		(event.Subtype == events.SubtypeClick || event.Subtype == events.SubtypeFormSubmit)
	if fastInteraction || event.InteractionIntensity > 80 {
		return events.UrgencyHigh
	}
	if event.Subtype == events.SubtypeSearch {
		return events.UrgencyMedium
	}
	return events.UrgencyLow
}

// personalizationContext snapshots profile-level context onto the event.
func (s *EnrichmentService) personalizationContext(event *events.BehaviorEvent, profile *profiles.BehaviorProfile) *events.PersonalizationContext {
	ctx := &events.PersonalizationContext{
		Segment:             "new_visitor",
		JourneyStage:        journeyStage(event),
		PredictedNextAction: predictNextAction(event.Subtype),
	}
	if profile != nil {
		if profile.Segmentation.PrimarySegment != "" {
			ctx.Segment = profile.Segmentation.PrimarySegment
		}
		if len(profile.RealTime.PredictedActions) > 0 {
			ctx.PredictedNextAction = profile.RealTime.PredictedActions[0]
		}
	}
	return ctx
}

// journeyStage derives a coarse funnel position from the event itself.
func journeyStage(event *events.BehaviorEvent) string {
	switch event.Type {
	case events.TypeConversion, events.TypePurchase:
		return "decision"
	case events.TypeFormSubmit:
		return "consideration"
	}
	switch event.Subtype {
	case events.SubtypeAddToCart, events.SubtypeFormFocus:
		return "consideration"
	case events.SubtypeSearch:
		return "exploration"
	default:
		return "awareness"
	}
}

// EnforcePrivacyCompliance strips event data down to what the consent level
// permits. Running it twice yields the same shape.
//
// The policy is asymmetric on purpose: none/basic drop the detailed
// interaction fields but keep the user id, while "analytics" keeps the
// interaction detail but drops the user id and marks the event anonymized.
func (s *EnrichmentService) EnforcePrivacyCompliance(event *events.BehaviorEvent) {
	if event.Privacy == nil {
		return
	}

	switch event.Privacy.ConsentLevel {
	case events.ConsentNone, events.ConsentBasic:
		event.CursorX = 0
		event.CursorY = 0
		event.ViewportWidth = 0
		event.ViewportHeight = 0
		event.InteractionIntensity = 0
	case events.ConsentAnalytics:
		event.UserID = ""
		event.Privacy.Anonymized = true
	}
}

// clampScore bounds a score to [0,100].
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
