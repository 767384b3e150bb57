package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	config := logging.DefaultLoggerConfig()
	config.OutputToConsole = false
	config.OutputToFile = false
	logger, err := logging.NewChanneledLogger(config)
	require.NoError(t, err)
	return logger
}

func TestEnrichEventPopulatesAllSignals(t *testing.T) {
	svc := NewEnrichmentService(newTestLogger(t))

	event := &events.BehaviorEvent{
		SessionID:          "sess-1",
		Type:               events.TypeInteraction,
		Subtype:            events.SubtypeClick,
		TimeOnPageMs:       45000,
		ScrollDepthPercent: 60,
	}
	svc.EnrichEvent(event, nil)

	require.NotNil(t, event.Signals)
	require.NotNil(t, event.Context)
	require.NotNil(t, event.Privacy)
	assert.NotEmpty(t, event.Signals.EngagementLevel)
	assert.NotEmpty(t, event.Signals.UrgencyLevel)
	assert.False(t, event.Timestamp.IsZero())
}

func TestDerivedScoresStayInRange(t *testing.T) {
	svc := NewEnrichmentService(newTestLogger(t))

	cases := []struct {
		name  string
		event *events.BehaviorEvent
	}{
		{"minimal", &events.BehaviorEvent{Subtype: events.SubtypeHover}},
		{"maximal", &events.BehaviorEvent{
			Subtype:             events.SubtypePurchase,
			TimeToInteractionMs: 60000,
			TimeOnPageMs:        600000,
			ScrollDepthPercent:  100,
		}},
		{"unknown subtype", &events.BehaviorEvent{Subtype: "mystery_gesture"}},
		{"fast scroll", &events.BehaviorEvent{
			Subtype:             events.SubtypeScroll,
			TimeToInteractionMs: 200,
			ScrollDepthPercent:  95,
		}},
	}

	levels := []events.EngagementLevel{
		events.EngagementLow, events.EngagementMedium, events.EngagementHigh, events.EngagementVeryHigh,
	}
	urgencies := []events.UrgencyLevel{events.UrgencyLow, events.UrgencyMedium, events.UrgencyHigh}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc.EnrichEvent(tc.event, nil)

			assert.GreaterOrEqual(t, tc.event.Signals.IntentStrength, 0.0)
			assert.LessOrEqual(t, tc.event.Signals.IntentStrength, 100.0)
			assert.GreaterOrEqual(t, tc.event.Signals.AttentionQuality, 0.0)
			assert.LessOrEqual(t, tc.event.Signals.AttentionQuality, 100.0)
			assert.Contains(t, levels, tc.event.Signals.EngagementLevel)
			assert.Contains(t, urgencies, tc.event.Signals.UrgencyLevel)
		})
	}
}

func TestConversionScenarioScoresHigh(t *testing.T) {
	svc := NewEnrichmentService(newTestLogger(t))

	event := &events.BehaviorEvent{
		SessionID:           "sess-conv",
		Type:                events.TypeConversion,
		Subtype:             events.SubtypeFormSubmit,
		TimeToInteractionMs: 1500,
		Timestamp:           time.Now().UTC(),
	}
	svc.EnrichEvent(event, nil)

	assert.GreaterOrEqual(t, event.Signals.IntentStrength, 90.0)
	assert.Equal(t, events.UrgencyHigh, event.Signals.UrgencyLevel)
	assert.True(t, event.IsHighPriority())
}

func TestIntentStrengthBonuses(t *testing.T) {
	svc := NewEnrichmentService(newTestLogger(t))

	base := svc.IntentStrength(&events.BehaviorEvent{Subtype: events.SubtypeClick})
	assert.Equal(t, 70.0, base)

	withDeliberation := svc.IntentStrength(&events.BehaviorEvent{
		Subtype:             events.SubtypeClick,
		TimeToInteractionMs: 31000,
	})
	assert.Equal(t, 90.0, withDeliberation)

	withScroll := svc.IntentStrength(&events.BehaviorEvent{
		Subtype:            events.SubtypeClick,
		ScrollDepthPercent: 80,
	})
	assert.Equal(t, 85.0, withScroll)
}

func TestExplorationMode(t *testing.T) {
	svc := NewEnrichmentService(newTestLogger(t))

	assert.True(t, svc.ExplorationMode(&events.BehaviorEvent{
		Subtype:      events.SubtypeLinkClick,
		TimeOnPageMs: 5000,
	}))
	assert.False(t, svc.ExplorationMode(&events.BehaviorEvent{
		Subtype:      events.SubtypeLinkClick,
		TimeOnPageMs: 45000,
	}))
	assert.False(t, svc.ExplorationMode(&events.BehaviorEvent{
		Subtype:      events.SubtypeClick,
		TimeOnPageMs: 5000,
	}))
}

func TestPrivacyStrippingBasicConsent(t *testing.T) {
	svc := NewEnrichmentService(newTestLogger(t))

	event := &events.BehaviorEvent{
		SessionID:            "sess-priv",
		UserID:               "user-42",
		Subtype:              events.SubtypeClick,
		ScrollDepthPercent:   55,
		CursorX:              100,
		CursorY:              200,
		ViewportWidth:        1920,
		ViewportHeight:       1080,
		InteractionIntensity: 60,
		Privacy:              &events.PrivacyFlags{ConsentLevel: events.ConsentBasic},
	}
	svc.EnrichEvent(event, nil)

	assert.Zero(t, event.CursorX)
	assert.Zero(t, event.CursorY)
	assert.Zero(t, event.ViewportWidth)
	assert.Zero(t, event.ViewportHeight)
	assert.Zero(t, event.InteractionIntensity)
	assert.Equal(t, 55.0, event.ScrollDepthPercent)
	assert.Equal(t, "user-42", event.UserID)
	assert.False(t, event.Privacy.Anonymized)
}

func TestPrivacyStrippingAnalyticsConsentDropsUserID(t *testing.T) {
	svc := NewEnrichmentService(newTestLogger(t))

	event := &events.BehaviorEvent{
		SessionID: "sess-priv",
		UserID:    "user-42",
		Subtype:   events.SubtypeClick,
		CursorX:   100,
	}
	// No privacy flags on the raw event; the default consent is "analytics".
	svc.EnrichEvent(event, nil)

	assert.Equal(t, events.ConsentAnalytics, event.Privacy.ConsentLevel)
	assert.Empty(t, event.UserID)
	assert.True(t, event.Privacy.Anonymized)
	assert.Equal(t, 100, event.CursorX)
}

func TestPrivacyStrippingIsIdempotent(t *testing.T) {
	svc := NewEnrichmentService(newTestLogger(t))

	event := &events.BehaviorEvent{
		SessionID: "sess-priv",
		UserID:    "user-42",
		Subtype:   events.SubtypeClick,
		CursorX:   5,
		Privacy:   &events.PrivacyFlags{ConsentLevel: events.ConsentNone},
	}
	svc.EnforcePrivacyCompliance(event)
	first := *event
	svc.EnforcePrivacyCompliance(event)

	assert.Equal(t, first, *event)
}

func TestJourneyStage(t *testing.T) {
	assert.Equal(t, "decision", journeyStage(&events.BehaviorEvent{Type: events.TypePurchase}))
	assert.Equal(t, "consideration", journeyStage(&events.BehaviorEvent{Subtype: events.SubtypeAddToCart}))
	assert.Equal(t, "exploration", journeyStage(&events.BehaviorEvent{Subtype: events.SubtypeSearch}))
	assert.Equal(t, "awareness", journeyStage(&events.BehaviorEvent{Subtype: events.SubtypeHover}))
}
