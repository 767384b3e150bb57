package services

import (
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/rules"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
)

// SeedDefaultRules registers the built-in personalization rule catalog.
// Rules are seeded active; lifecycle transitions happen outside the engine.
func SeedDefaultRules(store *caching.Store) int {
	now := time.Now().UTC()
	catalog := []*rules.PersonalizationRule{
		{
			RuleID:      "rule_churn_rescue_banner",
			Name:        "Churn rescue banner",
			Description: "Surface a retention offer when churn risk is elevated",
			Status:      rules.StatusActive,
			Priority:    90,
			Conditions: rules.RuleConditions{
				ML: &rules.MLTrigger{ModelName: rules.ModelChurnRisk, Threshold: 70},
			},
			Action: rules.RuleAction{
				Kind: rules.ActionModifyContent,
				Params: rules.ActionParams{
					ModifyContent: &rules.ModifyContentParams{
						TargetSelector: "#hero",
						Variant:        "retention_offer",
						Headline:       "Before you go...",
					},
				},
				ExpectedEngagementLift: 35,
			},
			CreatedAt: now,
		},
		{
			RuleID:      "rule_high_intent_checkout_cta",
			Name:        "High intent checkout CTA",
			Description: "Stronger call to action for visitors likely to convert",
			Status:      rules.StatusActive,
			Priority:    85,
			Conditions: rules.RuleConditions{
				Behavioral: &rules.BehavioralTrigger{Segments: []string{"high_intent", "highly_engaged"}},
				ML:         &rules.MLTrigger{ModelName: rules.ModelConversionLikelihood, Threshold: 60},
			},
			Action: rules.RuleAction{
				Kind: rules.ActionCustomizeUI,
				Params: rules.ActionParams{
					CustomizeUI: &rules.CustomizeUIParams{CTAStyle: "prominent", Theme: "conversion"},
				},
				ExpectedEngagementLift: 30,
			},
			CreatedAt: now,
		},
		{
			RuleID:      "rule_explorer_nav_assist",
			Name:        "Explorer navigation assist",
			Description: "Simplified layout for visitors in wayfinding mode",
			Status:      rules.StatusActive,
			Priority:    60,
			Conditions: rules.RuleConditions{
				Behavioral: &rules.BehavioralTrigger{Segments: []string{"explorer", "new_visitor"}},
			},
			Action: rules.RuleAction{
				Kind: rules.ActionAdjustLayout,
				Params: rules.ActionParams{
					AdjustLayout: &rules.AdjustLayoutParams{
						LayoutName:     "guided",
						HiddenSections: []string{"advanced_filters"},
					},
				},
				ExpectedEngagementLift: 20,
			},
			CreatedAt: now,
		},
		{
			RuleID:      "rule_engaged_recommendations",
			Name:        "Engaged visitor recommendations",
			Description: "Switch to affinity-based recommendations for engaged visitors",
			Status:      rules.StatusActive,
			Priority:    70,
			Conditions: rules.RuleConditions{
				Behavioral: &rules.BehavioralTrigger{EngagementLevels: []string{"high", "very_high"}},
			},
			Action: rules.RuleAction{
				Kind: rules.ActionChangeRecommendations,
				Params: rules.ActionParams{
					ChangeRecommendations: &rules.ChangeRecommendationsParams{
						Strategy: "affinity",
						MaxItems: 6,
					},
				},
				ExpectedEngagementLift: 25,
			},
			CreatedAt: now,
		},
		{
			RuleID:      "rule_evening_onboarding_tour",
			Name:        "Evening onboarding tour",
			Description: "Offer a product tour to evening visitors with low engagement",
			Status:      rules.StatusActive,
			Priority:    40,
			Conditions: rules.RuleConditions{
				Behavioral: &rules.BehavioralTrigger{EngagementLevels: []string{"low", "medium"}},
				Contextual: &rules.ContextualTrigger{HoursOfDay: []int{18, 19, 20, 21, 22}},
			},
			Action: rules.RuleAction{
				Kind: rules.ActionTriggerBehavior,
				Params: rules.ActionParams{
					TriggerBehavior: &rules.TriggerBehaviorParams{Behavior: "product_tour", DelayMs: 5000},
				},
				ExpectedEngagementLift: 15,
			},
			CreatedAt: now,
		},
		{
			RuleID:      "rule_returning_welcome_note",
			Name:        "Returning visitor welcome",
			Description: "Welcome-back notification for returning visitors",
			Status:      rules.StatusActive,
			Priority:    30,
			Conditions: rules.RuleConditions{
				Behavioral: &rules.BehavioralTrigger{Segments: []string{"returning_visitor", "loyal_returners"}},
			},
			Action: rules.RuleAction{
				Kind: rules.ActionSendNotification,
				Params: rules.ActionParams{
					SendNotification: &rules.SendNotificationParams{
						Channel:  "in_page",
						Template: "welcome_back",
						TTLSec:   30,
					},
				},
				ExpectedEngagementLift: 10,
			},
			CreatedAt: now,
		},
	}

	for _, rule := range catalog {
		store.PutRule(rule)
	}
	return len(catalog)
}
