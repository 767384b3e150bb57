package services

import (
	"strings"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/profiles"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/analytics"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// subtypeEngagementBoosts is the base engagement contribution per subtype.
var subtypeEngagementBoosts = map[string]float64{
	events.SubtypeClick:      3,
	events.SubtypeHover:      1,
	events.SubtypeScroll:     2,
	events.SubtypeSearch:     4,
	events.SubtypeFormFocus:  5,
	events.SubtypeFormSubmit: 8,
	events.SubtypeAddToCart:  9,
	events.SubtypePurchase:   10,
	events.SubtypeVideoPlay:  6,
	events.SubtypeDownload:   5,
	events.SubtypeNavigation: 1,
	events.SubtypeLinkClick:  2,
	events.SubtypeBackButton: 1,
}

const defaultEngagementBoost = 2

// nextActionBySubtype predicts the most likely follow-up interaction.
// Unknown subtypes fall back to "continue_browsing".
var nextActionBySubtype = map[string]string{
	events.SubtypeClick:      "scroll",
	events.SubtypeHover:      "click",
	events.SubtypeScroll:     "click",
	events.SubtypeSearch:     "click",
	events.SubtypeFormFocus:  "form_submit",
	events.SubtypeFormSubmit: "purchase",
	events.SubtypeAddToCart:  "purchase",
	events.SubtypePurchase:   "navigation",
	events.SubtypeVideoPlay:  "scroll",
	events.SubtypeDownload:   "exit",
	events.SubtypeNavigation: "scroll",
	events.SubtypeLinkClick:  "navigation",
	events.SubtypeBackButton: "search",
}

const defaultNextAction = "continue_browsing"

// predictNextAction resolves the subtype lookup with its documented default.
func predictNextAction(subtype string) string {
	if action, ok := nextActionBySubtype[subtype]; ok {
		return action
	}
	return defaultNextAction
}

// contentTypeKeywords infer a coarse content type from the page context or
// content id. First match wins.
var contentTypeKeywords = []struct {
	keyword     string
	contentType string
}{
	{"product", "product"},
	{"pricing", "pricing"},
	{"blog", "article"},
	{"article", "article"},
	{"video", "video"},
	{"docs", "documentation"},
	{"download", "resource"},
}

// ProfileService owns all mutation of behavior profiles. Callers must hold the
// store's per-session lock around ApplyEvent and RefreshPredictions.
type ProfileService struct {
	store      *caching.Store
	repository *analytics.SQLEventRepository
	logger     *logging.ChanneledLogger
}

// NewProfileService creates the profile service. The repository may be nil
// when durable persistence is disabled.
func NewProfileService(store *caching.Store, repository *analytics.SQLEventRepository, logger *logging.ChanneledLogger) *ProfileService {
	return &ProfileService{store: store, repository: repository, logger: logger}
}

// GetOrCreate returns the profile for a session, creating one on first sight.
// Fresh profiles are checked against the durable event log so a session
// recreated after eviction counts as a return visitor.
func (s *ProfileService) GetOrCreate(sessionID, userID string) *profiles.BehaviorProfile {
	if profile, exists := s.store.GetProfile(sessionID); exists {
		return profile
	}

	profile := s.store.GetOrCreateProfile(sessionID, userID)
	if !profile.ReturnVisitor {
		s.hydrateReturnVisitor(profile)
	}
	return profile
}

// hydrateReturnVisitor flags a freshly created profile whose session already
// has persisted events. Best effort; lookup failures are logged and ignored.
func (s *ProfileService) hydrateReturnVisitor(profile *profiles.BehaviorProfile) {
	if s.repository == nil {
		return
	}

	prior, err := s.repository.FindEventsBySession(profile.SessionID, 1)
	if err != nil {
		s.logger.Database().Warn("Return-visitor hydration lookup failed",
			"sessionId", profile.SessionID, "error", err.Error())
		return
	}
	if len(prior) == 0 {
		return
	}

	lock := s.store.SessionLock(profile.SessionID)
	lock.Lock()
	profile.ReturnVisitor = true
	lock.Unlock()
}

// ApplyEvent folds one enriched event into the profile's rolling state.
func (s *ProfileService) ApplyEvent(profile *profiles.BehaviorProfile, event *events.BehaviorEvent) {
	now := event.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	profile.LastActivity = now

	s.applyEngagementBoost(profile, event)

	profile.RealTime.PredictedActions = []string{predictNextAction(event.Subtype)}

	s.recordEventTime(profile, now)

	// Rolling scroll-depth average, heavily weighted toward history.
	if profile.Patterns.AvgScrollDepth == 0 {
		profile.Patterns.AvgScrollDepth = event.ScrollDepthPercent
	} else {
		profile.Patterns.AvgScrollDepth = 0.9*profile.Patterns.AvgScrollDepth + 0.1*event.ScrollDepthPercent
	}

	if profile.Patterns.AvgSessionDurationMs == 0 {
		profile.Patterns.AvgSessionDurationMs = float64(event.TimeOnPageMs)
	} else {
		profile.Patterns.AvgSessionDurationMs = 0.9*profile.Patterns.AvgSessionDurationMs + 0.1*float64(event.TimeOnPageMs)
	}

	s.updateContentPreference(profile, event)

	profile.EventLog = append(profile.EventLog, event)
	if len(profile.EventLog) > config.EventLogMaxPerSession {
		profile.EventLog = profile.EventLog[len(profile.EventLog)-config.EventLogMaxPerSession:]
	}

	// Every update makes the profile maximally fresh again; the pattern
	// analysis worker decays it between events.
	profile.RealTime.DataFreshnessScore = 100
}

// applyEngagementBoost raises the engagement score by the subtype's base boost
// scaled by the event's engagement level and attention quality.
func (s *ProfileService) applyEngagementBoost(profile *profiles.BehaviorProfile, event *events.BehaviorEvent) {
	boost, known := subtypeEngagementBoosts[event.Subtype]
	if !known {
		boost = defaultEngagementBoost
	}

	if event.Signals != nil {
		switch event.Signals.EngagementLevel {
		case events.EngagementHigh:
			boost *= 1.2
		case events.EngagementVeryHigh:
			boost *= 1.5
		}
		if event.Signals.AttentionQuality > 80 {
			boost *= 1.3
		}
	}

	profile.RealTime.EngagementScore = clampScore(profile.RealTime.EngagementScore + boost)
}

// recordEventTime appends the event time and recomputes interaction velocity
// over the trailing window. Duplicate events count twice; velocity measures
// traffic, not distinct interactions.
func (s *ProfileService) recordEventTime(profile *profiles.BehaviorProfile, now time.Time) {
	profile.EventTimes = append(profile.EventTimes, now)

	cutoff := now.Add(-config.VelocityWindow)
	firstInWindow := 0
	for firstInWindow < len(profile.EventTimes) && profile.EventTimes[firstInWindow].Before(cutoff) {
		firstInWindow++
	}
	profile.EventTimes = profile.EventTimes[firstInWindow:]
	profile.Patterns.InteractionVelocity = len(profile.EventTimes)
}

// updateContentPreference nudges the preference score for the inferred content
// type up by 0.1, capped at 1.
func (s *ProfileService) updateContentPreference(profile *profiles.BehaviorProfile, event *events.BehaviorEvent) {
	contentType := inferContentType(event)
	if contentType == "" {
		return
	}
	score := profile.ContentPreferences[contentType] + 0.1
	if score > 1 {
		score = 1
	}
	profile.ContentPreferences[contentType] = score
}

func inferContentType(event *events.BehaviorEvent) string {
	haystack := strings.ToLower(event.ContentID + " " + event.PageContext)
	for _, entry := range contentTypeKeywords {
		if strings.Contains(haystack, entry.keyword) {
			return entry.contentType
		}
	}
	return ""
}

// RefreshPredictions recomputes the deterministic churn and conversion scores
// from the profile's current aggregates.
func (s *ProfileService) RefreshPredictions(profile *profiles.BehaviorProfile) {
	engagement := profile.RealTime.EngagementScore
	velocity := float64(profile.Patterns.InteractionVelocity)
	exploration := profile.ExplorationTendency()

	churn := 100 - engagement*0.7 - velocity*2 + exploration*20
	profile.RealTime.ChurnRiskScore = clampScore(churn)

	conversion := engagement*0.6 + velocity*1.5
	if profile.ReturnVisitor {
		conversion += 10
	}
	for _, preference := range profile.ContentPreferences {
		if preference >= 0.5 {
			conversion += 5
			break
		}
	}
	profile.RealTime.ConversionLikelihood = clampScore(conversion)
}

// DecayFreshness lowers the data-freshness score by the configured amount.
func (s *ProfileService) DecayFreshness(profile *profiles.BehaviorProfile) {
	score := profile.RealTime.DataFreshnessScore - config.FreshnessDecayAmount
	if score < 0 {
		score = 0
	}
	profile.RealTime.DataFreshnessScore = score
}
