// Package profiles defines the per-session behavioral aggregate state.
package profiles

import (
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
)

// BehaviorPatterns holds rolling aggregates over a session's event stream.
type BehaviorPatterns struct {
	AvgSessionDurationMs float64 `json:"avgSessionDurationMs"`
	AvgScrollDepth       float64 `json:"avgScrollDepth"`
	InteractionVelocity  int     `json:"interactionVelocity"` // events in the trailing velocity window
}

// RealTimeState is mutated on every processed event.
type RealTimeState struct {
	EngagementScore      float64  `json:"engagementScore"`
	ChurnRiskScore       float64  `json:"churnRiskScore"`
	ConversionLikelihood float64  `json:"conversionLikelihood"`
	PredictedActions     []string `json:"predictedActions"`
	DataFreshnessScore   float64  `json:"dataFreshnessScore"`
}

// Segmentation is mutated only by the periodic pattern-analysis worker.
type Segmentation struct {
	PrimarySegment    string   `json:"primarySegment"`
	SecondarySegments []string `json:"secondarySegments"`
	Archetype         string   `json:"archetype"`
	ClusterID         string   `json:"clusterId"`
}

// BehaviorProfile aggregates behavioral state for one visitor session.
// Created lazily on the first event for a session; evicted once its retention
// window elapses.
type BehaviorProfile struct {
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`

	Patterns     BehaviorPatterns `json:"behaviorPatterns"`
	RealTime     RealTimeState    `json:"realTimeState"`
	Segmentation Segmentation     `json:"segmentation"`

	// ContentPreferences maps inferred content type -> preference score in [0,1].
	ContentPreferences map[string]float64 `json:"contentPreferences"`

	ReturnVisitor bool `json:"returnVisitor"`

	// EventLog is append-only and bounded by retention policy.
	EventLog []*events.BehaviorEvent `json:"-"`

	// EventTimes backs the trailing-window velocity computation.
	EventTimes []time.Time `json:"-"`

	// EffectivenessHistory records scores from applied personalizations;
	// its average scales the rule engine's expected-impact estimates.
	EffectivenessHistory []float64 `json:"-"`

	PersonalizationsApplied int `json:"personalizationsApplied"`
}

// Clone returns a deep copy that can be read or serialized without holding
// the profile's session lock.
func (p *BehaviorProfile) Clone() *BehaviorProfile {
	clone := *p

	clone.ContentPreferences = make(map[string]float64, len(p.ContentPreferences))
	for contentType, score := range p.ContentPreferences {
		clone.ContentPreferences[contentType] = score
	}

	clone.RealTime.PredictedActions = append([]string(nil), p.RealTime.PredictedActions...)
	clone.Segmentation.SecondarySegments = append([]string(nil), p.Segmentation.SecondarySegments...)
	clone.EventLog = append([]*events.BehaviorEvent(nil), p.EventLog...)
	clone.EventTimes = append([]time.Time(nil), p.EventTimes...)
	clone.EffectivenessHistory = append([]float64(nil), p.EffectivenessHistory...)

	return &clone
}

// EffectivenessAverage returns the mean applied-personalization effectiveness,
// or 50 (neutral) when no personalization has been applied yet.
func (p *BehaviorProfile) EffectivenessAverage() float64 {
	if len(p.EffectivenessHistory) == 0 {
		return 50
	}
	var sum float64
	for _, score := range p.EffectivenessHistory {
		sum += score
	}
	return sum / float64(len(p.EffectivenessHistory))
}

// ExplorationTendency reports the share of logged events flagged as exploration.
func (p *BehaviorProfile) ExplorationTendency() float64 {
	if len(p.EventLog) == 0 {
		return 0
	}
	exploring := 0
	for _, event := range p.EventLog {
		if event.Signals != nil && event.Signals.ExplorationMode {
			exploring++
		}
	}
	return float64(exploring) / float64(len(p.EventLog))
}
