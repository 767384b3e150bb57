// Package analytics defines aggregate snapshot types for the engine.
package analytics

import "time"

// QueueStats is a point-in-time view of one bounded queue.
type QueueStats struct {
	Depth    int `json:"depth"`
	Capacity int `json:"capacity"`
}

// ClusterSnapshot summarizes one behavioral cluster.
type ClusterSnapshot struct {
	ClusterID     string   `json:"clusterId"`
	Size          int      `json:"size"`
	AvgEngagement float64  `json:"avgEngagement"`
	TopSegments   []string `json:"topSegments,omitempty"`
}

// EngineStatistics is the read-only aggregate snapshot returned by the
// statistics endpoint and logged by the health worker.
type EngineStatistics struct {
	ProfileCount   int `json:"profileCount"`
	ActiveSessions int `json:"activeSessions"`
	RuleCount      int `json:"ruleCount"`

	EventsProcessed int64 `json:"eventsProcessed"`
	EventsShed      int64 `json:"eventsShed"`
	FastPathEvents  int64 `json:"fastPathEvents"`

	RuleActivations int64 `json:"ruleActivations"`

	RealTimeQueue QueueStats `json:"realTimeQueue"`
	TriggerQueue  QueueStats `json:"triggerQueue"`

	AvgEngagementScore float64        `json:"avgEngagementScore"`
	ClusterSizes       map[string]int `json:"clusterSizes"`
	SegmentSizes       map[string]int `json:"segmentSizes"`

	UptimeSeconds float64   `json:"uptimeSeconds"`
	GeneratedAt   time.Time `json:"generatedAt"`
}
