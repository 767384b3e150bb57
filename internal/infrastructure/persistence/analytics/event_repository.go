// Package analytics provides the concrete SQL-based implementations
// for behavior event persistence.
//
// PURPOSE: Store enriched events and applied personalizations as they happen
// - Enriched events → behavior_events table
// - Applied personalizations → applied_personalizations table
//
// Writes happen on the worker and apply paths, never inside event intake.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/sessions"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

// SQLEventRepository handles behavior event persistence to database.
type SQLEventRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEventRepository creates a new instance of the repository.
func NewSQLEventRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEventRepository {
	return &SQLEventRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the event tables when they do not exist yet.
func (r *SQLEventRepository) EnsureSchema() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS behavior_events (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			user_id TEXT,
			event_type TEXT NOT NULL,
			event_subtype TEXT NOT NULL,
			intent_strength REAL,
			engagement_level TEXT,
			attention_quality REAL,
			urgency_level TEXT,
			consent_level TEXT,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_behavior_events_session
			ON behavior_events (session_id, created_at);
		CREATE TABLE IF NOT EXISTS applied_personalizations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			rule_id TEXT NOT NULL,
			action_kind TEXT NOT NULL,
			effectiveness_score REAL NOT NULL,
			feedback TEXT,
			applied_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_applied_personalizations_session
			ON applied_personalizations (session_id, applied_at);`

	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to ensure event schema: %w", err)
	}
	return nil
}

// StoreBehaviorEvent saves an enriched behavior event to the database.
func (r *SQLEventRepository) StoreBehaviorEvent(event *events.BehaviorEvent) error {
	rowID := security.GenerateULID()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal behavior event: %w", err)
	}

	var intentStrength, attentionQuality float64
	var engagementLevel, urgencyLevel string
	if event.Signals != nil {
		intentStrength = event.Signals.IntentStrength
		attentionQuality = event.Signals.AttentionQuality
		engagementLevel = string(event.Signals.EngagementLevel)
		urgencyLevel = string(event.Signals.UrgencyLevel)
	}
	var consentLevel string
	if event.Privacy != nil {
		consentLevel = string(event.Privacy.ConsentLevel)
	}

	const query = `
		INSERT INTO behavior_events (id, event_id, session_id, user_id, event_type, event_subtype,
			intent_strength, engagement_level, attention_quality, urgency_level, consent_level,
			payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	_, err = r.db.Exec(
		query,
		rowID,
		event.EventID,
		event.SessionID,
		event.UserID,
		event.Type,
		event.Subtype,
		intentStrength,
		engagementLevel,
		attentionQuality,
		urgencyLevel,
		consentLevel,
		string(payload),
		event.Timestamp.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		r.logger.Database().Error("Behavior event insert failed",
			"error", err.Error(),
			"eventId", event.EventID,
			"sessionId", event.SessionID,
			"type", event.Type)
		return fmt.Errorf("failed to store behavior event: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Debug("Behavior event insert completed",
		"eventId", event.EventID,
		"sessionId", event.SessionID,
		"type", event.Type,
		"duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// StoreAppliedPersonalization saves a rule application record.
func (r *SQLEventRepository) StoreAppliedPersonalization(sessionID string, applied *sessions.AppliedPersonalization) error {
	rowID := security.GenerateULID()

	var feedback any
	if applied.Feedback != nil {
		raw, err := json.Marshal(applied.Feedback)
		if err != nil {
			return fmt.Errorf("failed to marshal feedback: %w", err)
		}
		feedback = string(raw)
	}

	const query = `
		INSERT INTO applied_personalizations (id, session_id, rule_id, action_kind,
			effectiveness_score, feedback, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	_, err := r.db.Exec(
		query,
		rowID,
		sessionID,
		applied.RuleID,
		string(applied.ActionKind),
		applied.EffectivenessScore,
		feedback,
		applied.AppliedAt.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		r.logger.Database().Error("Applied personalization insert failed",
			"error", err.Error(),
			"sessionId", sessionID,
			"ruleId", applied.RuleID)
		return fmt.Errorf("failed to store applied personalization: %w", err)
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// FindEventsBySession retrieves persisted events for one session, oldest first.
func (r *SQLEventRepository) FindEventsBySession(sessionID string, limit int) ([]*events.BehaviorEvent, error) {
	const query = `
		SELECT payload
		FROM behavior_events
		WHERE session_id = ?
		ORDER BY created_at
		LIMIT ?`

	start := time.Now()
	rows, err := r.db.Query(query, sessionID, limit)
	if err != nil {
		r.logger.Database().Error("Failed to query behavior events",
			"error", err.Error(),
			"sessionId", sessionID)
		return nil, fmt.Errorf("failed to query behavior events: %w", err)
	}
	defer rows.Close()

	var result []*events.BehaviorEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan behavior event row: %w", err)
		}
		var event events.BehaviorEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			r.logger.Database().Warn("Skipping undecodable behavior event row", "sessionId", sessionID, "error", err.Error())
			continue
		}
		result = append(result, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate behavior event rows: %w", err)
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return result, nil
}
