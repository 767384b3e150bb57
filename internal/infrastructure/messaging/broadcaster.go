// Package messaging provides the live broadcast fan-out for dashboard clients.
package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

// Event names pushed to connected clients.
const (
	EventPersonalizationApplied = "personalization_applied"
	EventProfileReclassified    = "profile_reclassified"
)

// Broadcaster manages session-scoped live connections. Slow clients drop
// messages rather than block the sender.
type Broadcaster struct {
	sessions map[string][]chan []byte // sessionId -> client channels
	mu       sync.Mutex
	logger   *logging.ChanneledLogger
}

// NewBroadcaster creates a broadcaster.
func NewBroadcaster(logger *logging.ChanneledLogger) *Broadcaster {
	return &Broadcaster{
		sessions: make(map[string][]chan []byte),
		logger:   logger,
	}
}

// AddClient registers a client for one session's updates.
func (b *Broadcaster) AddClient(sessionID string) chan []byte {
	ch := make(chan []byte, 10)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sessions[sessionID] = append(b.sessions[sessionID], ch)
	b.logger.SSE().Debug("Live client registered", "sessionId", sessionID)
	return ch
}

// RemoveClient unregisters a client channel.
func (b *Broadcaster) RemoveClient(sessionID string, ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients, exists := b.sessions[sessionID]
	if !exists {
		return
	}
	remaining := make([]chan []byte, 0, len(clients))
	for _, client := range clients {
		if client != ch {
			remaining = append(remaining, client)
		}
	}
	if len(remaining) == 0 {
		delete(b.sessions, sessionID)
	} else {
		b.sessions[sessionID] = remaining
	}
	b.logger.SSE().Debug("Live client unregistered", "sessionId", sessionID)
}

// ClientCount returns the number of clients attached to a session.
func (b *Broadcaster) ClientCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions[sessionID])
}

type liveMessage struct {
	Event     string         `json:"event"`
	SessionID string         `json:"sessionId"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Broadcast sends a named event to every client attached to the session.
func (b *Broadcaster) Broadcast(event, sessionID string, data map[string]any) {
	payload, err := json.Marshal(liveMessage{
		Event:     event,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		b.logger.SSE().Error("Failed to marshal live message", "event", event, "error", err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	clients := b.sessions[sessionID]
	for _, ch := range clients {
		select {
		case ch <- payload:
		default:
			b.logger.SSE().Warn("Live channel full, message dropped", "sessionId", sessionID, "event", event)
		}
	}
	if len(clients) > 0 {
		b.logger.LogBroadcast(event, sessionID, len(clients))
	}
}
