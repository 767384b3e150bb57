// Package handlers contains the thin HTTP adapters over the engine services.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/services"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/events"
	"github.com/AtRiskMedia/pulsetrack-go/internal/domain/sessions"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

// BehaviorHandlers exposes the engine's public contract over HTTP. All logic
// lives in the services; handlers only bind, call and translate errors.
type BehaviorHandlers struct {
	tracking        *services.TrackingService
	personalization *services.PersonalizationService
	statistics      *services.StatisticsService
	broadcaster     *messaging.Broadcaster
	logger          *logging.ChanneledLogger
}

// NewBehaviorHandlers creates the behavior handler set.
func NewBehaviorHandlers(
	tracking *services.TrackingService,
	personalization *services.PersonalizationService,
	statistics *services.StatisticsService,
	broadcaster *messaging.Broadcaster,
	logger *logging.ChanneledLogger,
) *BehaviorHandlers {
	return &BehaviorHandlers{
		tracking:        tracking,
		personalization: personalization,
		statistics:      statistics,
		broadcaster:     broadcaster,
		logger:          logger,
	}
}

// TrackEvent accepts a raw behavior event. Intake always succeeds once the
// payload parses; downstream failures never surface here.
func (h *BehaviorHandlers) TrackEvent(c *gin.Context) {
	var event events.BehaviorEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}
	if event.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId is required"})
		return
	}

	eventID := h.tracking.TrackBehaviorEvent(c.Request.Context(), &event)
	c.JSON(http.StatusAccepted, gin.H{"eventId": eventID})
}

type startSessionRequest struct {
	SessionID string                  `json:"sessionId" binding:"required"`
	UserID    string                  `json:"userId"`
	Config    *sessions.SessionConfig `json:"config"`
}

// StartSession starts (or restarts) a personalization session.
func (h *BehaviorHandlers) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
		return
	}

	sessionID := h.personalization.StartPersonalizationSession(req.SessionID, req.UserID, req.Config)
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID})
}

// Recommendations returns the ranked personalization list for a session.
func (h *BehaviorHandlers) Recommendations(c *gin.Context) {
	sessionID := c.Param("sessionId")

	response, err := h.personalization.GetPersonalizationRecommendations(sessionID, time.Now())
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.LogError(logging.ChannelRules, "getPersonalizationRecommendations", err, map[string]any{
			"sessionId": sessionID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recommendation generation failed"})
		return
	}
	c.JSON(http.StatusOK, response)
}

type applyRequest struct {
	RuleID   string             `json:"ruleId" binding:"required"`
	Feedback *sessions.Feedback `json:"feedback"`
}

// Apply records an applied personalization with optional feedback. Unknown
// ids report success=false with HTTP 200, matching the contract.
func (h *BehaviorHandlers) Apply(c *gin.Context) {
	sessionID := c.Param("sessionId")

	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid apply payload"})
		return
	}

	result := h.personalization.ApplyPersonalization(sessionID, req.RuleID, req.Feedback)
	c.JSON(http.StatusOK, result)
}

// Statistics returns the aggregate engine snapshot.
func (h *BehaviorHandlers) Statistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.statistics.Statistics())
}

// Profile returns one session's behavior profile.
func (h *BehaviorHandlers) Profile(c *gin.Context) {
	sessionID := c.Param("sessionId")

	profile, err := h.statistics.Profile(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Rules returns the personalization rule catalog.
func (h *BehaviorHandlers) Rules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": h.statistics.Rules()})
}

// Clusters returns the behavioral cluster snapshots.
func (h *BehaviorHandlers) Clusters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clusters": h.statistics.Clusters()})
}

// Live upgrades to a websocket streaming personalization and reclassification
// events for one session.
func (h *BehaviorHandlers) Live(c *gin.Context) {
	sessionID := c.Param("sessionId")
	messaging.ServeWS(h.broadcaster, h.logger, c.Writer, c.Request, sessionID)
}

// Health reports liveness.
func (h *BehaviorHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
