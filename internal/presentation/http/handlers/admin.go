package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

// AdminHandlers exposes runtime operational controls.
type AdminHandlers struct {
	logger *logging.ChanneledLogger
}

// NewAdminHandlers creates the admin handler set.
func NewAdminHandlers(logger *logging.ChanneledLogger) *AdminHandlers {
	return &AdminHandlers{logger: logger}
}

// LogLevels returns the current per-channel log levels.
func (h *AdminHandlers) LogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": h.logger.GetChannelLevels()})
}

type setLogLevelRequest struct {
	Channel string `json:"channel" binding:"required"`
	Level   string `json:"level" binding:"required"`
}

// SetLogLevel adjusts one channel's log level at runtime.
func (h *AdminHandlers) SetLogLevel(c *gin.Context) {
	var req setLogLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log level payload"})
		return
	}

	level, ok := parseLogLevel(req.Level)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown level: " + req.Level})
		return
	}

	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"levels": h.logger.GetChannelLevels()})
}

func parseLogLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}
