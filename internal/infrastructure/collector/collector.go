// Package collector forwards tracked events to an external analytics sink.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/metrics"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// Collector delivers event summaries to an external analytics service.
// Delivery is best effort: failures are logged and never propagate to intake.
type Collector interface {
	CollectEvent(ctx context.Context, sessionID, category, source, action string, properties map[string]any) error
}

// HTTPCollector posts events as JSON to a configured endpoint with a hard
// per-call timeout so the fast path can never stall on a slow sink.
type HTTPCollector struct {
	endpoint string
	client   *http.Client
	logger   *logging.ChanneledLogger
}

// NewHTTPCollector creates a collector bound to the configured endpoint.
func NewHTTPCollector(endpoint string, timeout time.Duration, logger *logging.ChanneledLogger) *HTTPCollector {
	return &HTTPCollector{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type collectPayload struct {
	SessionID  string         `json:"sessionId"`
	Category   string         `json:"category"`
	Source     string         `json:"source"`
	Action     string         `json:"action"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// CollectEvent posts one event summary to the external sink.
func (c *HTTPCollector) CollectEvent(ctx context.Context, sessionID, category, source, action string, properties map[string]any) error {
	payload := collectPayload{
		SessionID:  sessionID,
		Category:   category,
		Source:     source,
		Action:     action,
		Properties: properties,
		Timestamp:  time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal collector payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build collector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.CollectorFailures.Inc()
		c.logger.Analytics().Warn("Collector delivery failed", "error", err.Error(), "action", action)
		return fmt.Errorf("collector delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		metrics.CollectorFailures.Inc()
		c.logger.Analytics().Warn("Collector rejected event", "status", resp.StatusCode, "action", action)
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopCollector discards everything. Used when no endpoint is configured and in tests.
type NoopCollector struct{}

// CollectEvent does nothing.
func (NoopCollector) CollectEvent(ctx context.Context, sessionID, category, source, action string, properties map[string]any) error {
	return nil
}

// FromConfig returns the HTTP collector when an endpoint is configured,
// the noop collector otherwise.
func FromConfig(logger *logging.ChanneledLogger) Collector {
	if config.CollectorEndpoint == "" {
		return NoopCollector{}
	}
	return NewHTTPCollector(config.CollectorEndpoint, config.CollectorTimeout, logger)
}
