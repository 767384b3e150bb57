package workers

import (
	"context"
	"sync"

	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

// Manager owns the lifecycle of the four periodic workers.
type Manager struct {
	realTime *RealTimeDrainWorker
	trigger  *TriggerDrainWorker
	pattern  *PatternAnalysisWorker
	health   *HealthWorker
	logger   *logging.ChanneledLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates the worker manager.
func NewManager(
	realTime *RealTimeDrainWorker,
	trigger *TriggerDrainWorker,
	pattern *PatternAnalysisWorker,
	health *HealthWorker,
	logger *logging.ChanneledLogger,
) *Manager {
	return &Manager{
		realTime: realTime,
		trigger:  trigger,
		pattern:  pattern,
		health:   health,
		logger:   logger,
	}
}

// Start launches all workers on a context derived from parent.
func (m *Manager) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel

	loops := []func(context.Context){
		m.realTime.Start,
		m.trigger.Start,
		m.pattern.Start,
		m.health.Start,
	}
	for _, loop := range loops {
		m.wg.Add(1)
		go func(run func(context.Context)) {
			defer m.wg.Done()
			run(ctx)
		}(loop)
	}

	m.logger.Worker().Info("All workers started", "count", len(loops))
}

// Stop cancels the worker context and waits for every loop to finish its
// current batch and exit.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.logger.Worker().Info("All workers stopped")
}
