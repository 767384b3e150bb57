// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/AtRiskMedia/pulsetrack-go/internal/application/services"
	"github.com/AtRiskMedia/pulsetrack-go/internal/application/workers"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/collector"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/analytics"
	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/pulsetrack-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services (stateless singletons over the shared store)
	EnrichmentService      *services.EnrichmentService
	ProfileService         *services.ProfileService
	RuleEvaluationService  *services.RuleEvaluationService
	SegmentationService    *services.SegmentationService
	TrackingService        *services.TrackingService
	PersonalizationService *services.PersonalizationService
	StatisticsService      *services.StatisticsService

	// Workers
	WorkerManager *workers.Manager

	// Infrastructure
	Store         *caching.Store
	RealTimeQueue *caching.EventQueue
	TriggerQueue  *caching.EventQueue
	Broadcaster   *messaging.Broadcaster
	Collector     collector.Collector
	DB            *database.DB
	Repository    *analytics.SQLEventRepository
	Logger        *logging.ChanneledLogger
}

// NewContainer creates and wires all singleton services
func NewContainer(db *database.DB, logger *logging.ChanneledLogger) *Container {
	store := caching.NewStore(logger)
	realTimeQueue := caching.NewEventQueue("realtime", config.RealTimeQueueCapacity, config.QueueShedWatermark)
	triggerQueue := caching.NewEventQueue("trigger", config.TriggerQueueCapacity, 0)
	broadcaster := messaging.NewBroadcaster(logger)
	eventCollector := collector.FromConfig(logger)

	var repository *analytics.SQLEventRepository
	if db != nil {
		repository = analytics.NewSQLEventRepository(db, logger)
	}

	enrichment := services.NewEnrichmentService(logger)
	profileService := services.NewProfileService(store, repository, logger)
	evaluation := services.NewRuleEvaluationService(logger)
	segmentation := services.NewSegmentationService(logger)
	tracking := services.NewTrackingService(store, enrichment, profileService, eventCollector, repository, realTimeQueue, triggerQueue, logger)
	personalization := services.NewPersonalizationService(store, evaluation, profileService, repository, broadcaster, logger)
	statistics := services.NewStatisticsService(store, realTimeQueue, triggerQueue, logger)

	workerManager := workers.NewManager(
		workers.NewRealTimeDrainWorker(realTimeQueue, tracking, logger),
		workers.NewTriggerDrainWorker(triggerQueue, store, logger),
		workers.NewPatternAnalysisWorker(store, profileService, segmentation, broadcaster, logger),
		workers.NewHealthWorker(statistics, logger),
		logger,
	)

	return &Container{
		EnrichmentService:      enrichment,
		ProfileService:         profileService,
		RuleEvaluationService:  evaluation,
		SegmentationService:    segmentation,
		TrackingService:        tracking,
		PersonalizationService: personalization,
		StatisticsService:      statistics,

		WorkerManager: workerManager,

		Store:         store,
		RealTimeQueue: realTimeQueue,
		TriggerQueue:  triggerQueue,
		Broadcaster:   broadcaster,
		Collector:     eventCollector,
		DB:            db,
		Repository:    repository,
		Logger:        logger,
	}
}
