// Package config provides centralized default values for PulseTrack
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Worker periods
	RealTimeDrainInterval   time.Duration
	TriggerDrainInterval    time.Duration
	PatternAnalysisInterval time.Duration
	HealthCheckInterval     time.Duration

	// Worker batch sizes
	RealTimeDrainBatchSize int
	TriggerDrainBatchSize  int

	// Queue bounds
	RealTimeQueueCapacity int
	TriggerQueueCapacity  int
	QueueShedWatermark    int

	// Profile store bounds
	MaxProfiles           int
	MaxRecommendations    int
	EventLogMaxPerSession int
	ProfileRetention      time.Duration
	VelocityWindow        time.Duration
	FreshnessDecayAmount  float64

	// Health warning thresholds
	QueueDepthWarnThreshold   int
	ProfileCountWarnThreshold int

	// Durable store
	DatabasePath string
	DatabaseURL  string
	DBAuthToken  string

	// External analytics collector
	CollectorEndpoint string
	CollectorTimeout  time.Duration

	// Slow query logging
	SlowQueryThreshold time.Duration
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Worker periods
	RealTimeDrainInterval = getEnvDuration("REALTIME_DRAIN_INTERVAL", 1*time.Second)
	TriggerDrainInterval = getEnvDuration("TRIGGER_DRAIN_INTERVAL", 2*time.Second)
	PatternAnalysisInterval = getEnvDuration("PATTERN_ANALYSIS_INTERVAL", 5*time.Minute)
	HealthCheckInterval = getEnvDuration("HEALTH_CHECK_INTERVAL", 30*time.Second)

	// Worker batch sizes
	RealTimeDrainBatchSize = getEnvInt("REALTIME_DRAIN_BATCH_SIZE", 10)
	TriggerDrainBatchSize = getEnvInt("TRIGGER_DRAIN_BATCH_SIZE", 5)

	// Queue bounds
	RealTimeQueueCapacity = getEnvInt("REALTIME_QUEUE_CAPACITY", 10000)
	TriggerQueueCapacity = getEnvInt("TRIGGER_QUEUE_CAPACITY", 5000)
	QueueShedWatermark = getEnvInt("QUEUE_SHED_WATERMARK", 8000)

	// Profile store bounds
	MaxProfiles = getEnvInt("MAX_PROFILES", 50000)
	MaxRecommendations = getEnvInt("MAX_RECOMMENDATIONS", 10)
	EventLogMaxPerSession = getEnvInt("EVENT_LOG_MAX_PER_SESSION", 500)
	ProfileRetention = getEnvDuration("PROFILE_RETENTION", 2*time.Hour)
	VelocityWindow = getEnvDuration("VELOCITY_WINDOW", 60*time.Second)
	FreshnessDecayAmount = float64(getEnvInt("FRESHNESS_DECAY_AMOUNT", 10))

	// Health warning thresholds
	QueueDepthWarnThreshold = getEnvInt("QUEUE_DEPTH_WARN_THRESHOLD", 1000)
	ProfileCountWarnThreshold = getEnvInt("PROFILE_COUNT_WARN_THRESHOLD", 40000)

	// Durable store
	DatabasePath = getEnvString("DATABASE_PATH", "pulsetrack.db")
	DatabaseURL = getEnvString("DATABASE_URL", "")
	DBAuthToken = getEnvString("DB_AUTH_TOKEN", "")

	// External analytics collector
	CollectorEndpoint = getEnvString("COLLECTOR_ENDPOINT", "")
	CollectorTimeout = getEnvDuration("COLLECTOR_TIMEOUT", 500*time.Millisecond)

	// Slow query logging
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 100*time.Millisecond)
}
