// Package config loads the plugin host's own runtime configuration from the
// environment, following the teacher's getEnv/getEnvInt helper pattern. This
// is distinct from plugin/business configuration, which is loaded by an
// external collaborator and handed to plugins through their core-tier
// context.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings the host itself needs at startup.
type Config struct {
	// HTTPAddr is where the gin-bound API routes and /metrics are served.
	HTTPAddr string

	// PluginDir is handed to plugins as their core-tier DataDir. The host
	// does not scan it for plugin manifests.
	PluginDir string

	// BusBufferSize is loaded from the environment but not read by the bus,
	// whose per-subscription delivery queues are unbounded.
	BusBufferSize int

	// JobWorkerPoolSize is loaded from the environment but not read by the
	// scheduler, which dispatches every job on its own goroutine.
	JobWorkerPoolSize int

	// ProgressEditRateLimit is loaded from the environment but not read by
	// the progress router, which uses the fixed progress.EditRateLimit.
	ProgressEditRateLimit time.Duration

	// JobTrackingTTL bounds how long a completed job's tracking entry is
	// kept before eviction (spec.md §4.5).
	JobTrackingTTL time.Duration

	// RedisAddr, when non-empty, backs the optional Redis TrackingStore
	// (SPEC_FULL.md §4.5a). Empty means the in-memory store is used.
	RedisAddr     string
	RedisPassword string

	LogLevel  string
	LogPretty bool
}

// Load reads configuration from the environment, optionally after loading a
// .env file (ignored if absent — development convenience only).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:              getEnv("BRAINS_HTTP_ADDR", ":8080"),
		PluginDir:             getEnv("BRAINS_PLUGIN_DIR", "./plugins"),
		BusBufferSize:         getEnvInt("BRAINS_BUS_BUFFER_SIZE", 64),
		JobWorkerPoolSize:     getEnvInt("BRAINS_JOB_WORKERS", 4),
		ProgressEditRateLimit: getEnvDuration("BRAINS_PROGRESS_EDIT_INTERVAL", 500*time.Millisecond),
		JobTrackingTTL:        getEnvDuration("BRAINS_JOB_TRACKING_TTL", time.Hour),
		RedisAddr:             os.Getenv("BRAINS_REDIS_ADDR"),
		RedisPassword:         os.Getenv("BRAINS_REDIS_PASSWORD"),
		LogLevel:              getEnv("BRAINS_LOG_LEVEL", "info"),
		LogPretty:             getEnv("BRAINS_LOG_PRETTY", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
