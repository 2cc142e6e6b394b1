// Package config loads service configuration from environment variables
// with sensible defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything main needs to wire the service.
type Config struct {
	Port           string
	UploadDir      string
	GeneratedDir   string
	MaxAgeHours    int
	SweepInterval  time.Duration
	RenderWorkers  int
	MaxUploadBytes int64
	LogLevel       string
	LogFile        string
}

// Load reads the environment. Invalid values fall back to defaults.
func Load() Config {
	return Config{
		Port:           getEnv("PORT", "8080"),
		UploadDir:      getEnv("UPLOAD_DIR", "data/uploads"),
		GeneratedDir:   getEnv("GENERATED_DIR", "data/generated"),
		MaxAgeHours:    getEnvInt("CLEANUP_MAX_AGE_HOURS", 2),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
		RenderWorkers:  getEnvInt("RENDER_WORKERS", 4),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 5<<20),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
	}
}

// MaxAge converts the retention setting to a duration.
func (c Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
