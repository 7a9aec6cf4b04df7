package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds global settings for the arbiter service. Every setting can
// be configured via environment variables or programmatically.
type Config struct {
	// === Core Settings ===
	ListenAddr string // HTTP listen address (default: ":8080")

	// === Session Lifecycle ===
	SessionTTL      time.Duration // How long finished sessions stay readable
	CleanupInterval time.Duration // Archive sweep cadence
	EventBufferSize int           // Outbound event queue depth

	// === Storage ===
	// Empty values disable the backend; the engine then runs fully
	// in-memory.
	RedisAddr   string // Redis address for session/baseline storage
	PostgresDSN string // Postgres DSN for durable action archives

	// === Detection ===
	TuningPath        string  // Optional YAML detector tuning file
	AnomalyFloor      float64 // Nearest-neighbor similarity floor (default: 0.90)
	AnalysisDeadline  time.Duration
	EnableAnomaly     bool // Enable the vector outlier detector
	EnableBaselines   bool // Enable cross-session baseline comparison
	AutoAnalyzeRounds bool // Run detection at the end of every round
}

// NewDefaultConfig creates a Config with sensible defaults, overridable
// via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		ListenAddr: GetEnv("ARBITER_LISTEN_ADDR", ":8080"),

		SessionTTL:      GetEnvDuration("ARBITER_SESSION_TTL", time.Hour),
		CleanupInterval: GetEnvDuration("ARBITER_CLEANUP_INTERVAL", 5*time.Minute),
		EventBufferSize: GetEnvInt("ARBITER_EVENT_BUFFER", 256),

		RedisAddr:   GetEnv("ARBITER_REDIS_ADDR", ""),
		PostgresDSN: GetEnv("ARBITER_POSTGRES_DSN", ""),

		TuningPath:        GetEnv("ARBITER_TUNING_PATH", ""),
		AnomalyFloor:      GetEnvFloat("ARBITER_ANOMALY_FLOOR", 0.90),
		AnalysisDeadline:  GetEnvDuration("ARBITER_ANALYSIS_DEADLINE", 10*time.Second),
		EnableAnomaly:     GetEnvBool("ARBITER_ENABLE_ANOMALY", true),
		EnableBaselines:   GetEnvBool("ARBITER_ENABLE_BASELINES", true),
		AutoAnalyzeRounds: GetEnvBool("ARBITER_AUTO_ANALYZE", false),
	}
}

// NewStrictConfig is the tournament preset: aggressive detection, every
// round analyzed, short session retention.
func NewStrictConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.AnomalyFloor = 0.93
	cfg.AutoAnalyzeRounds = true
	cfg.SessionTTL = 15 * time.Minute
	return cfg
}

// NewLenientConfig is the casual-play preset: detection on demand only,
// generous retention.
func NewLenientConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.AnomalyFloor = 0.85
	cfg.EnableBaselines = false
	cfg.SessionTTL = 6 * time.Hour
	return cfg
}

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvDuration returns the duration value of an environment variable or
// a default value. Accepts Go duration syntax ("90s", "1h30m").
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
