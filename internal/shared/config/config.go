package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	DatabaseURL     string
	RedisURL        string
	Env             string

	LLMProvider      string
	LLMModel         string
	CompletionAPIKey string

	Analysis AnalysisConfig
}

// AnalysisConfig carries the weekly health-analysis pipeline knobs. Defaults
// match the documented pipeline contract; every value can be overridden per
// deployment through HA_* environment variables.
type AnalysisConfig struct {
	BatchSize       int
	MaxBatches      int
	Concurrency     int
	InterBatchDelay time.Duration
	HistoryWeeks    int
	LeaseTTL        time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:             getEnv("PORT", "8080"),
		CORSAllowOrigin:  splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "*")),
		DatabaseURL:      dbURL,
		RedisURL:         getEnv("REDIS_URL", ""),
		Env:              env,
		LLMProvider:      getEnv("LLM_PROVIDER", "openai"),
		LLMModel:         getEnv("LLM_MODEL", "gpt-4o-mini"),
		CompletionAPIKey: getEnv("OPENAI_API_KEY", ""),
		Analysis: AnalysisConfig{
			BatchSize:       getEnvInt("HA_BATCH_SIZE", 75),
			MaxBatches:      getEnvInt("HA_MAX_BATCHES", 50),
			Concurrency:     getEnvInt("HA_CONCURRENCY", 25),
			InterBatchDelay: time.Duration(getEnvIntMin("HA_BATCH_DELAY_MS", 1000, 0)) * time.Millisecond,
			HistoryWeeks:    getEnvInt("HA_HISTORY_WEEKS", 4),
			LeaseTTL:        time.Duration(getEnvInt("HA_LEASE_TTL_SECONDS", 1800)) * time.Second,
		},
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	return getEnvIntMin(key, def, 1)
}

// getEnvIntMin reads an integer env var with a per-key lower bound; the delay
// knob legitimately allows zero where the sizing knobs do not.
func getEnvIntMin(key string, def, min int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < min {
		log.Printf("ignoring invalid %s=%q", key, raw)
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
