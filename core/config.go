/*
Package core implements the Oddsbot conversational backend: webhook
transport, session context enrichment, skill selection, layered prompt
assembly, the agentic turn loop against the Anthropic API, tool dispatch,
and normalization of the agent's output into the wire response format.

This file handles:
- Loading configuration from environment variables with sensible defaults
- Structured logging setup with configurable levels

The configuration system follows the twelve-factor app methodology by
prioritizing environment variables for deployment flexibility while
providing reasonable defaults for development.
*/
package core

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all configurable values for the Oddsbot application.
// It centralizes server settings, model configuration, collaborator
// endpoints, and behavioral controls.
type Config struct {
	// Server configuration
	Port          string // HTTP server port number (default: "3002")
	WebhookAPIKey string // Shared secret validated against the X-Odds-API-Key header (required)

	// Anthropic model configuration
	AnthropicAPIKey string // API key for the Anthropic API (required)
	Model           string // Model name used for inference (default: "claude-sonnet-4-5")
	MaxTokens       int    // Maximum tokens per model response (default: 4096)
	MaxTurns        int    // Maximum agentic loop turns before giving up (default: 10)

	// Storage configuration
	DatabasePath string // SQLite database path for profiles and audit records (default: "data/oddsbot.db")

	// Dedup cache configuration
	RedisURL string        // Redis connection URL for request deduplication (default: "redis://localhost:6379")
	DedupTTL time.Duration // How long a correlation id stays marked as seen (default: 5m)

	// Sports data API configuration
	SportsAPIURL     string        // Base URL of the sports data query API
	SportsAPITimeout time.Duration // Per-call timeout for outbound sports data requests (default: 10s)

	// Agent behavior
	AgentName  string // Default persona name when the request does not supply one (default: "Paul")
	Timezone   string // Reference timezone for session-local date/time facts (default: "America/Bogota")
	PromptsDir string // Directory containing the instruction layer files (default: "prompts")

	// Logging configuration
	LogLevel          string // Minimum log level: debug, info, warn, error (default: "info")
	LogTruncateLength int    // Maximum length for log message truncation (default: 500)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. Defaults are set first and overridden by environment variables
// when present; numeric values are only applied when they parse and are
// positive.
func LoadConfig() *Config {
	config := &Config{
		Port:              "3002",
		Model:             "claude-sonnet-4-5",
		MaxTokens:         4096,
		MaxTurns:          10,
		DatabasePath:      "data/oddsbot.db",
		RedisURL:          "redis://localhost:6379",
		DedupTTL:          5 * time.Minute,
		SportsAPIURL:      "https://sports-data-api-dev.onrender.com",
		SportsAPITimeout:  10 * time.Second,
		AgentName:         "Paul",
		Timezone:          "America/Bogota",
		PromptsDir:        "prompts",
		LogLevel:          "info",
		LogTruncateLength: 500,
	}

	if port := os.Getenv("PORT"); port != "" {
		config.Port = port
	}

	config.WebhookAPIKey = os.Getenv("WEBHOOK_API_KEY")
	config.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")

	if model := os.Getenv("CLAUDE_MODEL"); model != "" {
		config.Model = model
	}

	if maxTokens := os.Getenv("MAX_TOKENS"); maxTokens != "" {
		if val, err := strconv.Atoi(maxTokens); err == nil && val > 0 {
			config.MaxTokens = val
		}
	}

	if maxTurns := os.Getenv("MAX_TURNS"); maxTurns != "" {
		if val, err := strconv.Atoi(maxTurns); err == nil && val > 0 {
			config.MaxTurns = val
		}
	}

	if path := os.Getenv("DATABASE_PATH"); path != "" {
		config.DatabasePath = path
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	if ttl := os.Getenv("DEDUP_TTL_SECONDS"); ttl != "" {
		if val, err := strconv.Atoi(ttl); err == nil && val > 0 {
			config.DedupTTL = time.Duration(val) * time.Second
		}
	}

	if apiURL := os.Getenv("SPORTS_API_URL"); apiURL != "" {
		config.SportsAPIURL = apiURL
	}

	if timeout := os.Getenv("SPORTS_API_TIMEOUT"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil && val > 0 {
			config.SportsAPITimeout = time.Duration(val) * time.Second
		}
	}

	if name := os.Getenv("AGENT_NAME"); name != "" {
		config.AgentName = name
	}

	if tz := os.Getenv("REFERENCE_TIMEZONE"); tz != "" {
		config.Timezone = tz
	}

	if dir := os.Getenv("PROMPTS_DIR"); dir != "" {
		config.PromptsDir = dir
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}

	if truncateLen := os.Getenv("LOG_TRUNCATE_LENGTH"); truncateLen != "" {
		if val, err := strconv.Atoi(truncateLen); err == nil && val > 0 {
			config.LogTruncateLength = val
		}
	}

	return config
}

// InitializeLogger configures and returns a structured logger based on the
// provided configuration. JSON formatting is used for log aggregation, with
// RFC3339 timestamps and output to stdout for container environments.
func InitializeLogger(config *Config) *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	switch strings.ToLower(config.LogLevel) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.SetOutput(os.Stdout)

	logger.WithFields(logrus.Fields{
		"port":             config.Port,
		"model":            config.Model,
		"maxTokens":        config.MaxTokens,
		"maxTurns":         config.MaxTurns,
		"databasePath":     config.DatabasePath,
		"dedupTTL":         config.DedupTTL,
		"sportsAPIURL":     config.SportsAPIURL,
		"sportsAPITimeout": config.SportsAPITimeout,
		"timezone":         config.Timezone,
		"promptsDir":       config.PromptsDir,
	}).Info("Configuration loaded")

	return logger
}
