package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Service auth. When empty the API is unauthenticated.
	APIKey string

	// OpenAI chat completions
	OpenAIAPIKey  string
	OpenAIProject string
	OpenAIModel   string
	OpenAIBaseURL string

	// Upload limits
	MaxUploadBytes int64

	// Question walk
	MaxQuestions       int
	GeneratedQuestions int
	QuestionSource     string

	// Prompt excerpt bounds (runes, not bytes)
	ChatExcerptChars   int
	ReportExcerptChars int

	// Session lifecycle
	SessionTTL time.Duration

	// LLM stats window
	StatsWindow time.Duration
}

const (
	QuestionSourceDocument = "document"
	QuestionSourceLLM      = "llm"
)

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("REPORTCHAT_API_KEY"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIProject: os.Getenv("OPENAI_PROJECT_ID"),
		OpenAIModel:   envOr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 20971520), // 20MB

		MaxQuestions:       envInt("MAX_QUESTIONS", 10),
		GeneratedQuestions: envInt("GENERATED_QUESTIONS", 3),
		QuestionSource:     envOr("QUESTION_SOURCE", QuestionSourceDocument),

		ChatExcerptChars:   envInt("CHAT_EXCERPT_CHARS", 6000),
		ReportExcerptChars: envInt("REPORT_EXCERPT_CHARS", 3500),

		SessionTTL: envDuration("SESSION_TTL", 2*time.Hour),

		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20971520
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = 10
	}
	if cfg.GeneratedQuestions <= 0 {
		cfg.GeneratedQuestions = 3
	}
	if cfg.ChatExcerptChars <= 0 {
		cfg.ChatExcerptChars = 6000
	}
	if cfg.ReportExcerptChars <= 0 {
		cfg.ReportExcerptChars = 3500
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.QuestionSource != QuestionSourceDocument && c.QuestionSource != QuestionSourceLLM {
		return fmt.Errorf("QUESTION_SOURCE must be %q or %q, got %q",
			QuestionSourceDocument, QuestionSourceLLM, c.QuestionSource)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
