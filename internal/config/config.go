package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderAssistant  = "assistant"
	ProviderOpenRouter = "openrouter"

	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPAddr          string
	LogLevel          slog.Level
	LLMProvider       string
	AssistantBaseURL  string
	AssistantAPIKey   string
	LLMModel          string
	LLMFallbackModels []string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	LLMTimeout        time.Duration
	PollMaxAttempts   int
	PollInterval      time.Duration
	StoreDriver       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	DatabaseURL       string
	ConversationTTL   time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
}

var defaults = map[string]string{
	"HTTP_ADDR":           ":8080",
	"LOG_LEVEL":           "info",
	"LLM_PROVIDER":        ProviderAssistant,
	"LLM_MODEL":           "qwen/qwen3-4b:free",
	"OPENROUTER_BASE_URL": "https://openrouter.ai/api/v1",
	"LLM_TIMEOUT":         "30s",
	"POLL_MAX_ATTEMPTS":   "60",
	"POLL_INTERVAL":       "1s",
	"STORE_DRIVER":        StoreMemory,
	"REDIS_ADDR":          "localhost:6379",
	"REDIS_DB":            "0",
	"CONVERSATION_TTL":    "24h",
	"RATE_LIMIT_RPS":      "2",
	"RATE_LIMIT_BURST":    "5",
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	c := Config{
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		LLMProvider:       strings.ToLower(v.GetString("LLM_PROVIDER")),
		AssistantBaseURL:  v.GetString("ASSISTANT_BASE_URL"),
		AssistantAPIKey:   v.GetString("ASSISTANT_API_KEY"),
		LLMModel:          v.GetString("LLM_MODEL"),
		LLMFallbackModels: parseList(v.GetString("LLM_FALLBACK_MODELS")),
		OpenRouterAPIKey:  v.GetString("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: v.GetString("OPENROUTER_BASE_URL"),
		StoreDriver:       strings.ToLower(v.GetString("STORE_DRIVER")),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
	}

	var err error
	if c.LogLevel, err = parseLogLevel(v.GetString("LOG_LEVEL")); err != nil {
		return Config{}, err
	}
	if c.LLMTimeout, err = duration(v, "LLM_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if c.PollInterval, err = duration(v, "POLL_INTERVAL"); err != nil {
		return Config{}, err
	}
	if c.ConversationTTL, err = duration(v, "CONVERSATION_TTL"); err != nil {
		return Config{}, err
	}
	if c.PollMaxAttempts, err = integer(v, "POLL_MAX_ATTEMPTS"); err != nil {
		return Config{}, err
	}
	if c.RedisDB, err = integer(v, "REDIS_DB"); err != nil {
		return Config{}, err
	}
	if c.RateLimitBurst, err = integer(v, "RATE_LIMIT_BURST"); err != nil {
		return Config{}, err
	}
	if raw := v.GetString("RATE_LIMIT_RPS"); raw != "" {
		if c.RateLimitRPS, err = strconv.ParseFloat(raw, 64); err != nil {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", raw, err)
		}
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.LLMProvider {
	case ProviderAssistant:
		if c.AssistantBaseURL == "" {
			return fmt.Errorf("ASSISTANT_BASE_URL is required when LLM_PROVIDER=%s", ProviderAssistant)
		}
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required when LLM_PROVIDER=%s", ProviderOpenRouter)
		}
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.StoreDriver {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.StoreDriver)
	}

	if c.PollMaxAttempts < 1 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive, got %d", c.PollMaxAttempts)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	return nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func integer(v *viper.Viper, key string) (int, error) {
	raw := v.GetString(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
