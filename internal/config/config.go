package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	LLM     LLMConfig
	TTS     TTSConfig
	Fetcher FetcherConfig
	Jobs    JobsConfig
	Webhook WebhookConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// RedisConfig is optional. An empty Addr disables Redis and the fetch cache
// falls back to process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LLMConfig struct {
	OpenAIKey        string
	OpenAIBaseURL    string
	AnthropicKey     string
	DefaultProvider  string
	FallbackProvider string
	Model            string
	FallbackModel    string
	Temperature      float64
	MaxTokens        int
	CallTimeout      time.Duration
}

type TTSConfig struct {
	OpenAIKey     string
	OpenAIBaseURL string
	Model         string
	VoiceHostA    string
	VoiceHostB    string
	CallTimeout   time.Duration
	MaxInputChars int
}

type FetcherConfig struct {
	// Enrichment is "direct" (reference URLs go to the model as-is) or
	// "fetch" (their text is extracted here and embedded in the prompt).
	Enrichment string
	Timeout    time.Duration
	MaxWords   int
	CacheTTL   time.Duration
}

type JobsConfig struct {
	Retention       time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig controls the JSON logger. With File set, logs are also written
// to a size-rotated file.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// WebhookConfig is optional. An empty URL disables completion notifications.
type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

const (
	EnrichmentDirect = "direct"
	EnrichmentFetch  = "fetch"
)

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.8)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_TOKENS: %w", err)
	}

	llmTimeout, err := getEnvDuration("LLM_CALL_TIMEOUT", 3*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_CALL_TIMEOUT: %w", err)
	}

	ttsTimeout, err := getEnvDuration("TTS_CALL_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_CALL_TIMEOUT: %w", err)
	}

	ttsMaxChars, err := getEnvInt("TTS_MAX_INPUT_CHARS", 4096)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_MAX_INPUT_CHARS: %w", err)
	}

	fetchTimeout, err := getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}

	fetchMaxWords, err := getEnvInt("FETCH_MAX_WORDS", 500)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_MAX_WORDS: %w", err)
	}

	fetchCacheTTL, err := getEnvDuration("FETCH_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_CACHE_TTL: %w", err)
	}

	retention, err := getEnvDuration("JOB_RETENTION", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_RETENTION: %w", err)
	}

	shutdownTimeout, err := getEnvDuration("JOB_SHUTDOWN_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_SHUTDOWN_TIMEOUT: %w", err)
	}

	webhookTimeout, err := getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	logMaxSize, err := getEnvInt("LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_SIZE_MB: %w", err)
	}

	logMaxBackups, err := getEnvInt("LOG_MAX_BACKUPS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_BACKUPS: %w", err)
	}

	openAIKey := getEnv("OPENAI_API_KEY", "")
	openAIBaseURL := getEnv("OPENAI_BASE_URL", "")

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		LLM: LLMConfig{
			OpenAIKey:        openAIKey,
			OpenAIBaseURL:    openAIBaseURL,
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			Model:            getEnv("LLM_MODEL", "gpt-4o"),
			FallbackModel:    getEnv("LLM_FALLBACK_MODEL", ""),
			Temperature:      temperature,
			MaxTokens:        maxTokens,
			CallTimeout:      llmTimeout,
		},
		TTS: TTSConfig{
			OpenAIKey:     openAIKey,
			OpenAIBaseURL: getEnv("TTS_OPENAI_BASE_URL", openAIBaseURL),
			Model:         getEnv("TTS_MODEL", "gpt-4o-mini-tts"),
			VoiceHostA:    getEnv("TTS_VOICE_HOST_A", "marin"),
			VoiceHostB:    getEnv("TTS_VOICE_HOST_B", "cedar"),
			CallTimeout:   ttsTimeout,
			MaxInputChars: ttsMaxChars,
		},
		Fetcher: FetcherConfig{
			Enrichment: getEnv("URL_ENRICHMENT", EnrichmentDirect),
			Timeout:    fetchTimeout,
			MaxWords:   fetchMaxWords,
			CacheTTL:   fetchCacheTTL,
		},
		Jobs: JobsConfig{
			Retention:       retention,
			ShutdownTimeout: shutdownTimeout,
		},
		Webhook: WebhookConfig{
			URL:     getEnv("WEBHOOK_URL", ""),
			Secret:  getEnv("WEBHOOK_SECRET", ""),
			Timeout: webhookTimeout,
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  logMaxSize,
			MaxBackups: logMaxBackups,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.TTS.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	switch c.LLM.DefaultProvider {
	case "anthropic":
		if c.LLM.AnthropicKey == "" {
			missing = append(missing, "ANTHROPIC_API_KEY")
		}
	case "openai":
	default:
		return fmt.Errorf("unsupported LLM_DEFAULT_PROVIDER %q", c.LLM.DefaultProvider)
	}
	switch c.LLM.FallbackProvider {
	case "", c.LLM.DefaultProvider:
	case "anthropic":
		if c.LLM.AnthropicKey == "" {
			missing = append(missing, "ANTHROPIC_API_KEY")
		}
	case "openai":
	default:
		return fmt.Errorf("unsupported LLM_FALLBACK_PROVIDER %q", c.LLM.FallbackProvider)
	}
	if c.LLM.FallbackProvider != "" && c.LLM.FallbackProvider != c.LLM.DefaultProvider && c.LLM.FallbackModel == "" {
		missing = append(missing, "LLM_FALLBACK_MODEL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.Fetcher.Enrichment != EnrichmentDirect && c.Fetcher.Enrichment != EnrichmentFetch {
		return fmt.Errorf("URL_ENRICHMENT must be %q or %q", EnrichmentDirect, EnrichmentFetch)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
