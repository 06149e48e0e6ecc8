package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MediaFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64

	// Gemini backend
	GeminiAPIKey string
	ModelID      string
	Temperature  float64

	// Remote asset lifecycle
	PollInterval time.Duration
	PollTimeout  time.Duration

	// Result cache (optional; in-memory when RedisAddr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ResultTTL     time.Duration

	// Azure blob media source (optional)
	AzureAccountName string
	AzureAccountKey  string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MediaFetchTimeout:  parseDurationOrDefault("MEDIA_FETCH_TIMEOUT", 30*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 2*time.Minute),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 100*1024*1024), // 100MB, video uploads
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		ModelID:            getEnvOrDefault("GEMINI_MODEL_ID", "gemini-robotics-er-1.5-preview"),
		Temperature:        parseFloatOrDefault("GEMINI_TEMPERATURE", 0.5),
		PollInterval:       parseDurationOrDefault("ASSET_POLL_INTERVAL", 5*time.Second),
		PollTimeout:        parseDurationOrDefault("ASSET_POLL_TIMEOUT", 5*time.Minute),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            int(parseIntOrDefault("REDIS_DB", 0)),
		ResultTTL:          parseDurationOrDefault("RESULT_TTL", 24*time.Hour),
		AzureAccountName:   os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.MediaFetchTimeout <= 0 || cfg.AnalysisTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			cfg.RequestTimeout, cfg.MediaFetchTimeout, cfg.AnalysisTimeout)
	}
	if cfg.PollInterval <= 0 || cfg.PollTimeout <= cfg.PollInterval {
		return nil, fmt.Errorf("ASSET_POLL_TIMEOUT must exceed ASSET_POLL_INTERVAL (got interval=%s, timeout=%s)",
			cfg.PollInterval, cfg.PollTimeout)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
