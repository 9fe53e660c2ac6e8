// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
)

// Config holds the application configuration.
type Config struct {
	OneBotAPIURL string
	OneBotWSURL  string
	OneBotToken  string
	DatabasePath string
	IconCacheDir string
	NMCBaseURL   string
	LogLevel     string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiURL := os.Getenv("ONEBOT_API_URL")
	if apiURL == "" {
		return nil, fmt.Errorf("ONEBOT_API_URL is required")
	}

	wsURL := os.Getenv("ONEBOT_WS_URL")
	if wsURL == "" {
		return nil, fmt.Errorf("ONEBOT_WS_URL is required")
	}

	return &Config{
		OneBotAPIURL: apiURL,
		OneBotWSURL:  wsURL,
		OneBotToken:  os.Getenv("ONEBOT_ACCESS_TOKEN"),
		DatabasePath: envOrDefault("DATABASE_PATH", "./data/weatherbot.db"),
		IconCacheDir: envOrDefault("ICON_CACHE_DIR", "./data/icons"),
		NMCBaseURL:   envOrDefault("NMC_BASE_URL", "https://www.nmc.cn"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
	}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
