package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
)

// GetDefaultConfig returns the default configuration with environment overrides
func GetDefaultConfig() *entities.Config {
	config := &entities.Config{
		Server: entities.ServerConfig{
			Host:            getEnvOrDefault("PROMPTEUR_HOST", "localhost"),
			Port:            getEnvIntOrDefault("PROMPTEUR_PORT", getEnvIntOrDefault("PORT", 3000)),
			ReadTimeout:     getEnvIntOrDefault("PROMPTEUR_READ_TIMEOUT", 30),
			WriteTimeout:    getEnvIntOrDefault("PROMPTEUR_WRITE_TIMEOUT", 30),
			ShutdownTimeout: getEnvIntOrDefault("PROMPTEUR_SHUTDOWN_TIMEOUT", 5),
			Environment:     getEnvOrDefault("PROMPTEUR_ENV", "development"),
			CORSOrigins: getEnvSliceOrDefault("PROMPTEUR_CORS_ORIGINS", []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			}),
			WebRoot:    getEnvOrDefault("PROMPTEUR_WEB_ROOT", "public"),
			SendBuffer: 256,
		},
		Prompter: entities.PrompterConfig{
			InitialSpeed: 2,
		},
		Feed: entities.FeedConfig{
			Enabled:           false,
			BaseURL:           "https://www.googleapis.com/youtube/v3",
			APIKey:            getEnvOrDefault("YOUTUBE_API_KEY", ""),
			DefaultIntervalMs: 5000,
			MinIntervalMs:     1000,
			MaxIntervalMs:     30000,
			BufferSize:        50,
			RequestTimeout:    10,
		},
		Assistant: entities.AssistantConfig{
			BaseURL:      "https://api.mammouth.ai/v1/chat/completions",
			APIKey:       getEnvOrDefault("MAMMOUTH_API_KEY", ""),
			Model:        getEnvOrDefault("MAMMOUTH_MODEL", "gpt-4.1"),
			MaxTokens:    getEnvIntOrDefault("MAMMOUTH_MAX_TOKENS", 2000),
			Temperature:  0.7,
			MaxRetries:   3,
			RetryDelayMs: 1000,
			Timeout:      60,
		},
		Browser: entities.BrowserConfig{
			AutoOpen: false,
			Browser:  "default",
			View:     "admin",
		},
		Logging: entities.LoggingConfig{
			Level:      getEnvOrDefault("PROMPTEUR_LOG_LEVEL", "info"),
			Verbose:    getEnvBoolOrDefault("PROMPTEUR_LOG_VERBOSE", false),
			JSONFormat: getEnvBoolOrDefault("PROMPTEUR_LOG_JSON", false),
			File:       getEnvOrDefault("PROMPTEUR_LOG_FILE", ""),
		},
	}

	return config
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns environment variable as int or default
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault returns environment variable as bool or default
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvSliceOrDefault returns a comma separated environment variable as slice or default
func getEnvSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
