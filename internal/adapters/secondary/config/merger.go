package config

import (
	"os"
	"strconv"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// ConfigMerger implements the ConfigMerger interface
type ConfigMerger struct{}

// NewConfigMerger creates a new configuration merger
func NewConfigMerger() *ConfigMerger {
	return &ConfigMerger{}
}

// Merge merges multiple configurations with later configs taking precedence
func (m *ConfigMerger) Merge(configs ...*entities.Config) *entities.Config {
	if len(configs) == 0 {
		return GetDefaultConfig()
	}

	result := deepCopy(configs[0])
	for i := 1; i < len(configs); i++ {
		if configs[i] != nil {
			m.mergeInto(result, configs[i])
		}
	}

	return result
}

// ApplyFlags applies CLI flag overrides to a configuration
func (m *ConfigMerger) ApplyFlags(config *entities.Config, flags map[string]interface{}) *entities.Config {
	result := deepCopy(config)

	if port, ok := flags["port"].(int); ok && port > 0 {
		result.Server.Port = port
	}

	if host, ok := flags["host"].(string); ok && host != "" {
		result.Server.Host = host
	}

	if script, ok := flags["script"].(string); ok && script != "" {
		result.Prompter.ScriptFile = script
	}

	if webRoot, ok := flags["web-root"].(string); ok && webRoot != "" {
		result.Server.WebRoot = webRoot
	}

	if noBrowser, ok := flags["no-browser"].(bool); ok && noBrowser {
		result.Browser.AutoOpen = false
	}

	if open, ok := flags["open"].(bool); ok && open {
		result.Browser.AutoOpen = true
	}

	if view, ok := flags["view"].(string); ok && view != "" {
		result.Browser.View = view
	}

	if verbose, ok := flags["verbose"].(bool); ok && verbose {
		result.Logging.Verbose = true
	}

	if chatID, ok := flags["live-chat-id"].(string); ok && chatID != "" {
		result.Feed.LiveChatID = chatID
		result.Feed.Enabled = true
	}

	return result
}

// ApplyEnvVars applies environment variable overrides to a configuration
func (m *ConfigMerger) ApplyEnvVars(config *entities.Config) *entities.Config {
	result := deepCopy(config)

	if host := os.Getenv("PROMPTEUR_HOST"); host != "" {
		result.Server.Host = host
	}

	if portStr := os.Getenv("PROMPTEUR_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			result.Server.Port = port
		}
	}

	if env := os.Getenv("PROMPTEUR_ENV"); env != "" {
		result.Server.Environment = env
	}

	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		result.Feed.APIKey = key
	}

	if chatID := os.Getenv("YOUTUBE_LIVE_CHAT_ID"); chatID != "" {
		result.Feed.LiveChatID = chatID
	}

	if key := os.Getenv("MAMMOUTH_API_KEY"); key != "" {
		result.Assistant.APIKey = key
	}

	if model := os.Getenv("MAMMOUTH_MODEL"); model != "" {
		result.Assistant.Model = model
	}

	if level := os.Getenv("PROMPTEUR_LOG_LEVEL"); level != "" {
		result.Logging.Level = level
	}

	if jsonStr := os.Getenv("PROMPTEUR_LOG_JSON"); jsonStr != "" {
		if jsonFormat, err := strconv.ParseBool(jsonStr); err == nil {
			result.Logging.JSONFormat = jsonFormat
		}
	}

	return result
}

// mergeInto merges source configuration into target configuration. Zero
// values count as unset. Booleans cannot be told apart from unset, so a
// file can only switch them on.
func (m *ConfigMerger) mergeInto(target, source *entities.Config) {
	// Server config
	if source.Server.Port != 0 {
		target.Server.Port = source.Server.Port
	}
	if source.Server.Host != "" {
		target.Server.Host = source.Server.Host
	}
	if source.Server.ReadTimeout != 0 {
		target.Server.ReadTimeout = source.Server.ReadTimeout
	}
	if source.Server.WriteTimeout != 0 {
		target.Server.WriteTimeout = source.Server.WriteTimeout
	}
	if source.Server.ShutdownTimeout != 0 {
		target.Server.ShutdownTimeout = source.Server.ShutdownTimeout
	}
	if source.Server.Environment != "" {
		target.Server.Environment = source.Server.Environment
	}
	if len(source.Server.CORSOrigins) > 0 {
		target.Server.CORSOrigins = append([]string(nil), source.Server.CORSOrigins...)
	}
	if source.Server.WebRoot != "" {
		target.Server.WebRoot = source.Server.WebRoot
	}
	if source.Server.SendBuffer != 0 {
		target.Server.SendBuffer = source.Server.SendBuffer
	}

	// Prompter config
	if source.Prompter.InitialText != "" {
		target.Prompter.InitialText = source.Prompter.InitialText
	}
	if source.Prompter.InitialSpeed != 0 {
		target.Prompter.InitialSpeed = source.Prompter.InitialSpeed
	}
	if source.Prompter.ScriptFile != "" {
		target.Prompter.ScriptFile = source.Prompter.ScriptFile
	}
	if source.Prompter.ScriptPollInterval != 0 {
		target.Prompter.ScriptPollInterval = source.Prompter.ScriptPollInterval
	}

	// Feed config
	target.Feed.Enabled = target.Feed.Enabled || source.Feed.Enabled
	if source.Feed.BaseURL != "" {
		target.Feed.BaseURL = source.Feed.BaseURL
	}
	if source.Feed.APIKey != "" {
		target.Feed.APIKey = source.Feed.APIKey
	}
	if source.Feed.LiveChatID != "" {
		target.Feed.LiveChatID = source.Feed.LiveChatID
	}
	if source.Feed.DefaultIntervalMs != 0 {
		target.Feed.DefaultIntervalMs = source.Feed.DefaultIntervalMs
	}
	if source.Feed.MinIntervalMs != 0 {
		target.Feed.MinIntervalMs = source.Feed.MinIntervalMs
	}
	if source.Feed.MaxIntervalMs != 0 {
		target.Feed.MaxIntervalMs = source.Feed.MaxIntervalMs
	}
	if source.Feed.BufferSize != 0 {
		target.Feed.BufferSize = source.Feed.BufferSize
	}
	if source.Feed.RequestTimeout != 0 {
		target.Feed.RequestTimeout = source.Feed.RequestTimeout
	}

	// Assistant config
	if source.Assistant.BaseURL != "" {
		target.Assistant.BaseURL = source.Assistant.BaseURL
	}
	if source.Assistant.APIKey != "" {
		target.Assistant.APIKey = source.Assistant.APIKey
	}
	if source.Assistant.Model != "" {
		target.Assistant.Model = source.Assistant.Model
	}
	if source.Assistant.MaxTokens != 0 {
		target.Assistant.MaxTokens = source.Assistant.MaxTokens
	}
	if source.Assistant.Temperature != 0 {
		target.Assistant.Temperature = source.Assistant.Temperature
	}
	if source.Assistant.MaxRetries != 0 {
		target.Assistant.MaxRetries = source.Assistant.MaxRetries
	}
	if source.Assistant.RetryDelayMs != 0 {
		target.Assistant.RetryDelayMs = source.Assistant.RetryDelayMs
	}
	if source.Assistant.Timeout != 0 {
		target.Assistant.Timeout = source.Assistant.Timeout
	}
	if source.Assistant.CommandsFile != "" {
		target.Assistant.CommandsFile = source.Assistant.CommandsFile
	}

	// Browser config
	target.Browser.AutoOpen = target.Browser.AutoOpen || source.Browser.AutoOpen
	if source.Browser.Browser != "" {
		target.Browser.Browser = source.Browser.Browser
	}
	if source.Browser.View != "" {
		target.Browser.View = source.Browser.View
	}

	// Logging config
	if source.Logging.Level != "" {
		target.Logging.Level = source.Logging.Level
	}
	target.Logging.Verbose = target.Logging.Verbose || source.Logging.Verbose
	target.Logging.JSONFormat = target.Logging.JSONFormat || source.Logging.JSONFormat
	if source.Logging.File != "" {
		target.Logging.File = source.Logging.File
	}
}

// deepCopy creates a deep copy of a configuration
func deepCopy(src *entities.Config) *entities.Config {
	if src == nil {
		return nil
	}

	dst := *src
	if src.Server.CORSOrigins != nil {
		dst.Server.CORSOrigins = append([]string(nil), src.Server.CORSOrigins...)
	}
	return &dst
}

var _ ports.ConfigMerger = (*ConfigMerger)(nil)
