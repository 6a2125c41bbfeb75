package entities

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Prompter  PrompterConfig  `toml:"prompter" yaml:"prompter"`
	Feed      FeedConfig      `toml:"feed" yaml:"feed"`
	Assistant AssistantConfig `toml:"assistant" yaml:"assistant"`
	Browser   BrowserConfig   `toml:"browser" yaml:"browser"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Prompter.Validate(); err != nil {
		return fmt.Errorf("prompter config: %w", err)
	}

	if err := c.Feed.Validate(); err != nil {
		return fmt.Errorf("feed config: %w", err)
	}

	if err := c.Assistant.Validate(); err != nil {
		return fmt.Errorf("assistant config: %w", err)
	}

	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string   `toml:"host" yaml:"host"`
	Port            int      `toml:"port" yaml:"port"`
	ReadTimeout     int      `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    int      `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout int      `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	Environment     string   `toml:"environment" yaml:"environment"`
	CORSOrigins     []string `toml:"cors_origins" yaml:"cors_origins"`
	WebRoot         string   `toml:"web_root" yaml:"web_root"`
	SendBuffer      int      `toml:"send_buffer" yaml:"send_buffer"`
}

// Validate validates server configuration
func (s ServerConfig) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return errors.New("port must be between 0 and 65535")
	}

	if s.Host != "" {
		if ip := net.ParseIP(s.Host); ip == nil {
			if _, err := net.LookupHost(s.Host); err != nil {
				return fmt.Errorf("invalid host: %w", err)
			}
		}
	}

	if s.ReadTimeout < 0 {
		return errors.New("read timeout must be non-negative")
	}

	if s.WriteTimeout < 0 {
		return errors.New("write timeout must be non-negative")
	}

	if s.ShutdownTimeout < 0 {
		return errors.New("shutdown timeout must be non-negative")
	}

	if s.SendBuffer < 0 {
		return errors.New("send buffer must be non-negative")
	}

	for _, origin := range s.CORSOrigins {
		if origin == "" {
			return errors.New("CORS origin cannot be empty")
		}
		if origin == "*" {
			continue
		}
		if len(origin) < 7 || (!strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://")) {
			return fmt.Errorf("invalid CORS origin format: %s (must start with http:// or https://)", origin)
		}
	}

	return nil
}

// GetReadTimeout returns the read timeout as a duration
func (s ServerConfig) GetReadTimeout() time.Duration {
	if s.ReadTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the write timeout as a duration
func (s ServerConfig) GetWriteTimeout() time.Duration {
	if s.WriteTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.WriteTimeout) * time.Second
}

// GetShutdownTimeout returns the shutdown timeout as a duration
func (s ServerConfig) GetShutdownTimeout() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// GetCORSOrigins returns CORS origins with defaults if empty
func (s ServerConfig) GetCORSOrigins() []string {
	if len(s.CORSOrigins) == 0 {
		return []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}
	}
	return s.CORSOrigins
}

// GetSendBuffer returns the per-channel outbound queue length
func (s ServerConfig) GetSendBuffer() int {
	if s.SendBuffer <= 0 {
		return 256
	}
	return s.SendBuffer
}

// GetWebRoot returns the directory the static views are served from
func (s ServerConfig) GetWebRoot() string {
	if s.WebRoot == "" {
		return "public"
	}
	return s.WebRoot
}

// IsDevelopment returns true if the server is running in development mode
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "development" || s.Environment == ""
}

// PrompterConfig seeds the canonical state at startup
type PrompterConfig struct {
	InitialText  string  `toml:"initial_text" yaml:"initial_text"`
	InitialSpeed float64 `toml:"initial_speed" yaml:"initial_speed"`

	// ScriptFile, when set, is loaded at startup and reloaded on change
	ScriptFile         string `toml:"script_file" yaml:"script_file"`
	ScriptPollInterval int    `toml:"script_poll_interval_ms" yaml:"script_poll_interval_ms"`
}

// Validate validates prompter configuration
func (p PrompterConfig) Validate() error {
	if p.InitialSpeed != 0 {
		if err := ValidateSpeed(p.InitialSpeed); err != nil {
			return err
		}
	}
	if p.ScriptPollInterval < 0 {
		return errors.New("script poll interval must be non-negative")
	}
	return nil
}

// GetScriptPollInterval returns how often the script file is checked
func (p PrompterConfig) GetScriptPollInterval() time.Duration {
	if p.ScriptPollInterval <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(p.ScriptPollInterval) * time.Millisecond
}

// InitialState builds the canonical state the server starts with
func (p PrompterConfig) InitialState() CanonicalState {
	text := p.InitialText
	if text == "" {
		text = DefaultText
	}
	speed := p.InitialSpeed
	if speed == 0 {
		speed = 2
	}
	return NewCanonicalState(text, speed)
}

// FeedConfig contains external live-chat relay configuration
type FeedConfig struct {
	Enabled           bool   `toml:"enabled" yaml:"enabled"`
	BaseURL           string `toml:"base_url" yaml:"base_url"`
	APIKey            string `toml:"api_key" yaml:"api_key"`
	LiveChatID        string `toml:"live_chat_id" yaml:"live_chat_id"`
	DefaultIntervalMs int    `toml:"default_interval_ms" yaml:"default_interval_ms"`
	MinIntervalMs     int    `toml:"min_interval_ms" yaml:"min_interval_ms"`
	MaxIntervalMs     int    `toml:"max_interval_ms" yaml:"max_interval_ms"`
	BufferSize        int    `toml:"buffer_size" yaml:"buffer_size"`
	RequestTimeout    int    `toml:"request_timeout" yaml:"request_timeout"`
}

// Validate validates feed configuration
func (f FeedConfig) Validate() error {
	if f.BaseURL != "" && !strings.HasPrefix(f.BaseURL, "http://") && !strings.HasPrefix(f.BaseURL, "https://") {
		return fmt.Errorf("feed base URL must start with http:// or https://: %s", f.BaseURL)
	}

	if f.DefaultIntervalMs < 0 || f.MinIntervalMs < 0 || f.MaxIntervalMs < 0 {
		return errors.New("feed intervals must be non-negative")
	}

	if f.MinIntervalMs > 0 && f.MaxIntervalMs > 0 && f.MinIntervalMs > f.MaxIntervalMs {
		return errors.New("feed min interval cannot exceed max interval")
	}

	if f.BufferSize < 0 {
		return errors.New("feed buffer size must be non-negative")
	}

	return nil
}

// GetBaseURL returns the live-chat API root
func (f FeedConfig) GetBaseURL() string {
	if f.BaseURL == "" {
		return "https://www.googleapis.com/youtube/v3"
	}
	return strings.TrimRight(f.BaseURL, "/")
}

// GetDefaultInterval returns the poll interval used when the source does not suggest one
func (f FeedConfig) GetDefaultInterval() time.Duration {
	if f.DefaultIntervalMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(f.DefaultIntervalMs) * time.Millisecond
}

// GetMinInterval returns the lower clamp for source-suggested intervals
func (f FeedConfig) GetMinInterval() time.Duration {
	if f.MinIntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(f.MinIntervalMs) * time.Millisecond
}

// GetMaxInterval returns the upper clamp for source-suggested intervals
func (f FeedConfig) GetMaxInterval() time.Duration {
	if f.MaxIntervalMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(f.MaxIntervalMs) * time.Millisecond
}

// GetBufferSize returns how many recent messages the relay keeps
func (f FeedConfig) GetBufferSize() int {
	if f.BufferSize <= 0 {
		return 50
	}
	return f.BufferSize
}

// GetRequestTimeout returns the HTTP timeout for one feed fetch
func (f FeedConfig) GetRequestTimeout() time.Duration {
	if f.RequestTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(f.RequestTimeout) * time.Second
}

// AssistantConfig contains the text assistant client configuration
type AssistantConfig struct {
	BaseURL      string  `toml:"base_url" yaml:"base_url"`
	APIKey       string  `toml:"api_key" yaml:"api_key"`
	Model        string  `toml:"model" yaml:"model"`
	MaxTokens    int     `toml:"max_tokens" yaml:"max_tokens"`
	Temperature  float64 `toml:"temperature" yaml:"temperature"`
	MaxRetries   int     `toml:"max_retries" yaml:"max_retries"`
	RetryDelayMs int     `toml:"retry_delay_ms" yaml:"retry_delay_ms"`
	Timeout      int     `toml:"timeout" yaml:"timeout"`
	CommandsFile string  `toml:"commands_file" yaml:"commands_file"`
}

// Validate validates assistant configuration
func (a AssistantConfig) Validate() error {
	if a.BaseURL != "" && !strings.HasPrefix(a.BaseURL, "http://") && !strings.HasPrefix(a.BaseURL, "https://") {
		return fmt.Errorf("assistant base URL must start with http:// or https://: %s", a.BaseURL)
	}

	if a.MaxTokens < 0 {
		return errors.New("max tokens must be non-negative")
	}

	if a.Temperature < 0 || a.Temperature > 2 {
		return errors.New("temperature must be between 0 and 2")
	}

	if a.MaxRetries < 0 {
		return errors.New("max retries must be non-negative")
	}

	if a.RetryDelayMs < 0 {
		return errors.New("retry delay must be non-negative")
	}

	if a.CommandsFile != "" {
		if _, err := os.Stat(a.CommandsFile); err != nil {
			return fmt.Errorf("commands file: %w", err)
		}
	}

	return nil
}

// IsConfigured reports whether the assistant can reach its API
func (a AssistantConfig) IsConfigured() bool {
	return a.APIKey != "" && a.APIKey != "votre_cle_api_ici"
}

// GetBaseURL returns the chat-completions endpoint
func (a AssistantConfig) GetBaseURL() string {
	if a.BaseURL == "" {
		return "https://api.mammouth.ai/v1/chat/completions"
	}
	return a.BaseURL
}

// GetModel returns the model name with default
func (a AssistantConfig) GetModel() string {
	if a.Model == "" {
		return "gpt-4.1"
	}
	return a.Model
}

// GetMaxTokens returns the completion budget with default
func (a AssistantConfig) GetMaxTokens() int {
	if a.MaxTokens <= 0 {
		return 2000
	}
	return a.MaxTokens
}

// GetTemperature returns the sampling temperature with default
func (a AssistantConfig) GetTemperature() float64 {
	if a.Temperature <= 0 {
		return 0.7
	}
	return a.Temperature
}

// GetMaxRetries returns the attempt count with default
func (a AssistantConfig) GetMaxRetries() int {
	if a.MaxRetries <= 0 {
		return 3
	}
	return a.MaxRetries
}

// GetRetryDelay returns the base backoff delay
func (a AssistantConfig) GetRetryDelay() time.Duration {
	if a.RetryDelayMs <= 0 {
		return time.Second
	}
	return time.Duration(a.RetryDelayMs) * time.Millisecond
}

// GetTimeout returns the HTTP timeout for one completion call
func (a AssistantConfig) GetTimeout() time.Duration {
	if a.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.Timeout) * time.Second
}

// BrowserConfig contains browser launch configuration
type BrowserConfig struct {
	AutoOpen bool   `toml:"auto_open" yaml:"auto_open"`
	Browser  string `toml:"browser" yaml:"browser"`
	View     string `toml:"view" yaml:"view"`
}

// Validate validates browser configuration
func (b BrowserConfig) Validate() error {
	switch b.View {
	case "", "admin", "display":
		return nil
	default:
		return fmt.Errorf("invalid view: %s (must be admin or display)", b.View)
	}
}

// GetPath returns the URL path of the view to open
func (b BrowserConfig) GetPath() string {
	if b.View == "display" {
		return "/prompteur.html"
	}
	return "/"
}

// LogLevel represents logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `toml:"level" yaml:"level"`             // debug, info, warn, error
	Verbose    bool   `toml:"verbose" yaml:"verbose"`         // Forces debug level
	JSONFormat bool   `toml:"json_format" yaml:"json_format"` // Output logs in JSON format
	File       string `toml:"file" yaml:"file"`               // Log to file (optional)
}

// Validate validates logging configuration
func (l LoggingConfig) Validate() error {
	switch LogLevel(l.Level) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	case "":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", l.Level)
	}

	if l.File != "" {
		if !filepath.IsAbs(l.File) {
			return errors.New("log file path must be absolute")
		}

		dir := filepath.Dir(l.File)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("log file directory does not exist: %s", dir)
		}
	}

	return nil
}

// GetLevel returns the log level with default
func (l LoggingConfig) GetLevel() LogLevel {
	if l.Verbose {
		return LogLevelDebug
	}
	if l.Level == "" {
		return LogLevelInfo
	}
	return LogLevel(l.Level)
}
