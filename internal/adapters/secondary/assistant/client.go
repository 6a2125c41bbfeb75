package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

var (
	// ErrNotConfigured is returned when no API key is set
	ErrNotConfigured = errors.New("assistant API key is not configured")
	// ErrContentFiltered is returned when every attempt hit the provider's content policy
	ErrContentFiltered = errors.New("content blocked by the provider filters, try rephrasing the text")
	// ErrEmptyResponse is returned when the API answers without a message
	ErrEmptyResponse = errors.New("assistant response has no content")
)

// softenings replace directive words that tend to trip content filters
var softenings = map[string]string{
	"strict":      "attentif",
	"strictement": "attentivement",
	"force":       "encourage",
	"must":        "devrait",
	"dois":        "peux",
	"obligatoire": "recommandé",
}

var softenPattern = regexp.MustCompile(`(?i)\b(strictement|strict|force|must|dois|obligatoire)\b`)

// Client calls an OpenAI-compatible chat-completions endpoint
type Client struct {
	http    ports.HTTPClient
	config  entities.AssistantConfig
	catalog Catalog
	logger  zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewClient creates an assistant client
func NewClient(httpClient ports.HTTPClient, config entities.AssistantConfig, catalog Catalog, logger zerolog.Logger) *Client {
	return &Client{
		http:    httpClient,
		config:  config,
		catalog: catalog,
		logger:  logger.With().Str("component", "assistant").Logger(),
		sleep:   sleepContext,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *entities.AssistantUsage `json:"usage"`
}

// IsConfigured reports whether an API key is available
func (c *Client) IsConfigured() bool {
	return c.config.IsConfigured()
}

// Commands lists the catalogue plus the custom prompt entry
func (c *Client) Commands() []entities.AssistantCommand {
	return append(c.catalog.List(), entities.AssistantCommand{
		ID:          entities.CustomCommandID,
		Name:        "Commande personnalisée",
		Description: "Applique votre propre consigne au texte",
	})
}

// Execute runs a command over req.Text. Failed attempts are retried with a
// linear backoff; retries soften the system prompt and raise the temperature.
func (c *Client) Execute(ctx context.Context, req entities.AssistantRequest) (*entities.AssistantResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	systemPrompt, temperature, name, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	maxRetries := c.config.GetMaxRetries()
	log := c.logger.With().Str("command", name).Int("text_len", len(req.Text)).Logger()

	var lastErr error
	filtered := false
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			systemPrompt = Soften(systemPrompt)
			temperature = math.Min(temperature+0.1, 1.0)
		}
		log.Debug().Int("attempt", attempt).Int("max_attempts", maxRetries).Msg("calling assistant")

		result, err := c.complete(ctx, systemPrompt, req.Text, temperature)
		if err == nil {
			result.Attempts = attempt
			log.Info().Int("attempt", attempt).Int("content_len", len(result.Content)).Msg("assistant answered")
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		filtered = errors.Is(err, errContentPolicy)
		log.Warn().Err(err).Int("attempt", attempt).Msg("assistant attempt failed")

		if attempt < maxRetries {
			if err := c.sleep(ctx, c.config.GetRetryDelay()*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}

	if filtered {
		return nil, ErrContentFiltered
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

var errContentPolicy = errors.New("content policy violation")

func (c *Client) resolve(req entities.AssistantRequest) (system string, temperature float64, name string, err error) {
	temperature = c.config.GetTemperature()
	if cmd, ok := c.catalog[req.Command]; ok {
		system, name = cmd.System, cmd.Name
		if cmd.Temperature > 0 {
			temperature = cmd.Temperature
		}
	}
	if req.CustomPrompt != "" {
		system = req.CustomPrompt
		if name == "" {
			name = "custom"
		}
	}
	if system == "" {
		return "", 0, "", entities.NewValidationError("command", "unknown command %q", req.Command)
	}
	return system, temperature, name, nil
}

func (c *Client) complete(ctx context.Context, system, text string, temperature float64) (*entities.AssistantResult, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.config.GetModel(),
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: text},
		},
		Temperature: temperature,
		MaxTokens:   c.config.GetMaxTokens(),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GetBaseURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling assistant API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading assistant response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := string(raw)
		if strings.Contains(text, "content management policy") || strings.Contains(text, "ContentPolicyViolationError") {
			return nil, errContentPolicy
		}
		if len(text) > 500 {
			text = text[:500]
		}
		return nil, fmt.Errorf("assistant API returned %d: %s", resp.StatusCode, text)
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding assistant response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	return &entities.AssistantResult{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
		Usage:   parsed.Usage,
	}, nil
}

// Soften rewrites directive words in a system prompt to milder ones
func Soften(prompt string) string {
	return softenPattern.ReplaceAllStringFunc(prompt, func(match string) string {
		if repl, ok := softenings[strings.ToLower(match)]; ok {
			return repl
		}
		return match
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ ports.Assistant = (*Client)(nil)
