package entities

import "strings"

// AssistantCommand is one entry of the text assistant catalogue
type AssistantCommand struct {
	ID          string  `json:"id" yaml:"-"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	System      string  `json:"-" yaml:"system"`
	Temperature float64 `json:"-" yaml:"temperature"`
}

// CustomCommandID selects a caller-supplied system prompt
const CustomCommandID = "custom"

// AssistantRequest asks the assistant to run a command over text
type AssistantRequest struct {
	Command      string `json:"command"`
	Text         string `json:"text"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

// Validate checks the request is runnable
func (r AssistantRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return NewValidationError("text", "must not be empty")
	}
	if r.Command == "" && r.CustomPrompt == "" {
		return NewValidationError("command", "a command or a custom prompt is required")
	}
	if r.Command == CustomCommandID && strings.TrimSpace(r.CustomPrompt) == "" {
		return NewValidationError("customPrompt", "required for the custom command")
	}
	return nil
}

// AssistantUsage reports token accounting returned by the API
type AssistantUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AssistantResult is the generated text
type AssistantResult struct {
	Content  string          `json:"content"`
	Model    string          `json:"model,omitempty"`
	Usage    *AssistantUsage `json:"usage,omitempty"`
	Attempts int             `json:"attempts"`
}
