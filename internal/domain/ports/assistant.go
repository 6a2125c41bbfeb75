package ports

import (
	"context"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
)

// Assistant rewrites prompter text through an external text-generation API
type Assistant interface {
	IsConfigured() bool
	Commands() []entities.AssistantCommand
	Execute(ctx context.Context, req entities.AssistantRequest) (*entities.AssistantResult, error)
}
