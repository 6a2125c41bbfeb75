package ports

import (
	"context"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
)

// ConfigLoader reads configuration files. A missing optional file yields
// a nil config and no error.
type ConfigLoader interface {
	// LoadGlobal reads the per-user file
	LoadGlobal(ctx context.Context) (*entities.Config, error)
	// LoadLocal reads prompteur.toml or prompteur.yaml from dir
	LoadLocal(ctx context.Context, dir string) (*entities.Config, error)
	// LoadFile reads an explicit file, TOML or YAML by extension
	LoadFile(ctx context.Context, path string) (*entities.Config, error)
}

// ConfigMerger layers configuration sources
type ConfigMerger interface {
	// Merge folds configs left to right over the defaults
	Merge(configs ...*entities.Config) *entities.Config
	ApplyFlags(config *entities.Config, flags map[string]interface{}) *entities.Config
	ApplyEnvVars(config *entities.Config) *entities.Config
}

// LoadOptions selects which configuration sources LoadConfig reads
type LoadOptions struct {
	WorkingDir string
	// ExplicitPath replaces the global and local files when set
	ExplicitPath string
	// Flags holds only the flags the user changed
	Flags map[string]interface{}
}
