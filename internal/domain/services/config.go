package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// ConfigService resolves the server configuration from its layered sources
type ConfigService struct {
	loader ports.ConfigLoader
	merger ports.ConfigMerger
}

// NewConfigService creates a config service over loader and merger
func NewConfigService(loader ports.ConfigLoader, merger ports.ConfigMerger) *ConfigService {
	return &ConfigService{loader: loader, merger: merger}
}

// LoadConfig layers, lowest precedence first: defaults, files (the explicit
// one, or global then local), environment, changed CLI flags. The result is
// validated before it is returned.
func (s *ConfigService) LoadConfig(ctx context.Context, opts ports.LoadOptions) (*entities.Config, error) {
	files, err := s.fileLayers(ctx, opts)
	if err != nil {
		return nil, err
	}

	layers := append([]*entities.Config{s.GetDefaultConfig()}, files...)
	cfg := s.merger.ApplyFlags(s.merger.ApplyEnvVars(s.merger.Merge(layers...)), opts.Flags)

	if err := s.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("final config validation: %w", err)
	}
	return cfg, nil
}

func (s *ConfigService) fileLayers(ctx context.Context, opts ports.LoadOptions) ([]*entities.Config, error) {
	if opts.ExplicitPath != "" {
		cfg, err := s.loader.LoadFile(ctx, opts.ExplicitPath)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		return []*entities.Config{cfg}, nil
	}

	global, err := s.loader.LoadGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading global config: %w", err)
	}
	local, err := s.loader.LoadLocal(ctx, opts.WorkingDir)
	if err != nil {
		return nil, fmt.Errorf("loading local config: %w", err)
	}

	var layers []*entities.Config
	for _, cfg := range []*entities.Config{global, local} {
		if cfg != nil {
			layers = append(layers, cfg)
		}
	}
	return layers, nil
}

// GetDefaultConfig returns the defaults with environment overrides baked in
func (s *ConfigService) GetDefaultConfig() *entities.Config {
	return s.merger.Merge()
}

// ValidateConfig rejects nil and invalid configurations
func (s *ConfigService) ValidateConfig(config *entities.Config) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}
	return config.Validate()
}
