package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// localNames are tried in order when looking for a project config file
var localNames = []string{"prompteur.toml", "prompteur.yaml", "prompteur.yml"}

// FileLoader implements the ConfigLoader interface over TOML and YAML
// files, picking the format from the file extension
type FileLoader struct {
	globalPath string
}

// NewFileLoader creates a loader rooted at the user's config directory
func NewFileLoader() *FileLoader {
	homeDir, _ := os.UserHomeDir()
	return &FileLoader{
		globalPath: filepath.Join(homeDir, ".config", "prompteur", "config.toml"),
	}
}

// LoadGlobal loads the global configuration file, writing defaults on first run
func (l *FileLoader) LoadGlobal(ctx context.Context) (*entities.Config, error) {
	if _, err := os.Stat(l.globalPath); os.IsNotExist(err) {
		if err := l.CreateDefaults(ctx, l.globalPath); err != nil {
			return nil, fmt.Errorf("creating defaults: %w", err)
		}
	}

	return l.loadConfig(l.globalPath)
}

// LoadLocal loads the first project config file found in dir. A missing
// file is not an error.
func (l *FileLoader) LoadLocal(ctx context.Context, dir string) (*entities.Config, error) {
	for _, name := range localNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return l.loadConfig(path)
		}
	}
	return nil, nil
}

// LoadFile loads an explicit configuration file
func (l *FileLoader) LoadFile(ctx context.Context, path string) (*entities.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return l.loadConfig(path)
}

// CreateDefaults writes the default configuration to path in the format its extension names
func (l *FileLoader) CreateDefaults(ctx context.Context, path string) error {
	if err := l.ensureConfigDir(path); err != nil {
		return err
	}

	data, err := encode(path, GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("encoding config to %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}

	return nil
}

// GetGlobalPath returns the path to the global configuration file
func (l *FileLoader) GetGlobalPath() string {
	return l.globalPath
}

func (l *FileLoader) loadConfig(path string) (*entities.Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is from controlled sources (global/local/flag)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var config entities.Config
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing YAML from %s: %w", path, err)
		}
	} else {
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing TOML from %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	return &config, nil
}

func (l *FileLoader) ensureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

func encode(path string, config *entities.Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.Indent = "  "
	if err := encoder.Encode(config); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

var _ ports.ConfigLoader = (*FileLoader)(nil)
