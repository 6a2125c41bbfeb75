package assistant

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
)

//go:embed commands.yaml
var defaultCommands []byte

// Catalog is the set of commands the assistant understands, keyed by id
type Catalog map[string]entities.AssistantCommand

// LoadCatalog parses the command catalogue at path, or the built-in one
// when path is empty
func LoadCatalog(path string) (Catalog, error) {
	data := defaultCommands
	if path != "" {
		raw, err := os.ReadFile(path) // #nosec G304 - path comes from validated config
		if err != nil {
			return nil, fmt.Errorf("reading commands file: %w", err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalogue. Commands without a name get one
// derived from their id.
func ParseCatalog(data []byte) (Catalog, error) {
	var raw map[string]entities.AssistantCommand
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing commands: %w", err)
	}

	title := cases.Title(language.French)
	catalog := make(Catalog, len(raw))
	for id, cmd := range raw {
		if strings.TrimSpace(cmd.System) == "" {
			return nil, fmt.Errorf("command %q has no system prompt", id)
		}
		cmd.ID = id
		if cmd.Name == "" {
			cmd.Name = title.String(strings.ReplaceAll(id, "_", " "))
		}
		catalog[id] = cmd
	}
	return catalog, nil
}

// List returns the commands sorted by id
func (c Catalog) List() []entities.AssistantCommand {
	out := make([]entities.AssistantCommand, 0, len(c))
	for _, cmd := range c {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
