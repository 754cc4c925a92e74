// Package provider loads pre-gathered findings bundles for the scan runner.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coal/siterisk/internal/model"
)

// FindingsProvider supplies the findings of one site. A failure to load one
// plugin must not affect the others.
type FindingsProvider interface {
	// Components lists every plugin the provider knows about.
	Components(ctx context.Context) ([]string, error)
	// Plugin loads the findings bundle of one component.
	Plugin(ctx context.Context, component string) (*model.PluginBundle, error)
	// Roles loads the capability grants of every role.
	Roles(ctx context.Context) ([]model.RoleBundle, error)
}

// Snapshot is a whole site's findings in one document.
type Snapshot struct {
	Plugins []model.PluginBundle `yaml:"plugins" json:"plugins"`
	Roles   []model.RoleBundle   `yaml:"roles" json:"roles"`
}

type rolesFile struct {
	Roles []model.RoleBundle `yaml:"roles" json:"roles"`
}

// Open returns a DirProvider for a directory and a SnapshotProvider for a
// file.
func Open(path string) (FindingsProvider, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening findings: %w", err)
	}
	if info.IsDir() {
		return NewDirProvider(path), nil
	}
	return LoadSnapshot(path)
}

// decode reads YAML or JSON by file extension. JSON documents are checked
// against schema before decoding.
func decode(path string, data []byte, schema *jsonSchema, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := schema.validate(data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%s: unsupported findings format", path)
	}
	return nil
}
