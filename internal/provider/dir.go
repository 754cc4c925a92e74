package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/coal/siterisk/internal/model"
)

var bundleExts = []string{".yaml", ".yml", ".json"}

// DirProvider reads one bundle file per plugin from <root>/plugins and the
// role grants from <root>/roles.{yaml,yml,json}.
type DirProvider struct {
	root string
}

// NewDirProvider creates a provider rooted at dir.
func NewDirProvider(dir string) *DirProvider {
	return &DirProvider{root: dir}
}

// Components lists bundle file names without extension, sorted.
func (p *DirProvider) Components(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.root, "plugins"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing plugins: %w", err)
	}
	var out []string
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() || !isBundle(e.Name()) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Plugin reads the bundle file of component. The component in the file, if
// set, must match the file name.
func (p *DirProvider) Plugin(ctx context.Context, component string) (*model.PluginBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := p.find(filepath.Join(p.root, "plugins"), component)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plugin bundle: %w", err)
	}
	var b model.PluginBundle
	if err := decode(path, data, pluginSchema, &b); err != nil {
		return nil, err
	}
	if b.Component == "" {
		b.Component = component
	}
	if b.Component != component {
		return nil, fmt.Errorf("%s: component %q does not match file name", path, b.Component)
	}
	return &b, nil
}

// Roles reads the roles file. A missing file means no roles.
func (p *DirProvider) Roles(ctx context.Context) ([]model.RoleBundle, error) {
	path, err := p.find(p.root, "roles")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roles: %w", err)
	}
	var rf rolesFile
	if err := decode(path, data, rolesSchema, &rf); err != nil {
		return nil, err
	}
	return rf.Roles, nil
}

func (p *DirProvider) find(dir, name string) (string, error) {
	for _, ext := range bundleExts {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s: %w", filepath.Join(dir, name), fs.ErrNotExist)
}

func isBundle(name string) bool {
	return slices.Contains(bundleExts, filepath.Ext(name))
}
