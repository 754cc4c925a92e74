package provider

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/coal/siterisk/internal/model"
)

// SnapshotProvider serves findings from a single in-memory Snapshot.
type SnapshotProvider struct {
	plugins map[string]*model.PluginBundle
	order   []string
	roles   []model.RoleBundle
}

// LoadSnapshot reads a YAML or JSON snapshot file.
func LoadSnapshot(path string) (*SnapshotProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := decode(path, data, snapshotSchema, &snap); err != nil {
		return nil, err
	}
	return NewSnapshotProvider(snap)
}

// NewSnapshotProvider indexes a snapshot by component. Components must be
// unique and non-empty.
func NewSnapshotProvider(snap Snapshot) (*SnapshotProvider, error) {
	p := &SnapshotProvider{
		plugins: make(map[string]*model.PluginBundle, len(snap.Plugins)),
		roles:   snap.Roles,
	}
	for i := range snap.Plugins {
		b := &snap.Plugins[i]
		if b.Component == "" {
			return nil, fmt.Errorf("plugin %d: component is required", i)
		}
		if _, dup := p.plugins[b.Component]; dup {
			return nil, fmt.Errorf("plugin %q: duplicate component", b.Component)
		}
		p.plugins[b.Component] = b
		p.order = append(p.order, b.Component)
	}
	sort.Strings(p.order)
	return p, nil
}

// Components implements FindingsProvider.
func (p *SnapshotProvider) Components(ctx context.Context) ([]string, error) {
	return append([]string(nil), p.order...), nil
}

// Plugin implements FindingsProvider.
func (p *SnapshotProvider) Plugin(ctx context.Context, component string) (*model.PluginBundle, error) {
	b, ok := p.plugins[component]
	if !ok {
		return nil, fmt.Errorf("plugin %q: not found", component)
	}
	clone := *b
	return &clone, nil
}

// Roles implements FindingsProvider.
func (p *SnapshotProvider) Roles(ctx context.Context) ([]model.RoleBundle, error) {
	return append([]model.RoleBundle(nil), p.roles...), nil
}
