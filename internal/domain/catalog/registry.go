package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed catalogs.yaml
var defaultRegistry []byte

type registryFile struct {
	Catalogs []*Definition `yaml:"catalogs"`
}

// Registry holds catalog definitions by name, in file order.
type Registry struct {
	order []*Definition
	byKey map[string]*Definition
}

// ParseRegistry reads a YAML registry.
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	r := &Registry{byKey: make(map[string]*Definition, len(f.Catalogs))}
	for i, d := range f.Catalogs {
		if d == nil {
			return nil, fmt.Errorf("%w: empty entry %d", ErrInvalidCatalog, i)
		}
		if err := d.prepare(); err != nil {
			return nil, err
		}
		if _, dup := r.byKey[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate catalog %q", ErrInvalidCatalog, d.Name)
		}
		r.byKey[d.Name] = d
		r.order = append(r.order, d)
	}
	return r, nil
}

// LoadRegistry reads the registry at path, or the embedded default registry
// when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return ParseRegistry(defaultRegistry)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return ParseRegistry(data)
}

// Get returns the catalog called name.
func (r *Registry) Get(name string) (*Definition, error) {
	d, ok := r.byKey[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCatalog, name)
	}
	return d, nil
}

// List returns every catalog in file order.
func (r *Registry) List() []*Definition {
	return r.order
}

// Group is a titled list of catalogs.
type Group struct {
	Name     string
	Catalogs []*Definition
}

// Groups returns catalogs grouped by their group name, groups in first-seen
// order.
func (r *Registry) Groups() []Group {
	var names []string
	by := map[string][]*Definition{}
	for _, d := range r.order {
		if !slices.Contains(names, d.Group) {
			names = append(names, d.Group)
		}
		by[d.Group] = append(by[d.Group], d)
	}
	out := make([]Group, 0, len(names))
	for _, n := range names {
		out = append(out, Group{Name: n, Catalogs: by[n]})
	}
	return out
}
