package image

import (
	"sort"

	"productshoot/internal/domain"
)

// Registry resolves engine names to providers.
type Registry struct {
	generators map[string]Generator
}

func NewRegistry(generators ...Generator) *Registry {
	r := &Registry{generators: make(map[string]Generator, len(generators))}
	for _, g := range generators {
		if g != nil {
			r.generators[g.Name()] = g
		}
	}
	return r
}

// Lookup returns the provider for engine; an empty engine selects the default.
func (r *Registry) Lookup(engine string) (Generator, error) {
	name := NormalizeEngine(engine)
	g, ok := r.generators[name]
	if !ok {
		return nil, domain.Invalidf("unsupported engine: %s", name)
	}
	return g, nil
}

// Modes reports "mock" or "live" per registered engine.
func (r *Registry) Modes() map[string]string {
	modes := make(map[string]string, len(r.generators))
	for name, g := range r.generators {
		mode := "live"
		if g.Mock() {
			mode = "mock"
		}
		modes[name] = mode
	}
	return modes
}

// Engines lists the registered engine names in sorted order.
func (r *Registry) Engines() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
