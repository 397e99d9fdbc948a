package budget

import (
	"fmt"
	"sort"
)

// BuilderFunc creates a Tolerance from generic config, as decoded from JSON
// or TOML.
type BuilderFunc func(cfg map[string]any) (Tolerance, error)

// Registry maps strategy names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// DefaultRegistry knows fixed, oiml-r76, oiml-r111 and cmc.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("fixed", func(cfg map[string]any) (Tolerance, error) {
		v, err := floatArg(cfg, "value", true)
		if err != nil {
			return nil, err
		}
		return Fixed{Value: v}, nil
	})
	r.Register("oiml-r76", func(cfg map[string]any) (Tolerance, error) {
		class, err := stringArg(cfg, "class")
		if err != nil {
			return nil, err
		}
		e, err := floatArg(cfg, "e", true)
		if err != nil {
			return nil, err
		}
		inService, _ := cfg["inService"].(bool)
		return OIMLR76{Class: class, E: e, InService: inService}, nil
	})
	r.Register("oiml-r111", func(cfg map[string]any) (Tolerance, error) {
		class, err := stringArg(cfg, "class")
		if err != nil {
			return nil, err
		}
		return OIMLR111{Class: class}, nil
	})
	r.Register("cmc", func(cfg map[string]any) (Tolerance, error) {
		f, err := floatArg(cfg, "relativeFactor", true)
		if err != nil {
			return nil, err
		}
		return CMC{RelativeFactor: f}, nil
	})
	return r
}

func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a strategy by name.
func (r *Registry) Build(name string, cfg map[string]any) (Tolerance, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown tolerance strategy: %s", name)
	}
	return builder(cfg)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec is the serialisable form of a strategy choice.
type Spec struct {
	Strategy string         `json:"strategy" toml:"strategy"`
	Params   map[string]any `json:"params,omitempty" toml:"params"`
}

func (r *Registry) BuildSpec(s Spec) (Tolerance, error) {
	return r.Build(s.Strategy, s.Params)
}

func floatArg(cfg map[string]any, key string, required bool) (float64, error) {
	v, ok := cfg[key]
	if !ok {
		if required {
			return 0, fmt.Errorf("missing tolerance parameter %q", key)
		}
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("tolerance parameter %q must be a number", key)
	}
}

func stringArg(cfg map[string]any, key string) (string, error) {
	s, ok := cfg[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("missing tolerance parameter %q", key)
	}
	return s, nil
}
