// Package config loads and validates the runtime's layer
// configuration from files and the environment.
//
// Configuration is keyed by layer name. Each layer names an
// implementation, an enabled flag, a startup priority, the layers it
// depends on, and a free-form options map the implementation
// interprets. Files are read through viper, so YAML, TOML and JSON
// all work, and any value can be overridden with a POLYTORUS_
// environment variable.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// LayerConfig is one layer's configuration entry.
type LayerConfig struct {
	// Implementation selects the concrete layer, e.g. "pow" or
	// "rollup". The factory package maps names to constructors.
	Implementation string `mapstructure:"implementation"`
	// Enabled layers are constructed and started; disabled layers
	// are skipped entirely.
	Enabled bool `mapstructure:"enabled"`
	// Priority breaks startup-order ties between independent
	// layers. Lower starts first.
	Priority int `mapstructure:"priority"`
	// Dependencies lists layer names that must start before this
	// one.
	Dependencies []string `mapstructure:"dependencies"`
	// Options carries implementation-specific settings.
	Options map[string]any `mapstructure:"options"`
}

// Option reads a typed value out of the options map.
func (lc LayerConfig) Option(key string) (any, bool) {
	v, ok := lc.Options[key]
	return v, ok
}

// IntOption reads an integer option, tolerating the numeric types
// viper produces for the different file formats.
func (lc LayerConfig) IntOption(key string, fallback int) int {
	v, ok := lc.Options[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case uint64:
		return int(n)
	default:
		return fallback
	}
}

// StringOption reads a string option.
func (lc LayerConfig) StringOption(key, fallback string) string {
	if v, ok := lc.Options[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// BoolOption reads a boolean option.
func (lc LayerConfig) BoolOption(key string, fallback bool) bool {
	if v, ok := lc.Options[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// Manager holds the loaded configuration.
type Manager struct {
	v      *viper.Viper
	layers map[string]LayerConfig
}

// Load reads a configuration file, applies POLYTORUS_ environment
// overrides and validates the result. An empty path loads defaults
// and environment only.
func Load(path string) (*Manager, error) {
	v := viper.New()
	v.SetEnvPrefix("POLYTORUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, lc := range defaultLayers() {
		v.SetDefault("layers."+name+".implementation", lc.Implementation)
		v.SetDefault("layers."+name+".enabled", lc.Enabled)
		v.SetDefault("layers."+name+".priority", lc.Priority)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var layers map[string]LayerConfig
	if err := v.UnmarshalKey("layers", &layers); err != nil {
		return nil, fmt.Errorf("decode layers: %w", err)
	}
	if layers == nil {
		layers = defaultLayers()
	}

	m := &Manager{v: v, layers: layers}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func defaultLayers() map[string]LayerConfig {
	return map[string]LayerConfig{
		"consensus": {
			Implementation: "pow",
			Enabled:        true,
			Priority:       10,
		},
		"execution": {
			Implementation: "batch",
			Enabled:        true,
			Priority:       20,
		},
		"settlement": {
			Implementation: "rollup",
			Enabled:        true,
			Priority:       30,
			Dependencies:   []string{"execution"},
		},
		"data_availability": {
			Implementation: "local",
			Enabled:        true,
			Priority:       40,
		},
	}
}

func (m *Manager) validate() error {
	for name, lc := range m.layers {
		if _, ok := types.ParseLayerType(name); !ok {
			return &modular.ConfigurationError{Layer: name, Reason: "unknown layer name"}
		}
		if lc.Enabled && lc.Implementation == "" {
			return &modular.ConfigurationError{
				Layer:  name,
				Field:  "implementation",
				Reason: "enabled layer needs an implementation",
			}
		}
		for _, dep := range lc.Dependencies {
			if _, ok := m.layers[dep]; !ok {
				return &modular.ConfigurationError{
					Layer:  name,
					Field:  "dependencies",
					Reason: fmt.Sprintf("unknown dependency %q", dep),
				}
			}
		}
	}
	if _, err := m.StartupOrder(); err != nil {
		return err
	}
	return nil
}

// Layer returns one layer's configuration.
func (m *Manager) Layer(name string) (LayerConfig, bool) {
	lc, ok := m.layers[name]
	return lc, ok
}

// Layers returns a copy of the full configuration map.
func (m *Manager) Layers() map[string]LayerConfig {
	out := make(map[string]LayerConfig, len(m.layers))
	for name, lc := range m.layers {
		out[name] = lc
	}
	return out
}

// StartupOrder returns the enabled layer names in dependency order.
// Independent layers are ordered by priority then name, so the order
// is deterministic. A dependency cycle is a ConfigurationError.
func (m *Manager) StartupOrder() ([]string, error) {
	names := make([]string, 0, len(m.layers))
	for name, lc := range m.layers {
		if lc.Enabled {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := m.layers[names[i]], m.layers[names[j]]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return names[i] < names[j]
	})

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(names))
	order := make([]string, 0, len(names))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return &modular.ConfigurationError{
				Layer:  name,
				Field:  "dependencies",
				Reason: "dependency cycle",
			}
		}
		state[name] = visiting
		deps := append([]string(nil), m.layers[name].Dependencies...)
		sort.Strings(deps)
		for _, dep := range deps {
			if !m.layers[dep].Enabled {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
