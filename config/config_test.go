package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/config"
)

func TestLoadDefaults(t *testing.T) {
	m, err := config.Load("")
	require.NoError(t, err)

	layers := m.Layers()
	require.Len(t, layers, 4)
	for _, name := range []string{"consensus", "execution", "settlement", "data_availability"} {
		lc, ok := m.Layer(name)
		require.True(t, ok, "missing layer %s", name)
		assert.True(t, lc.Enabled)
		assert.NotEmpty(t, lc.Implementation)
	}

	settle, _ := m.Layer("settlement")
	assert.Equal(t, []string{"execution"}, settle.Dependencies)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polytorus.yaml")
	doc := `layers:
  consensus:
    implementation: pow
    enabled: true
    priority: 10
    options:
      difficulty: 2
      is_validator: false
  execution:
    implementation: batch
    enabled: true
    priority: 20
    options:
      gas_limit: 500000
  settlement:
    implementation: rollup
    enabled: true
    priority: 30
    dependencies: [execution]
  data_availability:
    implementation: local
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	m, err := config.Load(path)
	require.NoError(t, err)

	cons, _ := m.Layer("consensus")
	assert.Equal(t, 2, cons.IntOption("difficulty", 0))
	assert.False(t, cons.BoolOption("is_validator", true))

	exec, _ := m.Layer("execution")
	assert.Equal(t, 500000, exec.IntOption("gas_limit", 0))

	order, err := m.StartupOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"consensus", "execution", "settlement"}, order,
		"disabled data availability layer must not appear")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestBuilderValidation(t *testing.T) {
	t.Run("unknown_layer_name", func(t *testing.T) {
		_, err := config.NewBuilder().
			WithLayer("sidecar", config.LayerConfig{Implementation: "x", Enabled: true}).
			Build()
		cfgErr, ok := modular.IsConfiguration(err)
		require.True(t, ok, "want ConfigurationError, got %v", err)
		assert.Equal(t, "sidecar", cfgErr.Layer)
	})

	t.Run("enabled_without_implementation", func(t *testing.T) {
		_, err := config.NewBuilder().
			WithLayer("consensus", config.LayerConfig{Enabled: true, Priority: 10}).
			Build()
		cfgErr, ok := modular.IsConfiguration(err)
		require.True(t, ok, "want ConfigurationError, got %v", err)
		assert.Equal(t, "implementation", cfgErr.Field)
	})

	t.Run("unknown_dependency", func(t *testing.T) {
		_, err := config.NewBuilder().
			WithLayer("execution", config.LayerConfig{
				Implementation: "batch",
				Enabled:        true,
				Priority:       20,
				Dependencies:   []string{"oracle"},
			}).
			Build()
		cfgErr, ok := modular.IsConfiguration(err)
		require.True(t, ok, "want ConfigurationError, got %v", err)
		assert.Equal(t, "dependencies", cfgErr.Field)
	})

	t.Run("dependency_cycle", func(t *testing.T) {
		_, err := config.NewBuilder().
			WithLayer("execution", config.LayerConfig{
				Implementation: "batch",
				Enabled:        true,
				Priority:       20,
				Dependencies:   []string{"settlement"},
			}).
			Build()
		cfgErr, ok := modular.IsConfiguration(err)
		require.True(t, ok, "want ConfigurationError, got %v", err)
		assert.Equal(t, "dependency cycle", cfgErr.Reason)
	})
}

func TestStartupOrder(t *testing.T) {
	m, err := config.NewBuilder().Build()
	require.NoError(t, err)
	order, err := m.StartupOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"consensus", "execution", "settlement", "data_availability"}, order)

	// Dependencies win over priority: settlement depends on
	// execution, so execution starts first even when its priority
	// says otherwise.
	m, err = config.NewBuilder().
		WithLayer("execution", config.LayerConfig{
			Implementation: "batch",
			Enabled:        true,
			Priority:       99,
		}).
		Build()
	require.NoError(t, err)
	order, err = m.StartupOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"consensus", "execution", "settlement", "data_availability"}, order)
}

func TestOptionAccessors(t *testing.T) {
	lc := config.LayerConfig{Options: map[string]any{
		"difficulty": float64(3),
		"name":       "pow",
		"enabled":    true,
	}}
	assert.Equal(t, 3, lc.IntOption("difficulty", 0))
	assert.Equal(t, 7, lc.IntOption("missing", 7))
	assert.Equal(t, "pow", lc.StringOption("name", ""))
	assert.Equal(t, "x", lc.StringOption("difficulty", "x"), "wrong type falls back")
	assert.True(t, lc.BoolOption("enabled", false))
}
