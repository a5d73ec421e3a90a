package config

// Builder assembles a configuration in code, for tests and embedders
// that do not read a file.
type Builder struct {
	layers map[string]LayerConfig
}

// NewBuilder starts from the default four-layer configuration.
func NewBuilder() *Builder {
	return &Builder{layers: defaultLayers()}
}

// WithLayer replaces one layer's configuration.
func (b *Builder) WithLayer(name string, lc LayerConfig) *Builder {
	b.layers[name] = lc
	return b
}

// WithOption sets one option on a layer, creating the options map if
// needed.
func (b *Builder) WithOption(layer, key string, value any) *Builder {
	lc := b.layers[layer]
	if lc.Options == nil {
		lc.Options = make(map[string]any)
	}
	lc.Options[key] = value
	b.layers[layer] = lc
	return b
}

// WithDisabled turns a layer off.
func (b *Builder) WithDisabled(name string) *Builder {
	lc := b.layers[name]
	lc.Enabled = false
	b.layers[name] = lc
	return b
}

// Build validates the assembled configuration.
func (b *Builder) Build() (*Manager, error) {
	layers := make(map[string]LayerConfig, len(b.layers))
	for name, lc := range b.layers {
		layers[name] = lc
	}
	m := &Manager{layers: layers}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}
