package strategy

// Composite is an assembled four-layer strategy. It is immutable; Config
// returns a copy of the resolved configuration it was built from.
type Composite struct {
	name      string
	selection Selection
	entry     Entry
	exit      Exit
	execution Execution
	config    Config
}

func (c *Composite) Name() string { return c.name }
func (c *Composite) Selection() Selection { return c.selection }
func (c *Composite) Entry() Entry { return c.entry }
func (c *Composite) Exit() Exit { return c.exit }
func (c *Composite) Execution() Execution { return c.execution }
func (c *Composite) Config() Config { return c.config.Clone() }

// Factory builds Composites from a Registry.
type Factory struct {
	registry *Registry
}

func NewFactory(r *Registry) *Factory {
	return &Factory{registry: r}
}

func (f *Factory) Registry() *Registry { return f.registry }

// Build constructs every layer named in cfg. Any missing layer, unknown
// variant or rejected parameter fails the whole build with a *ConfigError.
func (f *Factory) Build(cfg Config) (*Composite, error) {
	for _, l := range Layers() {
		if canonical(cfg.Layer(l).Name) == "" {
			return nil, &ConfigError{Layer: l, Err: ErrMissingLayer}
		}
	}

	out := &Composite{}
	resolved := Config{}
	var err error

	if out.selection, resolved.Selection, err = build(f.registry.selection, LayerSelection, cfg.Selection); err != nil {
		return nil, err
	}
	if out.entry, resolved.Entry, err = build(f.registry.entry, LayerEntry, cfg.Entry); err != nil {
		return nil, err
	}
	if out.exit, resolved.Exit, err = build(f.registry.exit, LayerExit, cfg.Exit); err != nil {
		return nil, err
	}
	if out.execution, resolved.Execution, err = build(f.registry.execution, LayerExecution, cfg.Execution); err != nil {
		return nil, err
	}

	resolved.Name = cfg.Name
	if resolved.Name == "" {
		resolved.Name = resolved.DefaultName()
	}
	out.name = resolved.Name
	out.config = resolved
	return out, nil
}

func build[T any](t table[T], l Layer, lc LayerConfig) (T, LayerConfig, error) {
	var zero T
	name, b, ok := t.lookup(lc.Name)
	if !ok {
		return zero, LayerConfig{}, &ConfigError{Layer: l, Name: lc.Name, Err: ErrUnknownLayer}
	}
	impl, params, err := b(lc.Params.Clone())
	if err != nil {
		return zero, LayerConfig{}, annotate(err, l, name)
	}
	if params == nil {
		params = Params{}
	}
	return impl, LayerConfig{Name: name, Params: params}, nil
}

func annotate(err error, l Layer, name string) error {
	if ce, ok := err.(*ConfigError); ok {
		c := *ce
		c.Layer, c.Name = l, name
		return &c
	}
	return &ConfigError{Layer: l, Name: name, Err: err}
}
