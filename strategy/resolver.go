package strategy

// Request lists the configuration sources for one run. File and Override
// may be partial: an empty layer name keeps the lower-precedence layer.
type Request struct {
	Preset   string
	File     *Config
	Override *Config
}

// Resolver merges configuration sources with the precedence
// override > file > preset. Layer built-in defaults are filled in later by
// each layer's Builder.
type Resolver struct {
	registry *Registry
}

func NewResolver(r *Registry) *Resolver {
	return &Resolver{registry: r}
}

// Resolve merges req into one Config. Parameters merge per key. When a
// higher source names a different variant for a layer, the parameters
// gathered for the previous variant are dropped.
func (r *Resolver) Resolve(req Request) (Config, error) {
	var sources []Config
	if req.Preset != "" {
		p, err := r.registry.Preset(req.Preset)
		if err != nil {
			return Config{}, err
		}
		sources = append(sources, p.Config)
	}
	if req.File != nil {
		sources = append(sources, *req.File)
	}
	if req.Override != nil {
		sources = append(sources, *req.Override)
	}

	var out Config
	for _, src := range sources {
		if src.Name != "" {
			out.Name = src.Name
		}
		for _, l := range Layers() {
			r.mergeLayer(l, out.Layer(l), *src.Layer(l))
		}
	}
	return out, nil
}

func (r *Resolver) mergeLayer(l Layer, dst *LayerConfig, src LayerConfig) {
	if src.Name != "" {
		if dst.Name != "" && !r.sameVariant(l, dst.Name, src.Name) {
			dst.Params = nil
		}
		dst.Name = src.Name
	}
	if len(src.Params) == 0 {
		return
	}
	if dst.Params == nil {
		dst.Params = Params{}
	}
	for k, v := range src.Params {
		dst.Params[k] = cloneValue(v)
	}
}

func (r *Resolver) sameVariant(l Layer, a, b string) bool {
	ca, errA := r.registry.Canonical(l, a)
	cb, errB := r.registry.Canonical(l, b)
	if errA != nil || errB != nil {
		return canonical(a) == canonical(b)
	}
	return ca == cb
}
