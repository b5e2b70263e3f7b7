package cli

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/quant/strategy"
)

// layerFlags are the per-layer variant names and --set assignments given on
// the command line.
type layerFlags struct {
	names map[strategy.Layer]*string
	sets  []string
}

func newLayerFlags() *layerFlags {
	lf := &layerFlags{names: map[strategy.Layer]*string{}}
	for _, l := range strategy.Layers() {
		lf.names[l] = new(string)
	}
	return lf
}

// override builds the highest-precedence partial config, or nil when no
// layer flag was given.
func (lf *layerFlags) override() (*strategy.Config, error) {
	out := &strategy.Config{}
	touched := false
	for _, l := range strategy.Layers() {
		if name := *lf.names[l]; name != "" {
			out.Layer(l).Name = name
			touched = true
		}
	}
	for _, s := range lf.sets {
		l, key, v, err := parseSet(s)
		if err != nil {
			return nil, err
		}
		lc := out.Layer(l)
		if lc.Params == nil {
			lc.Params = strategy.Params{}
		}
		lc.Params[key] = v
		touched = true
	}
	if !touched {
		return nil, nil
	}
	return out, nil
}

// parseSet splits layer.key=value. The value is decoded as a YAML scalar or
// flow sequence, so numbers, booleans and [a, b] lists keep their types.
func parseSet(s string) (strategy.Layer, string, any, error) {
	lhs, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", nil, fmt.Errorf("--set %q: want layer.key=value", s)
	}
	layer, key, ok := strings.Cut(strings.TrimSpace(lhs), ".")
	if !ok || key == "" {
		return "", "", nil, fmt.Errorf("--set %q: want layer.key=value", s)
	}
	l := strategy.Layer(strings.ToLower(layer))
	valid := false
	for _, known := range strategy.Layers() {
		valid = valid || l == known
	}
	if !valid {
		return "", "", nil, fmt.Errorf("--set %q: unknown layer %q", s, layer)
	}

	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return "", "", nil, fmt.Errorf("--set %q: %w", s, err)
	}
	if v == nil {
		v = raw
	}
	return l, key, v, nil
}
