package strategy

import (
	"fmt"
	"sort"
	"strings"
)

// Builder constructs a layer from its parameters and returns the fully
// resolved parameters it was built with.
type Builder[T any] func(Params) (T, Params, error)

type table[T any] struct {
	builders map[string]Builder[T]
	aliases  map[string]string
}

func newTable[T any]() table[T] {
	return table[T]{builders: map[string]Builder[T]{}, aliases: map[string]string{}}
}

func (t table[T]) register(name string, b Builder[T], aliases ...string) {
	name = canonical(name)
	t.builders[name] = b
	for _, a := range aliases {
		t.aliases[canonical(a)] = name
	}
}

func (t table[T]) resolve(name string) (string, bool) {
	name = canonical(name)
	if alias, ok := t.aliases[name]; ok {
		name = alias
	}
	_, ok := t.builders[name]
	return name, ok
}

func (t table[T]) lookup(name string) (string, Builder[T], bool) {
	name, ok := t.resolve(name)
	if !ok {
		return name, nil, false
	}
	return name, t.builders[name], true
}

func (t table[T]) names() []string {
	out := make([]string, 0, len(t.builders))
	for n := range t.builders {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Preset is a named, documented strategy configuration.
type Preset struct {
	Name        string
	Description string
	Config      Config
}

// Registry maps layer variant names to builders. A Registry is built once
// at startup and handed to a Factory; the zero value is not usable.
type Registry struct {
	selection table[Selection]
	entry     table[Entry]
	exit      table[Exit]
	execution table[Execution]
	presets   map[string]Preset
}

func NewRegistry() *Registry {
	return &Registry{
		selection: newTable[Selection](),
		entry:     newTable[Entry](),
		exit:      newTable[Exit](),
		execution: newTable[Execution](),
		presets:   map[string]Preset{},
	}
}

func (r *Registry) RegisterSelection(name string, b Builder[Selection], aliases ...string) {
	r.selection.register(name, b, aliases...)
}

func (r *Registry) RegisterEntry(name string, b Builder[Entry], aliases ...string) {
	r.entry.register(name, b, aliases...)
}

func (r *Registry) RegisterExit(name string, b Builder[Exit], aliases ...string) {
	r.exit.register(name, b, aliases...)
}

func (r *Registry) RegisterExecution(name string, b Builder[Execution], aliases ...string) {
	r.execution.register(name, b, aliases...)
}

// RegisterPreset adds or replaces a preset.
func (r *Registry) RegisterPreset(p Preset) {
	r.presets[canonical(p.Name)] = p
}

// Preset looks up a preset by name.
func (r *Registry) Preset(name string) (Preset, error) {
	p, ok := r.presets[canonical(name)]
	if !ok {
		return Preset{}, &ConfigError{Name: name, Err: ErrUnknownPreset}
	}
	p.Config = p.Config.Clone()
	return p, nil
}

// Presets returns every preset sorted by name.
func (r *Registry) Presets() []Preset {
	out := make([]Preset, 0, len(r.presets))
	for _, p := range r.presets {
		p.Config = p.Config.Clone()
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names lists the registered variant names of a layer.
func (r *Registry) Names(l Layer) []string {
	switch l {
	case LayerSelection:
		return r.selection.names()
	case LayerEntry:
		return r.entry.names()
	case LayerExit:
		return r.exit.names()
	case LayerExecution:
		return r.execution.names()
	}
	return nil
}

// Canonical resolves aliases and case to the registered variant name.
func (r *Registry) Canonical(l Layer, name string) (string, error) {
	var (
		n  string
		ok bool
	)
	switch l {
	case LayerSelection:
		n, ok = r.selection.resolve(name)
	case LayerEntry:
		n, ok = r.entry.resolve(name)
	case LayerExit:
		n, ok = r.exit.resolve(name)
	case LayerExecution:
		n, ok = r.execution.resolve(name)
	default:
		return "", fmt.Errorf("unknown layer %q", l)
	}
	if !ok {
		return n, &ConfigError{Layer: l, Name: name, Err: ErrUnknownLayer}
	}
	return n, nil
}
