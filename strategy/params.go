package strategy

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	// ErrConfiguration matches every assembly-time failure.
	ErrConfiguration = errors.New("strategy configuration error")

	ErrMissingLayer  = errors.New("layer not configured")
	ErrUnknownLayer  = errors.New("unknown layer variant")
	ErrUnknownParam  = errors.New("unrecognized parameter")
	ErrInvalidParam  = errors.New("invalid parameter")
	ErrUnknownPreset = errors.New("unknown preset")
)

// ConfigError describes why a strategy could not be assembled.
type ConfigError struct {
	Layer Layer
	Name  string
	Key   string
	Err   error
}

func (e *ConfigError) Error() string {
	msg := "strategy"
	if e.Layer != "" {
		msg += " " + string(e.Layer)
	}
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" param %q", e.Key)
	}
	return msg + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// Params is a loosely typed parameter mapping for one layer.
type Params map[string]any

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]any:
		return map[string]any(Params(t).Clone())
	case Params:
		return t.Clone()
	}
	return v
}

// Bind decodes params over defaults into a typed configuration. Fields are
// matched by their yaml tags; a key with no matching field is rejected with
// ErrUnknownParam and omitted keys keep their default. It also returns the
// fully resolved parameters as a Params snapshot.
func Bind[T any](params Params, defaults T) (T, Params, error) {
	cfg := defaults

	known, err := toParams(defaults)
	if err != nil {
		return cfg, nil, err
	}
	for _, k := range params.Keys() {
		if _, ok := known[k]; !ok {
			return cfg, nil, &ConfigError{Key: k, Err: ErrUnknownParam}
		}
	}

	if len(params) > 0 {
		raw, err := yaml.Marshal(map[string]any(params))
		if err != nil {
			return cfg, nil, &ConfigError{Err: fmt.Errorf("%w: %v", ErrInvalidParam, err)}
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, nil, &ConfigError{Err: fmt.Errorf("%w: %v", ErrInvalidParam, err)}
		}
	}

	resolved, err := toParams(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, resolved, nil
}

func toParams(v any) (Params, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("%w: %v", ErrInvalidParam, err)}
	}
	out := Params{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("%w: %v", ErrInvalidParam, err)}
	}
	return out, nil
}

// Invalid reports a parameter whose value a builder rejects.
func Invalid(key, format string, args ...any) error {
	return &ConfigError{Key: key, Err: fmt.Errorf("%w: %s", ErrInvalidParam, fmt.Sprintf(format, args...))}
}
