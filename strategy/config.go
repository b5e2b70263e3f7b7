package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// LayerConfig names a layer variant and its parameters.
type LayerConfig struct {
	Name   string `json:"name" yaml:"name"`
	Params Params `json:"params,omitempty" yaml:"params,omitempty"`
}

// Clone returns a deep copy of c.
func (c LayerConfig) Clone() LayerConfig {
	return LayerConfig{Name: c.Name, Params: c.Params.Clone()}
}

// Config is the full description of a composite strategy. Once a Factory
// has built it, the copy held by the Composite is the run's reproducibility
// snapshot.
type Config struct {
	Name      string      `json:"name,omitempty" yaml:"name,omitempty"`
	Selection LayerConfig `json:"selection" yaml:"selection"`
	Entry     LayerConfig `json:"entry" yaml:"entry"`
	Exit      LayerConfig `json:"exit" yaml:"exit"`
	Execution LayerConfig `json:"execution" yaml:"execution"`
}

// Layer returns a pointer to the named layer's configuration.
func (c *Config) Layer(l Layer) *LayerConfig {
	switch l {
	case LayerSelection:
		return &c.Selection
	case LayerEntry:
		return &c.Entry
	case LayerExit:
		return &c.Exit
	case LayerExecution:
		return &c.Execution
	}
	return nil
}

func (c Config) Clone() Config {
	return Config{
		Name:      c.Name,
		Selection: c.Selection.Clone(),
		Entry:     c.Entry.Clone(),
		Exit:      c.Exit.Clone(),
		Execution: c.Execution.Clone(),
	}
}

// DefaultName is the composite name derived from the layer names.
func (c Config) DefaultName() string {
	return strings.Join([]string{c.Selection.Name, c.Entry.Name, c.Exit.Name, c.Execution.Name}, "_")
}

func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c Config) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ParseConfig reads a Config written as YAML or JSON.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		if jerr := json.Unmarshal(data, &c); jerr != nil {
			return Config{}, fmt.Errorf("parse strategy config: %w", err)
		}
	}
	return c, nil
}
