package strategy

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ccoveille/go-safecast/v2"
	"gopkg.in/yaml.v3"
)

// Configuration describes a strategy and its settings, such that an equal
// strategy can be rebuilt from it through a Registry.
type Configuration struct {
	Strategy ID             `yaml:"strategy"`
	Values   map[string]any `yaml:",inline"`
}

// ConfigurationFor returns a configuration without settings.
func ConfigurationFor(id ID) Configuration {
	return Configuration{Strategy: id}
}

// With returns a copy of the configuration with the setting added.
func (c Configuration) With(key string, value any) Configuration {
	values := make(map[string]any, len(c.Values)+1)
	for k, v := range c.Values {
		values[k] = v
	}
	values[key] = value
	return Configuration{Strategy: c.Strategy, Values: values}
}

// Bool returns the boolean setting, or the fallback if unset.
func (c Configuration) Bool(key string, fallback bool) (bool, error) {
	value, ok := c.Values[key]
	if !ok {
		return fallback, nil
	}
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("setting %s of %s must be a boolean, got %T", key, c.Strategy, value)
	}
	return b, nil
}

// Int returns the integer setting, or the fallback if unset.
func (c Configuration) Int(key string, fallback int) (int, error) {
	value, ok := c.Values[key]
	if !ok {
		return fallback, nil
	}

	var (
		i   int
		err error
	)
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		i, err = safecast.Convert[int](v)
	case uint64:
		i, err = safecast.Convert[int](v)
	case float64:
		i, err = safecast.Convert[int](v)
	default:
		return 0, fmt.Errorf("setting %s of %s must be an integer, got %T", key, c.Strategy, value)
	}
	if err != nil {
		return 0, fmt.Errorf("setting %s of %s: %w", key, c.Strategy, err)
	}
	return i, nil
}

// Strings returns the string list setting, or nil if unset.
func (c Configuration) Strings(key string) ([]string, error) {
	value, ok := c.Values[key]
	if !ok {
		return nil, nil
	}

	switch v := value.(type) {
	case []string:
		return slices.Clone(v), nil
	case []any:
		strs := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("setting %s of %s must be a list of strings, found %T", key, c.Strategy, item)
			}
			strs = append(strs, str)
		}
		return strs, nil
	default:
		return nil, fmt.Errorf("setting %s of %s must be a list of strings, got %T", key, c.Strategy, value)
	}
}

// MarshalConfigurations encodes the configurations as a YAML list.
func MarshalConfigurations(configs []Configuration) ([]byte, error) {
	return yaml.Marshal(configs)
}

// UnmarshalConfigurations decodes a YAML list of configurations.
func UnmarshalConfigurations(data []byte) ([]Configuration, error) {
	var configs []Configuration
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to decode strategy configurations: %w", err)
	}
	for i, config := range configs {
		if config.Strategy == "" {
			return nil, fmt.Errorf("strategy configuration %d is missing the strategy key", i)
		}
	}
	return configs, nil
}

// Factory builds a strategy from its configuration.
type Factory func(config Configuration) (Strategy, error)

// Registry maps strategy IDs to the factories building them.
type Registry struct {
	sync.RWMutex
	factories map[ID]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[ID]Factory{}}
}

// Register adds the factory for the ID, replacing any existing one.
func (r *Registry) Register(id ID, factory Factory) {
	r.Lock()
	defer r.Unlock()
	r.factories[id] = factory
}

// RegisterInstance registers a strategy without settings.
func (r *Registry) RegisterInstance(s Strategy) {
	r.Register(s.ID(), func(Configuration) (Strategy, error) { return s, nil })
}

// FromConfiguration builds the strategy described by the configuration.
func (r *Registry) FromConfiguration(config Configuration) (Strategy, error) {
	r.RLock()
	factory, ok := r.factories[config.Strategy]
	r.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %s", config.Strategy)
	}

	s, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build strategy %s: %w", config.Strategy, err)
	}
	return s, nil
}

// StrategiesFromYAML builds and sorts the strategies described by a YAML list
// of configurations.
func (r *Registry) StrategiesFromYAML(data []byte) (*Strategies, error) {
	configs, err := UnmarshalConfigurations(data)
	if err != nil {
		return nil, err
	}

	strs := make([]Strategy, 0, len(configs))
	for _, config := range configs {
		s, err := r.FromConfiguration(config)
		if err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	return NewStrategies(strs...)
}
