// Package config loads the planner policy from a YAML file. The policy is
// the one injectable piece of domain judgment in the query core: which type
// to prefer as the query root and which fields identify a result row.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/querybridge/querybridge/internal/plan"
)

// Config is the on-disk planner configuration.
//
//	default_root: Provider
//	identifying_fields: [providerId, name]
type Config struct {
	DefaultRoot       string   `yaml:"default_root"`
	IdentifyingFields []string `yaml:"identifying_fields"`
}

// Policy converts the configuration into the assembler's policy value.
func (c Config) Policy() plan.Policy {
	return plan.Policy{
		DefaultRoot:       c.DefaultRoot,
		IdentifyingFields: c.IdentifyingFields,
	}
}

// Load reads a policy file. A missing path ("" or nonexistent file) yields
// the zero policy: no preferred root, id-then-name identifying fields.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	return c, nil
}
