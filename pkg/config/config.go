// Package config loads a service configuration in three layers: a YAML file
// with ${VAR} and ${VAR:-fallback} references expanded, then variables named
// by `env` struct tags, then the target's own Validate method.
//
// Targets are usually pre-filled with defaults, so every layer only
// overrides what it mentions.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Validator is implemented by configurations that check themselves.
type Validator interface {
	Validate() error
}

// Load reads filename into target and applies the env and validation layers.
// A missing file is an error.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := yaml.Unmarshal([]byte(Expand(string(data))), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return finish(target)
}

// LoadOptional is Load for a file that may be absent; without it only the
// env and validation layers run on target.
func LoadOptional[T any](filename string, target *T) error {
	err := Load(filename, target)
	if errors.Is(err, fs.ErrNotExist) {
		return finish(target)
	}
	return err
}

func finish[T any](target *T) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// Expand replaces ${VAR} and $VAR with the environment value. ${VAR:-fb}
// yields fb when VAR is unset or empty.
func Expand(s string) string {
	return os.Expand(s, func(ref string) string {
		name, fallback, hasFallback := strings.Cut(ref, ":-")
		v := os.Getenv(name)
		if v == "" && hasFallback {
			return fallback
		}
		return v
	})
}
