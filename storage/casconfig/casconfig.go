// Package casconfig opens one or more journal backends from a JSON or YAML
// file. Backends must still be linked into the binary via blank imports.
package casconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"xdao.co/radup/storage"
	"xdao.co/radup/storage/casregistry"
)

const (
	WriteFirst = "first"
	WriteAll   = "all"
)

// Config describes how to open journal backends via casregistry.
//
// WritePolicy values:
// - "first" (default): write only to the first backend; reads fall back in order
// - "all": write to all backends and require CID equality (see storage.ReplicatingCAS)
//
// Example (YAML):
//
//	write_policy: all
//	backends:
//	  - name: localfs
//	    config: {dir: /var/lib/radup/journal}
//	  - name: redis
//	    config: {addr: "127.0.0.1:6379", db: 2}
type Config struct {
	WritePolicy string          `json:"write_policy,omitempty" yaml:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends" yaml:"backends"`
}

type BackendConfig struct {
	// Name is the casregistry backend name ("localfs", "redis", "grpc").
	Name string `json:"name" yaml:"name"`
	// ID is an optional stable alias used in per-backend reports.
	// If empty, Name is used.
	ID     string         `json:"id,omitempty" yaml:"id,omitempty"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

func (b BackendConfig) matches(key string) bool { return b.Name == key || b.ID == key }

// LoadFile reads a config file; ".yaml" and ".yml" are parsed as YAML,
// everything else as JSON.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("casconfig: no config path given")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	unmarshal := json.Unmarshal
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		unmarshal = yaml.Unmarshal
	}
	if err := unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("casconfig: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.WritePolicy != "" && c.WritePolicy != WriteFirst && c.WritePolicy != WriteAll {
		return fmt.Errorf("casconfig: write_policy must be %q or %q, got %q", WriteFirst, WriteAll, c.WritePolicy)
	}
	if len(c.Backends) == 0 {
		return errors.New("casconfig: no backends configured")
	}
	ids := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("casconfig: backends[%d] has no name", i)
		}
		if ids[b.id()] {
			return fmt.Errorf("casconfig: backend id %q used twice", b.id())
		}
		ids[b.id()] = true
	}
	return nil
}

// ordered returns the backends with preferred (a name or id) moved to the
// front, keeping the others in file order.
func (c Config) ordered(preferred string) ([]BackendConfig, error) {
	if preferred == "" {
		return c.Backends, nil
	}
	out := make([]BackendConfig, 0, len(c.Backends))
	for _, b := range c.Backends {
		if b.matches(preferred) && (len(out) == 0 || !out[0].matches(preferred)) {
			out = append([]BackendConfig{b}, out...)
			continue
		}
		out = append(out, b)
	}
	if !out[0].matches(preferred) {
		return nil, fmt.Errorf("casconfig: preferred backend %q is not configured", preferred)
	}
	return out, nil
}

// closers runs close functions in reverse open order and keeps the first error.
type closers []func() error

func (cs closers) close() error {
	var first error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens every backend and composes them per WritePolicy. If preferred
// is non-empty, that backend (by name or id) is moved first.
func (c Config) Open(usage casregistry.Usage, preferred string) (storage.CAS, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	backends, err := c.ordered(preferred)
	if err != nil {
		return nil, nil, err
	}

	var opened closers
	named := make([]storage.NamedCAS, 0, len(backends))
	for _, b := range backends {
		cas, closeFn, err := casregistry.OpenWithConfig(b.Name, usage, b.Config)
		if err != nil {
			_ = opened.close()
			return nil, nil, fmt.Errorf("casconfig: open %q: %w", b.id(), err)
		}
		if closeFn != nil {
			opened = append(opened, closeFn)
		}
		named = append(named, storage.NamedCAS{Name: b.id(), CAS: cas})
	}

	switch {
	case len(named) == 1:
		return named[0].CAS, opened.close, nil
	case c.WritePolicy == WriteAll:
		return storage.ReplicatingCAS{Backends: named}, opened.close, nil
	}
	multi := storage.MultiCAS{Adapters: make([]storage.CAS, len(named))}
	for i, n := range named {
		multi.Adapters[i] = n.CAS
	}
	return multi, opened.close, nil
}
