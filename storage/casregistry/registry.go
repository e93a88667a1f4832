// Package casregistry links journal backends into binaries.
//
// A backend package registers itself from init, and a binary enables it with
// a blank import. Every backend opens from a config map; command-line flags
// are only another way to fill that map.
package casregistry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"

	"xdao.co/radup/storage"
)

// Flag exposes one config key of a backend as a command-line flag.
type Flag struct {
	Name    string
	Key     string
	Default string
	Usage   string
}

// Backend describes a registered journal backend.
type Backend struct {
	Name        string
	Description string
	Usage       Usage
	Flags       []Flag

	// Open builds the CAS from a config map. The close function may be nil.
	Open func(cfg map[string]any) (storage.CAS, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
	flagName = map[string]string{} // flag name -> owning backend
)

// Register adds b. Names and flag names must be unique across backends.
func Register(b Backend) error {
	switch {
	case b.Name == "":
		return fmt.Errorf("casregistry: backend name is required")
	case b.Open == nil:
		return fmt.Errorf("casregistry: backend %q has no Open", b.Name)
	case b.Usage == 0:
		return fmt.Errorf("casregistry: backend %q has no Usage", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("casregistry: backend %q already registered", b.Name)
	}
	for _, f := range b.Flags {
		if owner, taken := flagName[f.Name]; taken {
			return fmt.Errorf("casregistry: flag --%s of %q already used by %q", f.Name, b.Name, owner)
		}
	}
	for _, f := range b.Flags {
		flagName[f.Name] = b.Name
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is Register for init functions.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns the backends usable under usage, by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the names of List(usage).
func Names(usage Usage) []string {
	var names []string
	for _, b := range List(usage) {
		names = append(names, b.Name)
	}
	return names
}

func lookup(name string, usage Usage) (Backend, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return Backend{}, fmt.Errorf("unknown journal backend %q (available: %v)", name, Names(usage))
	}
	if !b.Usage.allows(usage) {
		return Backend{}, fmt.Errorf("journal backend %q not supported in this binary", name)
	}
	return b, nil
}

// OpenWithConfig opens the named backend from cfg.
func OpenWithConfig(name string, usage Usage, cfg map[string]any) (storage.CAS, func() error, error) {
	b, err := lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	return b.Open(cfg)
}

// Flags holds backend flags bound to one flag set.
type Flags struct {
	usage  Usage
	values map[string]map[string]*string // backend -> config key -> value
}

// BindFlags adds the flags of every backend usable under usage to fs.
func BindFlags(fs *pflag.FlagSet, usage Usage) *Flags {
	f := &Flags{usage: usage, values: map[string]map[string]*string{}}
	for _, b := range List(usage) {
		vals := map[string]*string{}
		for _, fl := range b.Flags {
			vals[fl.Key] = fs.String(fl.Name, fl.Default, fl.Usage)
		}
		f.values[b.Name] = vals
	}
	return f
}

// Config returns the non-empty flag values of the named backend as a config
// map.
func (f *Flags) Config(name string) map[string]any {
	cfg := map[string]any{}
	for k, v := range f.values[name] {
		if *v != "" {
			cfg[k] = *v
		}
	}
	return cfg
}

// Open opens the named backend from the parsed flags.
func (f *Flags) Open(name string) (storage.CAS, func() error, error) {
	return OpenWithConfig(name, f.usage, f.Config(name))
}

// DecodeConfig decodes cfg into out, a pointer to a struct with mapstructure
// tags. Strings convert to numbers, booleans and durations, which is how
// flag values arrive; unknown keys are an error.
func DecodeConfig(cfg map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("casregistry: %w", err)
	}
	return nil
}
