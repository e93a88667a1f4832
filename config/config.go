// Package config loads radup settings and turns them into an upload.Config.
//
// Values are layered: built-in defaults, then the YAML file (--config, or
// ~/.radup/config.yaml when it exists), then RADUP_* environment variables,
// then command-line flags. Later layers win. The private key itself is never
// stored here; Key only says where to load it from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"xdao.co/radup/address"
	"xdao.co/radup/keys"
	"xdao.co/radup/network"
	"xdao.co/radup/storage/casconfig"
	"xdao.co/radup/upload"
)

// Environment variables read by ApplyEnv.
const (
	EnvNetwork    = "RADUP_NETWORK"
	EnvGatewayURL = "RADUP_GATEWAY_URL"
	EnvComponent  = "RADUP_COMPONENT"
	EnvLogLevel   = "RADUP_LOG_LEVEL"
	EnvConfig     = "RADUP_CONFIG"
)

// Config is the on-disk configuration.
type Config struct {
	// Network is a network name: mainnet, stokenet, localnet or simulator.
	Network    string `yaml:"network"`
	GatewayURL string `yaml:"gateway_url,omitempty"`
	// Component is the storage component address. Empty selects the
	// default for mainnet.
	Component     string `yaml:"component,omitempty"`
	Curve         string `yaml:"curve"`
	LockFee       string `yaml:"lock_fee"`
	EpochWindow   uint64 `yaml:"epoch_window"`
	TipPercentage uint16 `yaml:"tip_percentage"`
	// Timeout bounds each gateway call. Default: 30s
	Timeout     string `yaml:"timeout"`
	MaxFileSize int64  `yaml:"max_file_size"`

	Key     KeyConfig     `yaml:"key"`
	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
}

// KeyConfig says where the signing key comes from. At most one of Env, File
// and Name may be set; when none is, the RADUP_PRIVATE_KEY variable is used.
type KeyConfig struct {
	Env  string `yaml:"env,omitempty"`
	File string `yaml:"file,omitempty"`
	// Name selects a key in the key store directory.
	Name string `yaml:"name,omitempty"`
	// Dir overrides the key store directory (~/.radup/keys).
	Dir string `yaml:"dir,omitempty"`
	// AgeIdentity decrypts age-encrypted key files.
	AgeIdentity string `yaml:"age_identity,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// JournalConfig enables the upload journal. Backends use the casconfig
// layout; an empty list disables the journal.
type JournalConfig struct {
	casconfig.Config `yaml:",inline"`
}

// Enabled reports whether any journal backend is configured.
func (j JournalConfig) Enabled() bool { return len(j.Backends) > 0 }

// Default returns the built-in defaults.
func Default() *Config {
	d := upload.DefaultConfig()
	return &Config{
		Network:     d.Network.Name,
		Curve:       string(d.Curve),
		LockFee:     d.LockFee,
		EpochWindow: d.EpochWindow,
		Timeout:     d.Timeout.String(),
		MaxFileSize: d.MaxFileSize,
		Log:         LogConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.radup/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".radup", "config.yaml"), nil
}

// LoadFile reads path over the defaults. The file must exist.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads path when it is set. Otherwise it reads RADUP_CONFIG or the
// default path, and falls back to the defaults when that file is absent.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return LoadFile(p)
	}
	p, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	cfg, err := LoadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overlays RADUP_* variables found by lookup (os.LookupEnv when nil).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(dst *string, name string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Network, EnvNetwork)
	set(&c.GatewayURL, EnvGatewayURL)
	set(&c.Component, EnvComponent)
	set(&c.Log.Level, EnvLogLevel)
}

// Endpoint is what a gateway query needs, without any upload settings.
type Endpoint struct {
	Network network.Network
	URL     string
	Timeout time.Duration
}

// Endpoint resolves the network, gateway URL and timeout. Unlike Upload it
// needs no storage component, so it serves status queries on any network.
func (c *Config) Endpoint() (Endpoint, error) {
	net, err := network.ByName(c.Network)
	if err != nil {
		return Endpoint{}, fmt.Errorf("config: %w", err)
	}
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return Endpoint{}, fmt.Errorf("config: timeout %q: %w", c.Timeout, err)
	}
	if timeout < 0 {
		return Endpoint{}, fmt.Errorf("config: timeout %q must not be negative", c.Timeout)
	}
	url := c.GatewayURL
	if url == "" {
		url = net.GatewayURL
	}
	if url == "" {
		return Endpoint{}, fmt.Errorf("config: no gateway URL for %s", net.Name)
	}
	return Endpoint{Network: net, URL: url, Timeout: timeout}, nil
}

// StorageComponent returns the configured storage component, or the
// default component on mainnet.
func (c *Config) StorageComponent(net network.Network) (address.Address, error) {
	text := c.Component
	if text == "" {
		if net.ID != network.Mainnet.ID {
			return address.Address{}, fmt.Errorf("config: no storage component configured for %s", net.Name)
		}
		text = upload.DefaultComponent
	}
	component, err := address.ParseComponent(text, net)
	if err != nil {
		return address.Address{}, fmt.Errorf("config: storage component: %w", err)
	}
	return component, nil
}

// Upload validates c and builds the workflow configuration.
func (c *Config) Upload() (upload.Config, error) {
	ep, err := c.Endpoint()
	if err != nil {
		return upload.Config{}, err
	}
	net := ep.Network
	curve, err := keys.ParseCurve(c.Curve)
	if err != nil {
		return upload.Config{}, fmt.Errorf("config: %w", err)
	}

	out := upload.DefaultConfig()
	out.Network = net
	out.GatewayURL = c.GatewayURL
	out.Curve = curve
	out.LockFee = c.LockFee
	out.EpochWindow = c.EpochWindow
	out.TipPercentage = c.TipPercentage
	out.Timeout = ep.Timeout
	out.MaxFileSize = c.MaxFileSize
	component, err := c.StorageComponent(net)
	if err != nil {
		return upload.Config{}, err
	}
	out.Component = component.String()
	if _, err := out.Validate(); err != nil {
		return upload.Config{}, fmt.Errorf("config: %w", err)
	}
	return out, nil
}

// KeyProvider returns the secret provider selected by c.Key.
func (c *Config) KeyProvider() (keys.Provider, error) {
	k := c.Key
	n := 0
	for _, v := range []string{k.Env, k.File, k.Name} {
		if v != "" {
			n++
		}
	}
	if n > 1 {
		return nil, errors.New("config: choose one of key env, key file and key name")
	}
	switch {
	case k.Name != "":
		ks, err := keys.CreateKeyStore(k.Dir)
		if err != nil {
			return nil, err
		}
		return ks.Provider(k.Name, k.AgeIdentity)
	case k.File != "" && k.AgeIdentity != "":
		return keys.AgeFileProvider{Path: k.File, IdentityPath: k.AgeIdentity}, nil
	case k.File != "":
		return keys.FileProvider{Path: k.File}, nil
	default:
		return keys.EnvProvider{Name: k.Env}, nil
	}
}
