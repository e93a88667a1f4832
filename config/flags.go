package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Flags binds the command-line layer. Only flags the user actually set
// override the file and environment.
type Flags struct {
	fs *pflag.FlagSet

	path          string
	network       string
	gatewayURL    string
	component     string
	curve         string
	lockFee       string
	epochWindow   uint64
	tipPercentage uint16
	timeout       time.Duration
	maxFileSize   int64
	keyEnv        string
	keyFile       string
	keyName       string
	keyDir        string
	ageIdentity   string
	logLevel      string
	logJSON       bool
}

// BindFlags registers the shared flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.path, "config", "", "config file (default ~/.radup/config.yaml if present)")
	fs.StringVar(&f.network, "network", "", "network: mainnet, stokenet, localnet, simulator")
	fs.StringVar(&f.gatewayURL, "gateway", "", "gateway base URL (default: the network's gateway)")
	fs.StringVar(&f.component, "component", "", "storage component address")
	fs.StringVar(&f.curve, "curve", "", "key curve when the secret does not name one: secp256k1, ed25519")
	fs.StringVar(&f.lockFee, "lock-fee", "", "fee locked for the transaction, in XRD")
	fs.Uint64Var(&f.epochWindow, "epoch-window", 0, "epochs the transaction stays valid")
	fs.Uint16Var(&f.tipPercentage, "tip", 0, "validator tip percentage")
	fs.DurationVar(&f.timeout, "timeout", 0, "timeout for each gateway call")
	fs.Int64Var(&f.maxFileSize, "max-size", 0, "largest file accepted, in bytes")
	fs.StringVar(&f.keyEnv, "key-env", "", "environment variable holding the private key (default RADUP_PRIVATE_KEY)")
	fs.StringVar(&f.keyFile, "key-file", "", "file holding the private key")
	fs.StringVar(&f.keyName, "key-name", "", "key store entry holding the private key")
	fs.StringVar(&f.keyDir, "key-dir", "", "key store directory (default ~/.radup/keys)")
	fs.StringVar(&f.ageIdentity, "age-identity", "", "age identity file for encrypted keys")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.BoolVar(&f.logJSON, "log-json", false, "log in JSON")
	return f
}

// Path returns the --config value.
func (f *Flags) Path() string { return f.path }

// keySourceFlags are the mutually exclusive key source flags.
var keySourceFlags = []string{"key-env", "key-file", "key-name"}

// Apply overlays the flags that were set on c. Setting more than one key
// source flag is an error.
func (f *Flags) Apply(c *Config) error {
	var keyFlags []string
	for _, name := range keySourceFlags {
		if f.fs.Changed(name) {
			keyFlags = append(keyFlags, "--"+name)
		}
	}
	if len(keyFlags) > 1 {
		return fmt.Errorf("config: %s are exclusive; pass only one", strings.Join(keyFlags, ", "))
	}

	str := func(dst *string, name, v string) {
		if f.fs.Changed(name) {
			*dst = v
		}
	}
	str(&c.Network, "network", f.network)
	str(&c.GatewayURL, "gateway", f.gatewayURL)
	str(&c.Component, "component", f.component)
	str(&c.Curve, "curve", f.curve)
	str(&c.LockFee, "lock-fee", f.lockFee)
	str(&c.Key.Env, "key-env", f.keyEnv)
	str(&c.Key.File, "key-file", f.keyFile)
	str(&c.Key.Name, "key-name", f.keyName)
	str(&c.Key.Dir, "key-dir", f.keyDir)
	str(&c.Key.AgeIdentity, "age-identity", f.ageIdentity)
	str(&c.Log.Level, "log-level", f.logLevel)
	if f.fs.Changed("timeout") {
		c.Timeout = f.timeout.String()
	}
	if f.fs.Changed("epoch-window") {
		c.EpochWindow = f.epochWindow
	}
	if f.fs.Changed("tip") {
		c.TipPercentage = f.tipPercentage
	}
	if f.fs.Changed("max-size") {
		c.MaxFileSize = f.maxFileSize
	}
	if f.fs.Changed("log-json") {
		c.Log.JSON = f.logJSON
	}
	// Key sources are exclusive: a source chosen on the command line
	// replaces the one from the file.
	switch {
	case f.fs.Changed("key-env"):
		c.Key.File, c.Key.Name = "", ""
	case f.fs.Changed("key-file"):
		c.Key.Env, c.Key.Name = "", ""
	case f.fs.Changed("key-name"):
		c.Key.Env, c.Key.File = "", ""
	}
	return nil
}

// Resolve loads the file named by --config (or the default), then applies
// the environment and the flags.
func (f *Flags) Resolve(lookup func(string) (string, bool)) (*Config, error) {
	c, err := Load(f.path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(lookup)
	if err := f.Apply(c); err != nil {
		return nil, err
	}
	return c, nil
}
