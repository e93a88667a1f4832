package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"xdao.co/radup/keys"
	"xdao.co/radup/network"
	"xdao.co/radup/upload"
)

const simComponent = "component_sim1cqqqzqsrqszsvpcgpy9qkrqdpc83qygjzv2p29shrqv35xcuf39x77"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}


func TestDefault_Upload(t *testing.T) {
	got, err := Default().Upload()
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	want := upload.DefaultConfig()
	if got.Network.ID != network.Mainnet.ID || got.Component != want.Component || got.LockFee != "150" ||
		got.EpochWindow != 10 || got.Timeout != 30*time.Second || got.MaxFileSize != 500000 || got.TipPercentage != 0 {
		t.Fatalf("defaults = %+v", got)
	}
}

func TestLoadFile(t *testing.T) {
	p := writeConfig(t, `
network: simulator
component: `+simComponent+`
epoch_window: 20
timeout: 5s
key:
  file: /run/secrets/radup
log:
  level: debug
journal:
  write_policy: all
  backends:
    - name: localfs
      config: {dir: /tmp/journal}
`)
	c, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.LockFee != "150" || c.Curve != "secp256k1" {
		t.Fatalf("defaults not kept: %+v", c)
	}
	if !c.Journal.Enabled() || c.Journal.WritePolicy != "all" || c.Journal.Backends[0].Config["dir"] != "/tmp/journal" {
		t.Fatalf("journal = %+v", c.Journal)
	}
	u, err := c.Upload()
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if u.Network.ID != network.Simulator.ID || u.EpochWindow != 20 || u.Timeout != 5*time.Second {
		t.Fatalf("upload config = %+v", u)
	}
	p2, err := c.KeyProvider()
	if err != nil {
		t.Fatalf("KeyProvider: %v", err)
	}
	if fp, ok := p2.(keys.FileProvider); !ok || fp.Path != "/run/secrets/radup" {
		t.Fatalf("provider = %#v", p2)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadFile(writeConfig(t, "network: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad_MissingDefaultIsFine(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvConfig, "")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Network != "mainnet" {
		t.Fatalf("Network = %q", c.Network)
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
		want string
	}{
		{"unknown network", func(c *Config) { c.Network = "devnet" }, "unknown network"},
		{"bad curve", func(c *Config) { c.Curve = "p256" }, "curve"},
		{"bad timeout", func(c *Config) { c.Timeout = "soon" }, "timeout"},
		{"no component off mainnet", func(c *Config) { c.Network = "stokenet" }, "no storage component"},
		{"component on wrong network", func(c *Config) { c.Component = simComponent }, "storage component"},
		{"window", func(c *Config) { c.EpochWindow = 0 }, "epoch window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.edit(c)
			_, err := c.Upload()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestEndpoint_NeedsNoComponent(t *testing.T) {
	c := Default()
	c.Network = "stokenet"
	c.Timeout = "5s"
	ep, err := c.Endpoint()
	if err != nil {
		t.Fatalf("Endpoint: %v", err)
	}
	if ep.Network.ID != network.Stokenet.ID || ep.URL != network.Stokenet.GatewayURL || ep.Timeout != 5*time.Second {
		t.Fatalf("Endpoint = %+v", ep)
	}

	c.GatewayURL = "http://127.0.0.1:9"
	if ep, _ := c.Endpoint(); ep.URL != "http://127.0.0.1:9" {
		t.Fatalf("URL = %q", ep.URL)
	}
	c.Timeout = "-1s"
	if _, err := c.Endpoint(); err == nil {
		t.Fatalf("expected negative timeout error")
	}
}

func TestLayering(t *testing.T) {
	p := writeConfig(t, "network: stokenet\nlog:\n  level: warn\nkey:\n  name: deploy\n")
	env := map[string]string{
		EnvNetwork:   "simulator",
		EnvComponent: simComponent,
		EnvLogLevel:  "error",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	if err := fs.Parse([]string{"--config", p, "--log-level", "debug", "--key-file", "/k", "--epoch-window", "5"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c, err := f.Resolve(lookup)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c.Network != "simulator" || c.Component != simComponent {
		t.Fatalf("env not applied: %+v", c)
	}
	if c.Log.Level != "debug" || c.EpochWindow != 5 {
		t.Fatalf("flags not applied: %+v", c)
	}
	if c.Key.File != "/k" || c.Key.Name != "" {
		t.Fatalf("key source = %+v", c.Key)
	}
	if c.Curve != "secp256k1" {
		t.Fatalf("unset flag overrode curve: %q", c.Curve)
	}
}

func TestResolve_RejectsTwoKeyFlags(t *testing.T) {
	p := writeConfig(t, "key:\n  name: deploy\n")
	for _, args := range [][]string{
		{"--key-env", "X", "--key-file", "/k"},
		{"--key-file", "/k", "--key-name", "deploy"},
		{"--key-env", "X", "--key-name", "deploy", "--key-file", "/k"},
	} {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		f := BindFlags(fs)
		if err := fs.Parse(append([]string{"--config", p}, args...)); err != nil {
			t.Fatalf("Parse: %v", err)
		}
		_, err := f.Resolve(nil)
		if err == nil || !strings.Contains(err.Error(), "exclusive") {
			t.Fatalf("%v: expected exclusive key flags error, got %v", args, err)
		}
	}

	// One flag still replaces the file's key source.
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := BindFlags(fs)
	if err := fs.Parse([]string{"--config", p, "--key-env", "X"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c, err := f.Resolve(nil)
	if err != nil || c.Key.Env != "X" || c.Key.Name != "" {
		t.Fatalf("Resolve = %+v, %v", c, err)
	}
}

func TestKeyProvider(t *testing.T) {
	c := Default()
	p, err := c.KeyProvider()
	if err != nil {
		t.Fatalf("KeyProvider: %v", err)
	}
	if _, ok := p.(keys.EnvProvider); !ok {
		t.Fatalf("default provider = %#v", p)
	}

	c.Key = KeyConfig{File: "/k.age", AgeIdentity: "/id.txt"}
	p, err = c.KeyProvider()
	if err != nil {
		t.Fatalf("KeyProvider: %v", err)
	}
	if ap, ok := p.(keys.AgeFileProvider); !ok || ap.IdentityPath != "/id.txt" {
		t.Fatalf("age provider = %#v", p)
	}

	c.Key = KeyConfig{Env: "X", File: "/k"}
	if _, err := c.KeyProvider(); err == nil {
		t.Fatalf("expected error for two key sources")
	}

	c.Key = KeyConfig{Name: "missing", Dir: t.TempDir()}
	if _, err := c.KeyProvider(); err == nil {
		t.Fatalf("expected error for missing stored key")
	}
}
