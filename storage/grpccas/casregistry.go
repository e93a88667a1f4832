package grpccas

import (
	"fmt"
	"strings"
	"time"

	"xdao.co/radup/storage"
	"xdao.co/radup/storage/casregistry"
)

// Options configures the grpc backend.
type Options struct {
	Target      string        `mapstructure:"target"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxMsgBytes int           `mapstructure:"max-msg-bytes"`
}

// DefaultTimeout bounds each journal RPC when no timeout is configured.
const DefaultTimeout = 10 * time.Second

func open(cfg map[string]any) (storage.CAS, func() error, error) {
	opts := Options{Timeout: DefaultTimeout}
	if err := casregistry.DecodeConfig(cfg, &opts); err != nil {
		return nil, nil, err
	}
	target := strings.TrimSpace(opts.Target)
	if target == "" {
		return nil, nil, fmt.Errorf("grpccas: missing target (--grpc-target or target)")
	}
	client, err := Dial(target, DialOptions{Timeout: opts.Timeout, MaxMsgBytes: opts.MaxMsgBytes})
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "grpc",
		Description: "gRPC journal client (talks to radup-journald)",
		Usage:       casregistry.UsageCLI,
		Flags: []casregistry.Flag{
			{Name: "grpc-target", Key: "target", Usage: "radup-journald host:port (for --journal=grpc)"},
			{Name: "grpc-timeout", Key: "timeout", Default: DefaultTimeout.String(), Usage: "per-RPC timeout (for --journal=grpc)"},
			{Name: "grpc-max-msg-bytes", Key: "max-msg-bytes", Usage: "max gRPC message size in bytes; empty uses grpc defaults"},
		},
		Open: open,
	})
}
