package rediscas

import (
	"fmt"

	"xdao.co/radup/storage"
	"xdao.co/radup/storage/casregistry"
)

// Options configures the redis backend.
type Options struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

func open(cfg map[string]any) (storage.CAS, func() error, error) {
	var opts Options
	if err := casregistry.DecodeConfig(cfg, &opts); err != nil {
		return nil, nil, err
	}
	if opts.Addr == "" {
		return nil, nil, fmt.Errorf("rediscas: missing address (--redis-addr or addr)")
	}
	var o []Option
	if opts.Prefix != "" {
		o = append(o, WithPrefix(opts.Prefix))
	}
	c := New(opts.Addr, opts.Password, opts.DB, o...)
	return c, c.Close, nil
}

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "redis",
		Description: "Redis journal (one key per object)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Flags: []casregistry.Flag{
			{Name: "redis-addr", Key: "addr", Usage: "redis host:port (for --journal=redis)"},
			{Name: "redis-password", Key: "password", Usage: "redis password (for --journal=redis)"},
			{Name: "redis-db", Key: "db", Usage: "redis database number (for --journal=redis)"},
			{Name: "redis-prefix", Key: "prefix", Default: DefaultPrefix, Usage: "key prefix (for --journal=redis)"},
		},
		Open: open,
	})
}
