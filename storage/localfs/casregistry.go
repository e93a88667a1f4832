package localfs

import (
	"fmt"

	"xdao.co/radup/storage"
	"xdao.co/radup/storage/casregistry"
)

// Options configures the localfs backend.
type Options struct {
	Dir string `mapstructure:"dir"`
}

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem journal (zstd-compressed objects)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Flags: []casregistry.Flag{
			{Name: "localfs-dir", Key: "dir", Usage: "journal directory (for --journal=localfs)"},
		},
		Open: func(cfg map[string]any) (storage.CAS, func() error, error) {
			var opts Options
			if err := casregistry.DecodeConfig(cfg, &opts); err != nil {
				return nil, nil, err
			}
			if opts.Dir == "" {
				return nil, nil, fmt.Errorf("localfs: missing journal directory (--localfs-dir or dir)")
			}
			cas, err := New(opts.Dir)
			return cas, nil, err
		},
	})
}
