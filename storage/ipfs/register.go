package ipfs

import (
	"flag"
	"fmt"
	"os"
	"time"

	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/bsregistry"
)

var (
	flagBin     string
	flagPath    string
	flagTimeout time.Duration
)

func init() {
	bsregistry.MustRegister(bsregistry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo repo via the ipfs CLI (offline)",
		Usage:       bsregistry.UsageCLI | bsregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagBin, "ipfs-bin", "ipfs", "Path to the ipfs binary (for --backend=ipfs)")
			fs.StringVar(&flagPath, "ipfs-path", "", "IPFS_PATH for the ipfs binary (empty = inherit)")
			fs.DurationVar(&flagTimeout, "ipfs-timeout", 0, "Per-command timeout (0 = none)")
		},
		Open: func() (storage.Blockstore, func() error, error) {
			return New(options(flagBin, flagPath, flagTimeout)), nil, nil
		},
		OpenConfig: func(cfg map[string]string) (storage.Blockstore, func() error, error) {
			var timeout time.Duration
			if v := cfg["ipfs-timeout"]; v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return nil, nil, fmt.Errorf("ipfs: invalid ipfs-timeout %q: %w", v, err)
				}
				timeout = d
			}
			return New(options(cfg["ipfs-bin"], cfg["ipfs-path"], timeout)), nil, nil
		},
	})
}

func options(bin, repo string, timeout time.Duration) Options {
	opts := Options{Bin: bin, Timeout: timeout}
	if repo != "" {
		opts.Env = append(os.Environ(), "IPFS_PATH="+repo)
	}
	return opts
}
