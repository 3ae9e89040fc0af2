package localfs

import (
	"flag"
	"fmt"
	"strconv"

	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/bsregistry"
)

var (
	flagLocalDir       string
	flagLocalPrefixLen int
	flagLocalVerify    bool
)

func init() {
	bsregistry.MustRegister(bsregistry.Backend{
		Name:        "localfs",
		Description: "Sharded filesystem blockstore (one file per block)",
		Usage:       bsregistry.UsageCLI | bsregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "LocalFS block directory (for --backend=localfs; default <repo>/blocks)")
			fs.IntVar(&flagLocalPrefixLen, "localfs-prefix-len", DefaultPrefixLen, "Shard directory prefix length in hex characters")
			fs.BoolVar(&flagLocalVerify, "localfs-verify", false, "Rehash every block read from disk")
		},
		Open: func() (storage.Blockstore, func() error, error) {
			if flagLocalDir == "" {
				return nil, nil, fmt.Errorf("missing --localfs-dir")
			}
			s, err := New(flagLocalDir, Options{PrefixLen: flagLocalPrefixLen, Verify: flagLocalVerify})
			if err != nil {
				return nil, nil, err
			}
			return s, nil, nil
		},
		OpenConfig: openConfig,
	})
}

// openConfig accepts the keys localfs-dir, localfs-prefix-len and
// localfs-verify.
func openConfig(cfg map[string]string) (storage.Blockstore, func() error, error) {
	dir := cfg["localfs-dir"]
	if dir == "" {
		return nil, nil, fmt.Errorf("localfs: missing config key localfs-dir")
	}
	opts := Options{}
	if v := cfg["localfs-prefix-len"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, nil, fmt.Errorf("localfs: invalid localfs-prefix-len %q: %w", v, err)
		}
		opts.PrefixLen = n
	}
	if v := cfg["localfs-verify"]; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, nil, fmt.Errorf("localfs: invalid localfs-verify %q: %w", v, err)
		}
		opts.Verify = b
	}
	s, err := New(dir, opts)
	if err != nil {
		return nil, nil, err
	}
	return s, nil, nil
}
