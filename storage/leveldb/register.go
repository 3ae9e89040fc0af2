package leveldb

import (
	"flag"
	"fmt"
	"strconv"

	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/bsregistry"
)

var (
	flagDir    string
	flagVerify bool
)

func init() {
	bsregistry.MustRegister(bsregistry.Backend{
		Name:        "leveldb",
		Description: "goleveldb blockstore keyed by multihash",
		Usage:       bsregistry.UsageCLI | bsregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagDir, "leveldb-dir", "", "LevelDB database directory (for --backend=leveldb)")
			fs.BoolVar(&flagVerify, "leveldb-verify", false, "Rehash every block read from the database")
		},
		Open: func() (storage.Blockstore, func() error, error) {
			if flagDir == "" {
				return nil, nil, fmt.Errorf("missing --leveldb-dir")
			}
			s, err := Open(flagDir, Options{Verify: flagVerify})
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
		OpenConfig: func(cfg map[string]string) (storage.Blockstore, func() error, error) {
			dir := cfg["leveldb-dir"]
			if dir == "" {
				return nil, nil, fmt.Errorf("leveldb: missing config key leveldb-dir")
			}
			opts := Options{}
			if v := cfg["leveldb-verify"]; v != "" {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return nil, nil, fmt.Errorf("leveldb: invalid leveldb-verify %q: %w", v, err)
				}
				opts.Verify = b
			}
			s, err := Open(dir, opts)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}
