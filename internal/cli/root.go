// Package cli implements the dag command line tool.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"xdao.co/dagstore/cidutil"
	"xdao.co/dagstore/merkledag"
	"xdao.co/dagstore/multihash"
	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/bsconfig"
	"xdao.co/dagstore/storage/bsregistry"

	_ "xdao.co/dagstore/storage/grpcbs"
	_ "xdao.co/dagstore/storage/ipfs"
	_ "xdao.co/dagstore/storage/leveldb"
	_ "xdao.co/dagstore/storage/localfs"
)

const (
	repoEnv         = "IPFS_PATH"
	defaultRepoName = ".dagstore"
)

// env is the per-invocation state shared by every subcommand.
type env struct {
	logLevel         string
	logColorDisabled bool

	repo       string
	backend    string
	configPath string
	cidBase    string

	backendFlags *flag.FlagSet

	bs      storage.Blockstore
	closeFn func() error
}

// NewRootCommand builds the dag command tree.
func NewRootCommand() *cobra.Command {
	e := &env{backendFlags: flag.NewFlagSet("backends", flag.ContinueOnError)}

	root := &cobra.Command{
		Use:           "dag",
		Short:         "Content-addressed Merkle-DAG object store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return e.initLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.logLevel, "log-level", logrus.InfoLevel.String(), "Log level")
	pf.BoolVar(&e.logColorDisabled, "log-color-disabled", false, "Force to disable colorful logs")
	pf.StringVar(&e.repo, "repo", "", "Repository directory (default $IPFS_PATH or ~/.dagstore)")
	pf.StringVar(&e.backend, "backend", "localfs", "Blockstore backend name")
	pf.StringVar(&e.configPath, "config", "", "JSON blockstore config; overrides --backend")
	pf.StringVar(&e.cidBase, "cid-base", "", "Multibase for printed CIDs (e.g. base32); forces CIDv1")

	bsregistry.RegisterFlags(e.backendFlags, bsregistry.UsageCLI)
	pf.AddGoFlagSet(e.backendFlags)

	root.AddCommand(
		newAddCommand(e),
		newCatCommand(e),
		newObjectCommand(e),
		newBlockCommand(e),
		newExportCommand(e),
		newImportCommand(e),
		newBackendsCommand(),
	)
	return root
}

// Execute is the command line entrypoint.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (e *env) initLog() error {
	formatter := logrus.TextFormatter{
		FullTimestamp: true,
	}
	if e.logColorDisabled {
		formatter.DisableColors = true
	} else {
		formatter.ForceColors = true
	}
	logrus.SetFormatter(&formatter)

	level, err := logrus.ParseLevel(e.logLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid --log-level %q", e.logLevel)
	}
	logrus.SetLevel(level)
	return nil
}

// repoPath resolves --repo, then $IPFS_PATH, then ~/.dagstore.
func (e *env) repoPath() (string, error) {
	if e.repo != "" {
		return e.repo, nil
	}
	if p := os.Getenv(repoEnv); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve repository path")
	}
	return filepath.Join(home, defaultRepoName), nil
}

// blockstore opens the configured store once per invocation.
func (e *env) blockstore() (storage.Blockstore, error) {
	if e.bs != nil {
		return e.bs, nil
	}

	var (
		bs      storage.Blockstore
		closeFn func() error
		err     error
	)
	if e.configPath != "" {
		cfg, lerr := bsconfig.LoadFile(e.configPath)
		if lerr != nil {
			return nil, errors.WithMessage(lerr, "load blockstore config")
		}
		bs, closeFn, err = cfg.Open(bsregistry.UsageCLI, "")
	} else {
		if err := e.applyRepoDefaults(); err != nil {
			return nil, err
		}
		bs, closeFn, err = bsregistry.Open(e.backend, bsregistry.UsageCLI)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "open %s blockstore", e.backend)
	}
	logrus.WithField("backend", e.backend).Debug("Blockstore opened")
	e.bs, e.closeFn = bs, closeFn
	return bs, nil
}

// applyRepoDefaults points local backends at the repository when their
// directory flag was left empty.
func (e *env) applyRepoDefaults() error {
	defaults := map[string]struct{ flag, sub string }{
		"localfs": {"localfs-dir", "blocks"},
		"leveldb": {"leveldb-dir", "datastore"},
	}
	d, ok := defaults[e.backend]
	if !ok {
		return nil
	}
	f := e.backendFlags.Lookup(d.flag)
	if f == nil || f.Value.String() != "" {
		return nil
	}
	repo, err := e.repoPath()
	if err != nil {
		return err
	}
	return e.backendFlags.Set(d.flag, filepath.Join(repo, d.sub))
}

func (e *env) dag() (*merkledag.DagService, error) {
	bs, err := e.blockstore()
	if err != nil {
		return nil, err
	}
	return merkledag.NewDagService(bs, 0), nil
}

func (e *env) close() {
	if e.closeFn != nil {
		if err := e.closeFn(); err != nil {
			logrus.WithError(err).Warn("Failed to close blockstore")
		}
	}
	e.bs, e.closeFn = nil, nil
}

// format renders h as a CID, in --cid-base if one was given.
func (e *env) format(h multihash.Multihash) (string, error) {
	c, err := cidutil.FromMultihash(h)
	if err != nil {
		return "", err
	}
	if e.cidBase == "" {
		return c.String(), nil
	}
	enc, err := multibase.EncoderByName(e.cidBase)
	if err != nil {
		return "", errors.Wrapf(err, "invalid --cid-base %q", e.cidBase)
	}
	return cid.NewCidV1(c.Type(), c.Hash()).Encode(enc), nil
}

func parseKey(s string) (multihash.Multihash, error) {
	h, err := cidutil.Parse(s)
	if err != nil {
		return nil, errors.WithMessage(err, "invalid key")
	}
	return h, nil
}

func newBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List linked blockstore backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printBackends(cmd.OutOrStdout())
			return nil
		},
	}
}

func printBackends(w io.Writer) {
	for _, b := range bsregistry.List(bsregistry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(w, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Description)
	}
}
