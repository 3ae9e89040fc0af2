package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"xdao.co/dagstore/storage"
	"xdao.co/dagstore/storage/bsconfig"
	"xdao.co/dagstore/storage/bsregistry"
	"xdao.co/dagstore/storage/grpcbs"

	_ "xdao.co/dagstore/storage/ipfs"
	_ "xdao.co/dagstore/storage/leveldb"
	_ "xdao.co/dagstore/storage/localfs"
)

func main() {
	fs := flag.NewFlagSet("dagd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "localfs", "Blockstore backend name")
	configPath := fs.String("config", "", "JSON blockstore config; overrides --backend")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	cache := fs.Bool("cache", false, "Front the store with a bloom filter and block cache (dagd must be the only writer)")
	cacheBlocks := fs.Int("cache-blocks", storage.DefaultCacheOptions().BlockCacheSize, "Blocks kept in memory when --cache is set")
	maxMsgBytes := fs.Int("max-msg-bytes", 0, "Max gRPC message size in bytes (send+recv); 0 uses grpc defaults")
	logLevel := fs.String("log-level", logrus.InfoLevel.String(), "Log level")

	bsregistry.RegisterFlags(fs, bsregistry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range bsregistry.List(bsregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.WithError(err).WithField("level", *logLevel).Fatal("Failed to parse log level")
	}
	logrus.SetLevel(level)

	var (
		bs      storage.Blockstore
		closeFn func() error
	)
	if *configPath != "" {
		cfg, err := bsconfig.LoadFile(*configPath)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to load blockstore config")
		}
		bs, closeFn, err = cfg.Open(bsregistry.UsageDaemon, "")
		if err != nil {
			logrus.WithError(err).Fatal("Failed to open blockstore")
		}
	} else {
		bs, closeFn, err = bsregistry.Open(*backend, bsregistry.UsageDaemon)
		if err != nil {
			logrus.WithError(err).WithField("backend", *backend).Fatal("Failed to open blockstore")
		}
	}
	if closeFn != nil {
		defer closeFn()
	}

	if *cache {
		opts := storage.DefaultCacheOptions()
		opts.BlockCacheSize = *cacheBlocks
		cached, err := storage.NewCached(bs, opts)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to build block cache")
		}
		bs = cached
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		logrus.WithError(err).WithField("listen", *listen).Fatal("Failed to listen")
	}
	defer lis.Close()

	var opts []grpc.ServerOption
	if *maxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(*maxMsgBytes), grpc.MaxSendMsgSize(*maxMsgBytes))
	}
	s := grpc.NewServer(opts...)
	grpcbs.RegisterBlockstoreServer(s, &grpcbs.Server{Store: bs})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logrus.WithField("signal", sig.String()).Info("Shutting down")
		s.GracefulStop()
	}()

	logrus.WithFields(logrus.Fields{
		"listen":  lis.Addr().String(),
		"backend": *backend,
		"cache":   *cache,
	}).Info("dagd listening")
	if err := s.Serve(lis); err != nil {
		logrus.WithError(err).Error("Server stopped")
		os.Exit(1)
	}
}
