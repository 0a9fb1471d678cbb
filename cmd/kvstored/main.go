// Command kvstored runs the sharded key/value store behind the §6 wire
// protocol, bound to the fixed address 127.0.0.1:6969.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/joshuapassos/shardkv/internal/kvserver"
	"github.com/joshuapassos/shardkv/pkg/kvstore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "kvstored: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("kvstored", flag.ContinueOnError)

	dataDir := flagSet.String("data-dir", ".data", "directory holding shard files")
	shardSizeMB := flagSet.Int64("shard-size-mb", 64, "size in MiB of each shard's mapped region")
	numShards := flagSet.Int("shards", 16, "number of shards; must be a power of two")
	metricsAddr := flagSet.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. 127.0.0.1:9090)")
	verbose := flagSet.BoolP("verbose", "v", false, "enable debug logging")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	opts := []kvstore.Option{kvstore.WithLogger(logger)}

	var registry *prometheus.Registry
	if *metricsAddr != "" {
		registry = prometheus.NewRegistry()
		opts = append(opts, kvstore.WithMetrics(registry))
	}

	st, err := kvstore.Open(*dataDir, uint64(*shardSizeMB)*1024*1024, *numShards, opts...)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if registry != nil {
		go serveMetrics(*metricsAddr, registry, logger)
	}

	srv := kvserver.New(st, logger)

	logger.Info("starting kvstored", zap.String("addr", "127.0.0.1:6969"), zap.String("data_dir", *dataDir), zap.Int("shards", *numShards))

	return srv.ListenAndServe(ctx)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}

	return cfg.Build()
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
