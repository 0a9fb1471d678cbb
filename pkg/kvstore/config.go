package kvstore

// config.go defines the functional options accepted by Open, mirroring
// Voskan-arena-cache's pkg/config.go: a private config struct filled in by
// defaultConfig and mutated by a list of Option values, so users only ever
// see the Option surface and forward compatibility is preserved.

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option customizes a Store opened with Open.
type Option func(*config)

type config struct {
	reservedLookupBytes uint64
	logger              *zap.Logger
	registry            *prometheus.Registry
}

func defaultConfig() *config {
	return &config{
		reservedLookupBytes: defaultReservedLookup,
		logger:              zap.NewNop(),
		registry:            nil, // metrics are opt-in
	}
}

// WithReservedLookupBytes overrides the number of bytes set aside for each
// shard's lookup table at creation time (RESERVED_LOOKUP in §4.6). It has no
// effect when opening an existing shard file, whose layout is already fixed.
func WithReservedLookupBytes(n uint64) Option {
	return func(c *config) {
		if n > 0 {
			c.reservedLookupBytes = n
		}
	}
}

// WithLogger plugs an external zap.Logger. The store never logs on the hot
// path (put/get/delete); only store open/close, shard creation and
// recovery, and recovery warnings are emitted. Flush errors are returned to
// the caller, not logged.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (the default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) {
		c.registry = reg
	}
}

func applyOptions(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.reservedLookupBytes < entrySize {
		return nil, errors.New("kvstore: reserved lookup bytes must hold at least one entry")
	}

	return cfg, nil
}
