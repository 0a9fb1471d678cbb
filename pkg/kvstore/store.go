package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// store.go implements §4.5: the shard router that fronts a fixed number of
// independently-locked shards behind a single Store handle. Shard selection
// is a non-cryptographic hash of the raw key, so routing never touches a
// shard's own lock or index.

// Store is a sharded, persistent key/value store. A Store is safe for
// concurrent use by multiple goroutines: operations on different shards
// proceed without contending on each other's locks.
type Store struct {
	dataDir string
	shards  []*shard
	mask    uint64 // len(shards) - 1; len(shards) is always a power of two
	metrics metricsSink
	logger  *zap.Logger

	closed atomic.Bool
}

// Open opens or creates a sharded store rooted at dataDir. numShards must be
// a power of two (§4.5, "shard_index = hash(key) & (N-1)"); shardSizeBytes is
// the fixed total_size of each shard's mapped region (§4.2).
func Open(dataDir string, shardSizeBytes uint64, numShards int, opts ...Option) (*Store, error) {
	if numShards <= 0 || numShards&(numShards-1) != 0 {
		return nil, fmt.Errorf("kvstore: num_shards must be a power of two, got %d: %w", numShards, ErrInvalidInput)
	}

	if shardSizeBytes == 0 {
		return nil, fmt.Errorf("kvstore: shard_size_bytes must be positive: %w", ErrInvalidInput)
	}

	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	if shardSizeBytes < uint64(headerSize)+cfg.reservedLookupBytes {
		return nil, fmt.Errorf("kvstore: shard_size_bytes %d too small to hold header (%d) plus reserved lookup (%d): %w",
			shardSizeBytes, headerSize, cfg.reservedLookupBytes, ErrInvalidInput)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("kvstore: create data dir %s: %w", dataDir, err)
	}

	metrics := newMetricsSink(cfg.registry)

	shards := make([]*shard, numShards)

	for i := range shards {
		path := filepath.Join(dataDir, fmt.Sprintf("shard_%d.store", i))

		s, err := openShard(i, path, shardSizeBytes, cfg.reservedLookupBytes, cfg.logger, metrics)
		if err != nil {
			for _, opened := range shards[:i] {
				_ = opened.close()
			}

			return nil, fmt.Errorf("kvstore: open shard %d: %w", i, err)
		}

		shards[i] = s
	}

	cfg.logger.Info("store opened", zap.String("data_dir", dataDir), zap.Int("num_shards", numShards), zap.Uint64("shard_size_bytes", shardSizeBytes))

	return &Store{
		dataDir: dataDir,
		shards:  shards,
		mask:    uint64(numShards) - 1,
		metrics: metrics,
		logger:  cfg.logger,
	}, nil
}

// shardFor selects the shard that owns key, per §4.5's
// shard_index = non_crypto_hash(key) & (N-1).
func (st *Store) shardFor(key []byte) *shard {
	return st.shards[xxhash.Sum64(key)&st.mask]
}

// Put writes key to value, overwriting any existing value for key.
func (st *Store) Put(key, value []byte) error {
	if st.closed.Load() {
		return ErrClosed
	}

	s := st.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.put(key, value)
}

// Get returns a copy of the value stored for key, and whether it was found.
func (st *Store) Get(key []byte) ([]byte, bool, error) {
	if st.closed.Load() {
		return nil, false, ErrClosed
	}

	s := st.shardFor(key)

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.get(key)

	return value, ok, nil
}

// Delete tombstones key. It returns ErrNotFound if key is not currently
// live; the lookup table's high-water mark is never decremented by a
// delete (§4.4).
func (st *Store) Delete(key []byte) error {
	if st.closed.Load() {
		return ErrClosed
	}

	s := st.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.delete(key)
}

// Flush synchronously persists every shard. It returns the first error
// encountered but still attempts every shard.
func (st *Store) Flush() error {
	if st.closed.Load() {
		return ErrClosed
	}

	var firstErr error

	for _, s := range st.shards {
		s.mu.Lock()
		err := s.flush()
		s.mu.Unlock()

		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Len returns the total number of live keys across all shards.
func (st *Store) Len() int {
	total := 0

	for _, s := range st.shards {
		s.mu.RLock()
		total += s.liveCount()
		s.mu.RUnlock()
	}

	return total
}

// ShardStats summarizes one shard's bookkeeping fields, used by the wire
// protocol's "status" command.
type ShardStats struct {
	Shard      int
	Keys       uint64 // lookup-table high-water mark, header.keys
	LiveKeys   int    // entries currently reachable through the in-memory index
	OffsetFree uint64 // next free byte in the data region
	TotalSize  uint64
}

// Stats returns per-shard bookkeeping for every shard, in shard-index order.
func (st *Store) Stats() []ShardStats {
	stats := make([]ShardStats, len(st.shards))

	for i, s := range st.shards {
		s.mu.RLock()
		stats[i] = ShardStats{
			Shard:      s.id,
			Keys:       s.hdr.keys,
			LiveKeys:   s.liveCount(),
			OffsetFree: s.hdr.offsetFree,
			TotalSize:  s.hdr.totalSize,
		}
		s.mu.RUnlock()
	}

	return stats
}

// Close flushes and unmaps every shard. Close is idempotent: calls after the
// first return nil. After Close, Put, Get, Delete and Flush return ErrClosed.
func (st *Store) Close() error {
	if !st.closed.CompareAndSwap(false, true) {
		return nil
	}

	var firstErr error

	for _, s := range st.shards {
		s.mu.Lock()

		if err := s.region.flush(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("kvstore: shard %d: flush on close: %w", s.id, err)
		}

		if err := s.close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("kvstore: shard %d: close: %w", s.id, err)
		}

		s.mu.Unlock()
	}

	st.logger.Info("store closed", zap.String("data_dir", st.dataDir))

	return firstErr
}
