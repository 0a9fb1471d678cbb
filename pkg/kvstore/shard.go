package kvstore

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// shard.go implements the unit of concurrency and storage (§4.4): one mapped
// region, one header mirrored both in memory and at file offset 0, and one
// in-memory digest index. Mutating operations require the writer lock;
// reads require the reader lock (§5).
//
// Design note (see DESIGN.md "borrowed views"): Get could return a view
// borrowed from the mapped region for the lifetime of the reader lock, but
// Go has no lifetime tracking to enforce that a caller releases the lock
// before touching an escaped slice, so this implementation returns a copy
// instead.
type shard struct {
	mu sync.RWMutex

	id     int
	path   string
	region *mappedRegion
	hdr    header
	idx    *memIndex

	reservedLookup uint64 // bytes set aside for the lookup table at creation

	logger  *zap.Logger
	metrics metricsSink
}

// openShard opens or creates the shard file at path, sized totalSize bytes,
// and rebuilds its in-memory index per §4.6.
func openShard(id int, path string, totalSize uint64, reservedLookup uint64, logger *zap.Logger, metrics metricsSink) (*shard, error) {
	region, created, err := openRegion(path, int64(totalSize))
	if err != nil {
		return nil, err
	}

	s := &shard{
		id:             id,
		path:           path,
		region:         region,
		reservedLookup: reservedLookup,
		logger:         logger,
		metrics:        metrics,
	}

	if created {
		s.hdr = header{
			totalSize:   totalSize,
			keys:        0,
			lookupStart: headerSize,
			startData:   headerSize + reservedLookup,
			offsetFree:  headerSize + reservedLookup,
		}

		if err := s.hdr.validate(int64(totalSize)); err != nil {
			_ = region.close()

			return nil, fmt.Errorf("kvstore: shard %d: %w", id, err)
		}

		putHeader(region.data, s.hdr)

		if err := region.flush(); err != nil {
			_ = region.close()

			return nil, fmt.Errorf("kvstore: shard %d: initialize header: %w", id, err)
		}

		s.idx = newMemIndex(0)
		logger.Debug("shard created", zap.Int("shard", id), zap.String("path", path), zap.Uint64("total_size", totalSize))

		return s, nil
	}

	s.hdr = decodeHeader(region.data[:headerSize])

	if err := s.hdr.validate(int64(totalSize)); err != nil {
		_ = region.close()

		return nil, fmt.Errorf("kvstore: shard %d: %w", id, err)
	}

	idx, err := rebuildIndex(s, logger)
	if err != nil {
		_ = region.close()

		return nil, fmt.Errorf("kvstore: shard %d: recover index: %w", id, err)
	}

	s.idx = idx

	logger.Debug("shard recovered", zap.Int("shard", id), zap.String("path", path), zap.Uint64("keys", s.hdr.keys), zap.Int("live_keys", idx.len()))

	return s, nil
}

// entryOffset returns the absolute file offset of the n-th lookup entry.
func (s *shard) entryOffset(n uint64) uint64 {
	return s.hdr.lookupStart + n*entrySize
}

// put implements §4.4 "put". Caller must hold s.mu (writer lock).
func (s *shard) put(key, value []byte) error {
	if len(key) > MaxKeySize {
		return fmt.Errorf("kvstore: key length %d exceeds %d: %w", len(key), MaxKeySize, ErrInvalidInput)
	}

	valueLen := uint64(len(value))

	if s.hdr.offsetFree+valueLen > s.hdr.totalSize {
		return fmt.Errorf("kvstore: shard %d: value would overflow data region: %w", s.id, ErrOutOfSpace)
	}

	if s.hdr.lookupStart+(s.hdr.keys+1)*entrySize > s.hdr.startData {
		return fmt.Errorf("kvstore: shard %d: lookup table full: %w", s.id, ErrOutOfSpace)
	}

	digest := digestOf(key)

	// 1. Write value payload.
	dataOffset := s.hdr.offsetFree
	copy(s.region.data[dataOffset:dataOffset+valueLen], value)

	// 2. Write lookup entry.
	entryOff := s.entryOffset(s.hdr.keys)

	var e lookupEntry
	e.hashKey = digest
	e.sizeKey = uint64(len(key))
	copy(e.key[:], key)
	e.dataOffset = dataOffset
	e.size = valueLen
	e.state = stateLive

	putEntry(s.region.data[entryOff:entryOff+entrySize], e)

	// 3. Update header.
	s.hdr.offsetFree += valueLen
	s.hdr.keys++
	putHeader(s.region.data[:headerSize], s.hdr)

	// 4. Update in-memory index (overwrites any prior offset for this digest).
	s.idx.insert(digest, entryOff)

	// 5. Asynchronous flush; errors surface later via a synchronous Flush.
	s.region.flushAsync()

	s.metrics.incPut(s.id)
	s.metrics.setKeys(s.id, s.hdr.keys)
	s.metrics.setOffsetFree(s.id, s.hdr.offsetFree)

	return nil
}

// get implements §4.4 "get". Caller must hold s.mu (reader lock, or writer
// lock while mutating). Returns a copy of the value (see the design note on
// the shard type).
func (s *shard) get(key []byte) ([]byte, bool) {
	entryOff, ok := s.idx.lookup(key)
	if !ok {
		s.metrics.incMiss(s.id)

		return nil, false
	}

	e := decodeEntry(s.region.data[entryOff : entryOff+entrySize])
	if e.state != stateLive {
		s.metrics.incMiss(s.id)

		return nil, false
	}

	value := make([]byte, e.size)
	copy(value, s.region.data[e.dataOffset:e.dataOffset+e.size])

	s.metrics.incHit(s.id)

	return value, true
}

// delete implements §4.4 "delete". Caller must hold s.mu (writer lock).
func (s *shard) delete(key []byte) error {
	entryOff, ok := s.idx.lookup(key)
	if !ok {
		return fmt.Errorf("kvstore: shard %d: %w", s.id, ErrNotFound)
	}

	e := decodeEntry(s.region.data[entryOff : entryOff+entrySize])
	e.state = stateTombstoned
	putEntry(s.region.data[entryOff:entryOff+entrySize], e)

	// header.keys is the lookup-table high-water mark; it is not decremented.
	s.idx.remove(key)

	s.region.flushAsync()

	s.metrics.incDelete(s.id)

	return nil
}

// flush implements §4.4 "flush". Caller must hold s.mu (writer lock, by
// convention shared with put/delete so a flush observes a consistent view).
func (s *shard) flush() error {
	if err := s.region.flush(); err != nil {
		s.metrics.incFlushError(s.id)

		return fmt.Errorf("kvstore: shard %d: %w", s.id, err)
	}

	return nil
}

// liveCount returns the number of keys currently reachable through the
// in-memory index (i.e. not the lookup-table high-water mark).
func (s *shard) liveCount() int {
	return s.idx.len()
}

// close unmaps and releases the shard's backing file.
func (s *shard) close() error {
	return s.region.close()
}
