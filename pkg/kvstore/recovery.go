package kvstore

import "go.uber.org/zap"

// recovery.go implements §4.6: rebuilding the in-memory index from the
// persisted lookup table on open. The lookup table is the source of truth;
// the in-memory index is cache.

// rebuildIndex walks s.hdr.keys entries starting at s.hdr.lookupStart,
// inserting (hash_key, entry_off) for each live entry and skipping
// tombstones. The forward walk order means that if two live entries share a
// digest (a repeated Put), the later one — at the higher offset — wins,
// matching read-your-writes for repeated puts (§4.4 note).
func rebuildIndex(s *shard, logger *zap.Logger) (*memIndex, error) {
	idx := newMemIndex(int(s.hdr.keys))

	for n := uint64(0); n < s.hdr.keys; n++ {
		off := s.entryOffset(n)
		if off+entrySize > uint64(len(s.region.data)) {
			// A truncated or clearly corrupt file: the header claims more
			// entries than the mapped region can hold.
			logger.Warn("recovery: lookup table entry beyond mapped region, stopping scan",
				zap.Int("shard", s.id), zap.Uint64("entry_index", n))

			break
		}

		raw := s.region.data[off : off+entrySize]

		e := decodeEntry(raw) // tolerates a corrupt state byte (decodes to tombstoned)
		if raw[entryOffState] != stateLive && raw[entryOffState] != stateTombstoned {
			logger.Warn("recovery: unrecognized state byte, treating entry as tombstoned",
				zap.Int("shard", s.id), zap.Uint64("entry_index", n), zap.Uint8("state_byte", raw[entryOffState]))
		}

		if e.state != stateLive {
			continue
		}

		idx.insert(e.hashKey, off)
	}

	return idx, nil
}
