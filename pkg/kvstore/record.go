package kvstore

import (
	"encoding/binary"
	"fmt"
)

// record.go implements the fixed-layout, little-endian codec for the shard
// header and lookup entries (§4.1, §6). Encoding and decoding never fail:
// callers are expected to pass exactly-sized buffers, and an unrecognized
// state byte decodes to tombstoned rather than erroring (§4.1).

// header mirrors the 40-byte on-disk shard header (§3 "Shard header").
type header struct {
	totalSize   uint64
	keys        uint64
	lookupStart uint64
	startData   uint64
	offsetFree  uint64
}

// encodeHeader serializes h into a fresh headerSize-byte buffer.
func encodeHeader(h header) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(buf[0:8], h.totalSize)
	binary.LittleEndian.PutUint64(buf[8:16], h.keys)
	binary.LittleEndian.PutUint64(buf[16:24], h.lookupStart)
	binary.LittleEndian.PutUint64(buf[24:32], h.startData)
	binary.LittleEndian.PutUint64(buf[32:40], h.offsetFree)

	return buf
}

// putHeader encodes h directly into dst, which must be at least headerSize
// bytes. Used to write the header into the mapped region without an
// intermediate allocation on the hot path.
func putHeader(dst []byte, h header) {
	_ = dst[headerSize-1] // bounds check hint
	binary.LittleEndian.PutUint64(dst[0:8], h.totalSize)
	binary.LittleEndian.PutUint64(dst[8:16], h.keys)
	binary.LittleEndian.PutUint64(dst[16:24], h.lookupStart)
	binary.LittleEndian.PutUint64(dst[24:32], h.startData)
	binary.LittleEndian.PutUint64(dst[32:40], h.offsetFree)
}

// decodeHeader deserializes a headerSize-byte buffer into a header.
func decodeHeader(buf []byte) header {
	_ = buf[headerSize-1]

	return header{
		totalSize:   binary.LittleEndian.Uint64(buf[0:8]),
		keys:        binary.LittleEndian.Uint64(buf[8:16]),
		lookupStart: binary.LittleEndian.Uint64(buf[16:24]),
		startData:   binary.LittleEndian.Uint64(buf[24:32]),
		offsetFree:  binary.LittleEndian.Uint64(buf[32:40]),
	}
}

// validate checks the ordering invariant a well-formed header must satisfy
// (§3: lookup_start <= start_data <= offset_free <= total_size) plus
// agreement with the region's actual mapped size. A header that fails this
// check is treated as an unrecoverable on-disk corruption rather than
// silently trusted, unlike an out-of-range lookup-entry state byte.
func (h header) validate(mappedSize int64) error {
	if h.totalSize != uint64(mappedSize) {
		return fmt.Errorf("total_size %d does not match mapped region %d: %w", h.totalSize, mappedSize, ErrCorrupt)
	}

	if !(h.lookupStart <= h.startData && h.startData <= h.offsetFree && h.offsetFree <= h.totalSize) {
		return fmt.Errorf("header ordering invariant violated (%+v): %w", h, ErrCorrupt)
	}

	return nil
}

// lookupEntry mirrors one fixed-size record of the lookup table
// (§3 "Lookup entry", §6 offsets).
type lookupEntry struct {
	hashKey    [digestSize]byte
	sizeKey    uint64
	key        [MaxKeySize]byte
	dataOffset uint64
	size       uint64
	state      byte
}

// Byte offsets within one entrySize-byte lookup entry record.
const (
	entryOffHashKey    = 0
	entryOffSizeKey    = entryOffHashKey + digestSize
	entryOffKey        = entryOffSizeKey + 8
	entryOffDataOffset = entryOffKey + MaxKeySize
	entryOffSize       = entryOffDataOffset + 8
	entryOffState      = entryOffSize + 8
)

// encodeEntry serializes e into a fresh entrySize-byte buffer.
func encodeEntry(e lookupEntry) []byte {
	buf := make([]byte, entrySize)
	putEntry(buf, e)

	return buf
}

// putEntry encodes e directly into dst, which must be at least entrySize
// bytes.
func putEntry(dst []byte, e lookupEntry) {
	_ = dst[entrySize-1]

	copy(dst[entryOffHashKey:entryOffHashKey+digestSize], e.hashKey[:])
	binary.LittleEndian.PutUint64(dst[entryOffSizeKey:], e.sizeKey)
	copy(dst[entryOffKey:entryOffKey+MaxKeySize], e.key[:])
	binary.LittleEndian.PutUint64(dst[entryOffDataOffset:], e.dataOffset)
	binary.LittleEndian.PutUint64(dst[entryOffSize:], e.size)
	dst[entryOffState] = e.state
	// Padding bytes (entryOffState+1 .. entrySize) are left as-is; callers
	// write into a region that was zero-initialized at shard creation.
}

// decodeEntry deserializes an entrySize-byte buffer into a lookupEntry.
//
// An out-of-range state byte is tolerated and decodes to stateTombstoned
// (§4.1): this keeps a single bit-flip in the state byte from invalidating
// an otherwise-readable entry during recovery.
func decodeEntry(buf []byte) lookupEntry {
	_ = buf[entrySize-1]

	var e lookupEntry

	copy(e.hashKey[:], buf[entryOffHashKey:entryOffHashKey+digestSize])
	e.sizeKey = binary.LittleEndian.Uint64(buf[entryOffSizeKey:])
	copy(e.key[:], buf[entryOffKey:entryOffKey+MaxKeySize])
	e.dataOffset = binary.LittleEndian.Uint64(buf[entryOffDataOffset:])
	e.size = binary.LittleEndian.Uint64(buf[entryOffSize:])

	switch buf[entryOffState] {
	case stateLive:
		e.state = stateLive
	default:
		e.state = stateTombstoned
	}

	return e
}
