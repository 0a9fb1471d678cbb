package kvstore

// On-disk layout constants (§6 of the design).
//
// These are fixed by the wire format: changing them changes the file
// format and is not backward compatible with existing shard files.
const (
	// MaxKeySize is the largest key accepted by Put (§3, "size_key <= MAX_KEY").
	MaxKeySize = 1024

	// headerSize is the size in bytes of the shard header (5 * u64).
	headerSize = 40

	// digestSize is the size of the SHA-256 digest stored in each entry.
	digestSize = 32

	// entrySize is the size in bytes of one lookup entry ("E").
	//
	// Layout: hash_key(32) + size_key(8) + key(1024) + data_offset(8) +
	// size(8) + state(1) + padding(7) = 1088.
	entrySize = digestSize + 8 + MaxKeySize + 8 + 8 + 1 + 7

	// defaultReservedLookup is the default size in bytes set aside for the
	// lookup table when a shard is created. It bounds how many lookup
	// entries a shard can ever hold: reservedLookup / entrySize. It must
	// leave room for the data region within whatever total_size Open is
	// given; Open rejects a shard size too small to hold it. Callers
	// needing a different bound, in either direction, pass
	// WithReservedLookupBytes to Open.
	defaultReservedLookup = 512 * entrySize // 512 entries, ~544KiB
)

// Entry state tags (§3 "Lookup entry", state byte).
const (
	stateLive       byte = 0
	stateTombstoned byte = 1
)
