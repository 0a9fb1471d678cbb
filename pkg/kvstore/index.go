package kvstore

import "crypto/sha256"

// index.go implements the in-memory digest -> file-offset index (§4.3).
// It is never persisted: it is rebuilt from the lookup table on every open
// (§4.6). Collisions on the 32-byte SHA-256 digest are treated as
// negligible and resolved by silent overwrite, equivalent to overwriting by
// key (§4.3).

// memIndex maps a key's SHA-256 digest to the absolute file offset of the
// lookup entry that currently owns it.
type memIndex struct {
	entries map[[digestSize]byte]uint64
}

// newMemIndex returns an empty index sized for an expected entry count.
func newMemIndex(sizeHint int) *memIndex {
	return &memIndex{entries: make(map[[digestSize]byte]uint64, sizeHint)}
}

// digestOf computes the SHA-256 digest of raw key bytes.
func digestOf(key []byte) [digestSize]byte {
	return sha256.Sum256(key)
}

// insert records that digest now resolves to the entry at offset,
// overwriting any prior mapping for the same digest.
func (idx *memIndex) insert(digest [digestSize]byte, offset uint64) {
	idx.entries[digest] = offset
}

// lookup computes the digest of key and returns the offset of its owning
// lookup entry, if any.
func (idx *memIndex) lookup(key []byte) (uint64, bool) {
	offset, ok := idx.entries[digestOf(key)]

	return offset, ok
}

// remove deletes key's digest from the index, if present.
func (idx *memIndex) remove(key []byte) {
	delete(idx.entries, digestOf(key))
}

// len returns the number of digests currently tracked (== number of live,
// reachable keys, not the lookup-table high-water mark).
func (idx *memIndex) len() int {
	return len(idx.entries)
}
