package kvstore

import "errors"

// Error classification codes (§7).
//
// Callers classify errors with errors.Is; this package wraps these with
// fmt.Errorf("...: %w", ...) for context where useful.
var (
	// ErrInvalidInput is returned when a key exceeds MaxKeySize, and by Open
	// for a shard count that is not a power of two or a shard size too small
	// for the header plus the reserved lookup table.
	ErrInvalidInput = errors.New("kvstore: invalid input")

	// ErrOutOfSpace is returned when a shard's data region or lookup table
	// would overflow its fixed total_size.
	ErrOutOfSpace = errors.New("kvstore: out of space")

	// ErrNotFound is returned by Delete when the key is absent.
	ErrNotFound = errors.New("kvstore: not found")

	// ErrClosed is returned by Put, Get, Delete and Flush on a Store after
	// Close.
	ErrClosed = errors.New("kvstore: closed")

	// ErrCorrupt is returned by Open when a shard's header fails its
	// ordering invariant (lookup_start <= start_data <= offset_free <=
	// total_size) or disagrees with the size of its mapped file. A
	// corrupt lookup-entry state byte, by contrast, never reaches this:
	// recovery tolerates it locally by treating the entry as tombstoned
	// (§4.1).
	ErrCorrupt = errors.New("kvstore: corrupt")
)
