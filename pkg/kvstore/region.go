package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	natomic "github.com/natefinch/atomic"
)

// region.go implements the file-mapped region (§4.2): open-or-create a
// backing file, grow it to the configured size, and mmap it read/write.
// The mapping is the sole access path to persisted bytes.

// mappedRegion owns one mmap'd backing file for the lifetime of a shard.
type mappedRegion struct {
	file *os.File
	data []byte // mmap'd bytes, exactly totalSize long
}

// openRegion opens (creating if necessary) the file at path and maps exactly
// totalSize bytes of it read/write.
//
// A brand-new shard file is never grown in place: it is assembled at
// totalSize bytes in a temp file and swapped into path with a rename, so a
// concurrent opener of the same path never observes a partially-sized file.
// An existing shard file that is merely shorter than totalSize (a config
// bump mid-life) is grown in place via ftruncate, per §4.2's contract that
// "the returned region is exactly total_size bytes".
func openRegion(path string, totalSize int64) (*mappedRegion, bool, error) {
	created := false

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, false, fmt.Errorf("kvstore: stat shard file %s: %w", path, err)
		}

		if err := createSizedFile(path, totalSize); err != nil {
			return nil, false, err
		}

		created = true
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("kvstore: open shard file %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, false, fmt.Errorf("kvstore: stat shard file %s: %w", path, err)
	}

	if info.Size() < totalSize {
		if err := f.Truncate(totalSize); err != nil {
			_ = f.Close()

			return nil, false, fmt.Errorf("kvstore: grow shard file %s to %d bytes: %w", path, totalSize, err)
		}
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(totalSize), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		_ = f.Close()

		return nil, false, fmt.Errorf("kvstore: mmap shard file %s: %w", path, err)
	}

	return &mappedRegion{file: f, data: data}, created, nil
}

// createSizedFile assembles a zero-filled file of exactly totalSize bytes in
// a temp file next to path, then atomically swaps it into place, so a
// concurrent reader of path never observes a partially-sized file.
func createSizedFile(path string, totalSize int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".kvstore-shard-*.tmp")
	if err != nil {
		return fmt.Errorf("kvstore: create temp shard file for %s: %w", path, err)
	}

	tmpPath := tmp.Name()

	if err := tmp.Truncate(totalSize); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return fmt.Errorf("kvstore: size temp shard file for %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("kvstore: close temp shard file for %s: %w", path, err)
	}

	if err := natomic.ReplaceFile(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("kvstore: publish shard file %s: %w", path, err)
	}

	return nil
}

// flush synchronously persists the mapped region and requests the OS to
// sync the underlying file (§4.2 "flush synchronously persists the mapping").
func (r *mappedRegion) flush() error {
	if err := syscall.Msync(r.data, syscall.MS_SYNC); err != nil {
		return fmt.Errorf("kvstore: msync: %w", err)
	}

	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("kvstore: fsync: %w", err)
	}

	return nil
}

// flushAsync requests persistence without waiting for it to complete.
// Errors are intentionally dropped: a later synchronous flush surfaces them
// (§4.2, §7 "I/O errors on asynchronous flushes are silently dropped").
func (r *mappedRegion) flushAsync() {
	_ = syscall.Msync(r.data, syscall.MS_ASYNC)
}

// close unmaps the region and closes the backing file descriptor.
func (r *mappedRegion) close() error {
	var err error
	if r.data != nil {
		if uerr := syscall.Munmap(r.data); uerr != nil {
			err = fmt.Errorf("kvstore: munmap: %w", uerr)
		}

		r.data = nil
	}

	if cerr := r.file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("kvstore: close shard file: %w", cerr)
	}

	return err
}
