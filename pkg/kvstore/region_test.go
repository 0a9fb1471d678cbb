package kvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_OpenRegion_Creates_File_Of_Exact_Size_When_Absent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shard_0.store")

	r, created, err := openRegion(path, 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.close() })

	require.True(t, created)
	require.Len(t, r.data, 4096)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(4096), info.Size())
}

func Test_OpenRegion_Reopens_Existing_File_Without_Recreating(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shard_0.store")

	r1, created, err := openRegion(path, 4096)
	require.NoError(t, err)
	require.True(t, created)

	copy(r1.data, []byte("marker"))
	require.NoError(t, r1.flush())
	require.NoError(t, r1.close())

	r2, created, err := openRegion(path, 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r2.close() })

	require.False(t, created)
	require.Equal(t, []byte("marker"), r2.data[:6])
}

func Test_OpenRegion_Grows_Undersized_Existing_File_In_Place(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shard_0.store")

	require.NoError(t, os.WriteFile(path, make([]byte, 1024), 0o644))

	r, created, err := openRegion(path, 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.close() })

	require.False(t, created)
	require.Len(t, r.data, 4096)
}

func Test_OpenRegion_Leaves_Only_The_Shard_File_After_Creation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "shard_0.store")

	r, _, err := openRegion(path, 8192)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.close() })

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "shard_0.store", entries[0].Name())
}

func Test_MappedRegion_FlushAsync_Does_Not_Error_Or_Panic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shard_0.store")

	r, _, err := openRegion(path, 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.close() })

	r.flushAsync()
}
