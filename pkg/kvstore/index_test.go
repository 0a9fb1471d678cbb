package kvstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_MemIndex_Lookup_Misses_On_Empty_Index(t *testing.T) {
	t.Parallel()

	idx := newMemIndex(0)

	_, ok := idx.lookup([]byte("absent"))
	require.False(t, ok)
}

func Test_MemIndex_Insert_Then_Lookup_Finds_Offset(t *testing.T) {
	t.Parallel()

	idx := newMemIndex(0)
	idx.insert(digestOf([]byte("key-a")), 128)

	off, ok := idx.lookup([]byte("key-a"))
	require.True(t, ok)
	require.Equal(t, uint64(128), off)
}

func Test_MemIndex_Insert_Overwrites_Prior_Offset_For_Same_Digest(t *testing.T) {
	t.Parallel()

	idx := newMemIndex(0)
	digest := digestOf([]byte("key-a"))

	idx.insert(digest, 128)
	idx.insert(digest, 256)

	off, ok := idx.lookup([]byte("key-a"))
	require.True(t, ok)
	require.Equal(t, uint64(256), off)
}

func Test_MemIndex_Remove_Makes_Key_Unreachable(t *testing.T) {
	t.Parallel()

	idx := newMemIndex(0)
	idx.insert(digestOf([]byte("key-a")), 128)

	idx.remove([]byte("key-a"))

	_, ok := idx.lookup([]byte("key-a"))
	require.False(t, ok)
}

func Test_MemIndex_Len_Reflects_Live_Entries_Only(t *testing.T) {
	t.Parallel()

	idx := newMemIndex(0)
	idx.insert(digestOf([]byte("a")), 0)
	idx.insert(digestOf([]byte("b")), entrySize)
	require.Equal(t, 2, idx.len())

	idx.remove([]byte("a"))
	require.Equal(t, 1, idx.len())
}
