package kvserver

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joshuapassos/shardkv/pkg/kvstore"
)

// fakeStore is an in-memory stand-in for *kvstore.Store so the wire
// protocol's dispatch logic can be tested without a real mmap-backed shard.
type fakeStore struct {
	data map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (f *fakeStore) Put(key, value []byte) error {
	f.data[string(key)] = append([]byte(nil), value...)

	return nil
}

func (f *fakeStore) Get(key []byte) ([]byte, bool, error) {
	v, ok := f.data[string(key)]

	return v, ok, nil
}

func (f *fakeStore) Delete(key []byte) error {
	if _, ok := f.data[string(key)]; !ok {
		return kvstore.ErrNotFound
	}

	delete(f.data, string(key))

	return nil
}

func (f *fakeStore) Len() int { return len(f.data) }

func (f *fakeStore) Stats() []kvstore.ShardStats {
	return []kvstore.ShardStats{{Shard: 0, Keys: uint64(len(f.data)), LiveKeys: len(f.data)}}
}

func Test_Dispatch_Write_Then_Read_Roundtrips(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	logger := zap.NewNop()

	resp := dispatch([]byte("write mykey|myvalue"), st, logger)
	require.Empty(t, resp)

	resp = dispatch([]byte("read mykey"), st, logger)
	require.Equal(t, []byte("myvalue"), resp)
}

func Test_Dispatch_Read_Missing_Key_Returns_Error(t *testing.T) {
	t.Parallel()

	st := newFakeStore()

	resp := dispatch([]byte("read nope"), st, zap.NewNop())
	require.Equal(t, errResponse, resp)
}

func Test_Dispatch_Delete_Then_Read_Misses(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	logger := zap.NewNop()

	dispatch([]byte("write k|v"), st, logger)
	resp := dispatch([]byte("delete k"), st, logger)
	require.Empty(t, resp)

	resp = dispatch([]byte("read k"), st, logger)
	require.Equal(t, errResponse, resp)
}

func Test_Dispatch_Delete_Absent_Key_Returns_Error(t *testing.T) {
	t.Parallel()

	st := newFakeStore()

	resp := dispatch([]byte("delete nope"), st, zap.NewNop())
	require.Equal(t, errResponse, resp)
}

func Test_Dispatch_Keys_Returns_Total_Live_Count(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	logger := zap.NewNop()

	dispatch([]byte("write a|1"), st, logger)
	dispatch([]byte("write b|2"), st, logger)

	resp := dispatch([]byte("keys"), st, logger)
	require.Equal(t, []byte("2"), resp)
}

func Test_Dispatch_Status_Reports_Per_Shard_Bookkeeping(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	logger := zap.NewNop()

	dispatch([]byte("write a|1"), st, logger)

	resp := dispatch([]byte("status"), st, logger)
	require.Contains(t, string(resp), "shard=0")
	require.Contains(t, string(resp), "keys=1")
}

func Test_Dispatch_Unrecognized_Command_Returns_Error(t *testing.T) {
	t.Parallel()

	resp := dispatch([]byte("frobnicate k"), newFakeStore(), zap.NewNop())
	require.Equal(t, errResponse, resp)
}

func Test_Dispatch_Write_Without_Pipe_Returns_Error(t *testing.T) {
	t.Parallel()

	resp := dispatch([]byte("write nopipehere"), newFakeStore(), zap.NewNop())
	require.Equal(t, errResponse, resp)
}
