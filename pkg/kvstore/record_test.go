package kvstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func Test_Header_Roundtrips_Through_Encode_Decode(t *testing.T) {
	t.Parallel()

	h := header{
		totalSize:   1 << 20,
		keys:        42,
		lookupStart: headerSize,
		startData:   headerSize + 64*entrySize,
		offsetFree:  headerSize + 64*entrySize + 128,
	}

	got := decodeHeader(encodeHeader(h))

	if diff := cmp.Diff(h, got, cmp.AllowUnexported(header{})); diff != "" {
		t.Fatalf("header round-trip mismatch (-want +got):\n%s", diff)
	}
}

func Test_Header_PutHeader_Matches_EncodeHeader(t *testing.T) {
	t.Parallel()

	h := header{totalSize: 100, keys: 1, lookupStart: 40, startData: 50, offsetFree: 60}

	buf := make([]byte, headerSize)
	putHeader(buf, h)

	require.Equal(t, encodeHeader(h), buf)
}

func Test_Entry_Roundtrips_Through_Encode_Decode(t *testing.T) {
	t.Parallel()

	var key [MaxKeySize]byte
	copy(key[:], "hello-world")

	e := lookupEntry{
		hashKey:    digestOf([]byte("hello-world")),
		sizeKey:    11,
		key:        key,
		dataOffset: 4096,
		size:       256,
		state:      stateLive,
	}

	got := decodeEntry(encodeEntry(e))

	if diff := cmp.Diff(e, got, cmp.AllowUnexported(lookupEntry{})); diff != "" {
		t.Fatalf("entry round-trip mismatch (-want +got):\n%s", diff)
	}
}

func Test_Entry_Decode_Tolerates_Unrecognized_State_Byte(t *testing.T) {
	t.Parallel()

	buf := make([]byte, entrySize)
	buf[entryOffState] = 0xFF // neither stateLive nor stateTombstoned

	got := decodeEntry(buf)

	require.Equal(t, stateTombstoned, got.state)
}

func Test_Header_Validate_Rejects_Size_Mismatch(t *testing.T) {
	t.Parallel()

	h := header{totalSize: 100, keys: 0, lookupStart: 40, startData: 40, offsetFree: 40}

	err := h.validate(200)

	require.ErrorIs(t, err, ErrCorrupt)
}

func Test_Header_Validate_Rejects_Broken_Ordering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		h    header
	}{
		{"start_data_before_lookup_start", header{totalSize: 100, lookupStart: 50, startData: 40, offsetFree: 40}},
		{"offset_free_before_start_data", header{totalSize: 100, lookupStart: 40, startData: 50, offsetFree: 45}},
		{"offset_free_past_total_size", header{totalSize: 100, lookupStart: 40, startData: 40, offsetFree: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.h.validate(int64(tt.h.totalSize))
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func Test_Header_Validate_Accepts_WellFormed_Header(t *testing.T) {
	t.Parallel()

	h := header{totalSize: 100, lookupStart: 40, startData: 60, offsetFree: 80}

	require.NoError(t, h.validate(100))
}
