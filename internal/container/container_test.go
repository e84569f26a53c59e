package container

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		metadata map[string]any
		ctLen    int
	}{
		{"empty metadata, empty ciphertext", map[string]any{}, 0},
		{"flat metadata, one byte", map[string]any{"license_id": "abc", "mime_type": "video/mp4"}, 1},
		{"nested metadata", map[string]any{"key": map[string]any{"method": "hybrid", "ids": []any{"a", "b"}}}, 128},
		{"large ciphertext", map[string]any{"v": float64(1)}, 10 << 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ct := make([]byte, tc.ctLen)
			_, err := rand.Read(ct)
			require.NoError(t, err)

			buf, err := Encode(tc.metadata, ct)
			require.NoError(t, err)

			meta, gotCT, err := Decode(buf)
			require.NoError(t, err)
			assert.Equal(t, tc.metadata, meta)
			assert.True(t, bytes.Equal(ct, gotCT))
		})
	}
}

func TestDecode_ShortBuffer(t *testing.T) {
	for _, buf := range [][]byte{nil, {}, {0}, {0, 0, 0}} {
		_, _, err := Decode(buf)
		assert.ErrorIs(t, err, ErrMalformed)
	}
}

func TestDecode_LengthExceedsBuffer(t *testing.T) {
	buf := make([]byte, headerLen+2)
	binary.BigEndian.PutUint32(buf, 100)
	_, _, err := Decode(buf)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecode_InvalidMetadataJSON(t *testing.T) {
	meta := []byte("{not json")
	buf := make([]byte, headerLen+len(meta))
	binary.BigEndian.PutUint32(buf, uint32(len(meta)))
	copy(buf[headerLen:], meta)
	_, _, err := Decode(buf)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncode_CiphertextNotInspected(t *testing.T) {
	// шифртекст — непрозрачные байты: формат не накладывает на них ничего
	ct := []byte{0x00, 0xff, '{', '}', 0x7f}
	buf, err := Encode(map[string]any{}, ct)
	require.NoError(t, err)
	_, got, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, ct, got)
}
