package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key, err := NewMediaKey()
	require.NoError(t, err)
	assert.Len(t, key, KeyLen)

	plain := []byte("frame data 0001")
	ct, nonce, err := Encrypt(plain, key)
	require.NoError(t, err)
	assert.NotEqual(t, plain, ct)

	got, err := Decrypt(ct, nonce, key)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestDecrypt_WrongKey(t *testing.T) {
	key, _ := NewMediaKey()
	other, _ := NewMediaKey()
	ct, nonce, err := Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	// AES-GCM аутентифицирует: чужой ключ даёт ошибку, а не мусор
	_, err = Decrypt(ct, nonce, other)
	assert.Error(t, err)

	_, err = Decrypt(ct, []byte("short"), key)
	assert.Error(t, err)
}

func TestLegacyWrap_RoundTrip(t *testing.T) {
	mediaKey, err := NewMediaKey()
	require.NoError(t, err)

	wrapped, err := LegacyWrap(mediaKey, "correct horse battery")
	require.NoError(t, err)
	// salt|nonce|ciphertext+tag
	assert.Greater(t, len(wrapped), legacySaltLen+12+KeyLen)

	got, err := LegacyUnwrap(wrapped, "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, mediaKey, got)
}

func TestLegacyUnwrap_WrongPassword(t *testing.T) {
	mediaKey, _ := NewMediaKey()
	wrapped, err := LegacyWrap(mediaKey, "right")
	require.NoError(t, err)

	_, err = LegacyUnwrap(wrapped, "wrong")
	assert.Error(t, err)
}

func TestLegacyUnwrap_TooShort(t *testing.T) {
	_, err := LegacyUnwrap([]byte{1, 2, 3}, "pw")
	assert.Error(t, err)
}

func TestZeroize(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zeroize(b)
	assert.True(t, bytes.Equal(b, make([]byte, 4)))
}
