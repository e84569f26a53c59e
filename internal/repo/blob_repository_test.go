package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MediaKeeper/internal/model"
)

func TestBlobRepository_CreateIfAbsent_Get(t *testing.T) {
	r := NewBlobRepository(newTestDB(t))
	ctx := context.Background()

	blob := &model.MediaBlob{
		ID:         "b1",
		Ciphertext: []byte{1, 2, 3},
		IV:         []byte{9, 9, 9},
		MimeType:   "audio/ogg",
		ByteLength: 3,
	}
	created, err := r.CreateIfAbsent(ctx, blob)
	require.NoError(t, err)
	assert.True(t, created)

	// повтор — no-op, существующая запись не перетирается
	dup := &model.MediaBlob{ID: "b1", Ciphertext: []byte{7}, IV: []byte{7}, ByteLength: 1}
	created, err = r.CreateIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := r.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Ciphertext)
	assert.Equal(t, int64(3), got.ByteLength)
}

func TestBlobRepository_Get_NotFound(t *testing.T) {
	r := NewBlobRepository(newTestDB(t))
	_, err := r.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlobRepository_Delete(t *testing.T) {
	r := NewBlobRepository(newTestDB(t))
	ctx := context.Background()

	_, err := r.CreateIfAbsent(ctx, &model.MediaBlob{ID: "b2", Ciphertext: []byte{1}, IV: []byte{2}, ByteLength: 1})
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, "b2"))
	_, err = r.Get(ctx, "b2")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, r.Delete(ctx, "b2"), ErrNotFound)
}
