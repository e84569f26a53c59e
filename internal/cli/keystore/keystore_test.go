package keystore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadOrCreate_Persists(t *testing.T) {
	s := Store{Dir: t.TempDir()}

	_, err := s.Load("alice")
	assert.ErrorIs(t, err, ErrNoKeypair)

	kp, created, err := s.LoadOrCreate("alice")
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, kp.Current)

	// повторный вызов возвращает ту же пару с диска
	again, created, err := s.LoadOrCreate("alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, kp.Current.KeyID, again.Current.KeyID)

	// у другого пользователя своя пара
	other, created, err := s.LoadOrCreate("bob")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, kp.Current.KeyID, other.Current.KeyID)
}

func TestStore_Rotate(t *testing.T) {
	s := Store{Dir: t.TempDir()}

	// ротация без пары невозможна
	_, _, err := s.Rotate("alice")
	assert.ErrorIs(t, err, ErrNoKeypair)

	orig, _, err := s.LoadOrCreate("alice")
	require.NoError(t, err)

	old, fresh, err := s.Rotate("alice")
	require.NoError(t, err)
	assert.Equal(t, orig.Current.KeyID, old.Current.KeyID)
	require.NotNil(t, fresh.Previous)
	assert.Equal(t, orig.Current.KeyID, fresh.Previous.KeyID)
	assert.NotEqual(t, orig.Current.KeyID, fresh.Current.KeyID)

	// на диске лежит уже новая пара
	loaded, err := s.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, fresh.Current.KeyID, loaded.Current.KeyID)
}

func TestStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	s := Store{Dir: t.TempDir()}
	_, _, err := s.LoadOrCreate("alice")
	require.NoError(t, err)

	// приватный материал не должен быть читаем группой и остальными
	info, err := os.Stat(filepath.Join(s.Dir, "users", "alice", "hybrid_keypair.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_CorruptFile(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	p := filepath.Join(s.Dir, "users", "alice")
	require.NoError(t, os.MkdirAll(p, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(p, "hybrid_keypair.json"), []byte("{oops"), 0o600))

	_, err := s.Load("alice")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoKeypair)
}
