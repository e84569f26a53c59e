package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MediaKeeper/internal/model"
)

// хелпер: лицензия с ключом владельца
func mkLicense(mediaHash, owner string) *model.MediaLicense {
	id := model.LicenseID(mediaHash, owner)
	return &model.MediaLicense{
		ID:          id,
		OwnerUserID: owner,
		MediaBlobID: uuid.NewString(),
		MediaHash:   mediaHash,
		MimeType:    "video/mp4",
		Keys: []model.LicenseKey{
			{LicenseID: id, UserID: owner, WrappedKey: "eyJ3cmFwIjoib3duZXIifQ==", WrapMethod: "hybrid"},
		},
	}
}

func TestLicenseRepository_Create_Get(t *testing.T) {
	r := NewLicenseRepository(newTestDB(t))
	ctx := context.Background()

	lic := mkLicense("hash-a", "alice")
	require.NoError(t, r.Create(ctx, lic))

	got, err := r.Get(ctx, lic.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerUserID)
	assert.Len(t, got.Keys, 1)
	assert.Equal(t, "alice", got.Keys[0].UserID)

	_, err = r.Get(ctx, "no-such-license")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLicenseRepository_Create_IdempotentSameOwner(t *testing.T) {
	r := NewLicenseRepository(newTestDB(t))
	ctx := context.Background()

	lic := mkLicense("hash-b", "alice")
	require.NoError(t, r.Create(ctx, lic))

	// повторная загрузка тем же владельцем — no-op, а не ошибка
	again := mkLicense("hash-b", "alice")
	require.NoError(t, r.Create(ctx, again))

	got, err := r.Get(ctx, lic.ID)
	require.NoError(t, err)
	assert.Len(t, got.Keys, 1)
}

func TestLicenseRepository_Create_DuplicateDifferentOwner(t *testing.T) {
	r := NewLicenseRepository(newTestDB(t))
	ctx := context.Background()

	lic := mkLicense("hash-c", "alice")
	require.NoError(t, r.Create(ctx, lic))

	// ID детерминирован от (hash, owner): коллизия под чужим владельцем
	// возможна только при подделке ID, и это конфликт
	forged := mkLicense("hash-c", "alice")
	forged.OwnerUserID = "mallory"
	forged.Keys = nil
	err := r.Create(ctx, forged)
	assert.ErrorIs(t, err, ErrDuplicateLicense)
}

func TestLicenseRepository_AddWrappedKey(t *testing.T) {
	r := NewLicenseRepository(newTestDB(t))
	ctx := context.Background()

	lic := mkLicense("hash-d", "alice")
	require.NoError(t, r.Create(ctx, lic))

	key := model.LicenseKey{LicenseID: lic.ID, UserID: "bob", WrappedKey: "d3JhcC1ib2I=", WrapMethod: "hybrid", PublicKeyID: "pk-1"}
	require.NoError(t, r.AddWrappedKey(ctx, key))

	got, err := r.GetWrappedKey(ctx, lic.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "d3JhcC1ib2I=", got.WrappedKey)
	assert.Equal(t, "pk-1", got.PublicKeyID)

	// upsert: повторная запись перезаписывает, не плодит строк
	key.WrappedKey = "bmV3LXdyYXA="
	key.PublicKeyID = "pk-2"
	require.NoError(t, r.AddWrappedKey(ctx, key))

	got, err = r.GetWrappedKey(ctx, lic.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bmV3LXdyYXA=", got.WrappedKey)
	assert.Equal(t, "pk-2", got.PublicKeyID)

	full, err := r.Get(ctx, lic.ID)
	require.NoError(t, err)
	assert.Len(t, full.Keys, 2) // alice + bob
}

func TestLicenseRepository_AddWrappedKey_LicenseMissing(t *testing.T) {
	r := NewLicenseRepository(newTestDB(t))
	err := r.AddWrappedKey(context.Background(), model.LicenseKey{
		LicenseID: "ghost", UserID: "bob", WrappedKey: "eA==",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLicenseRepository_GetWrappedKey_DeniedIndistinguishable(t *testing.T) {
	r := NewLicenseRepository(newTestDB(t))
	ctx := context.Background()

	lic := mkLicense("hash-e", "alice")
	require.NoError(t, r.Create(ctx, lic))

	// нет записи получателя и нет самой лицензии — один и тот же отказ
	_, err := r.GetWrappedKey(ctx, lic.ID, "bob")
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = r.GetWrappedKey(ctx, "no-such-license", "bob")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestLicenseRepository_AddWrappedKeyAndNotify(t *testing.T) {
	db := newTestDB(t)
	r := NewLicenseRepository(db)
	inbox := NewInboxRepository(db)
	ctx := context.Background()

	lic := mkLicense("hash-f", "alice")
	require.NoError(t, r.Create(ctx, lic))

	key := model.LicenseKey{LicenseID: lic.ID, UserID: "bob", WrappedKey: "d3JhcA==", WrapMethod: "hybrid"}
	entry := &model.InboxEntry{
		ID: uuid.NewString(), UserID: "bob", LicenseID: lic.ID,
		SharedBy: "alice", Message: "enjoy", Status: model.InboxUnread,
	}
	require.NoError(t, r.AddWrappedKeyAndNotify(ctx, key, entry))

	got, err := r.GetWrappedKey(ctx, lic.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "d3JhcA==", got.WrappedKey)

	list, err := inbox.ListForUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, lic.ID, list[0].LicenseID)
	assert.Equal(t, model.InboxUnread, list[0].Status)

	// лицензии нет — транзакция не оставляет ни ключа, ни уведомления
	err = r.AddWrappedKeyAndNotify(ctx, model.LicenseKey{
		LicenseID: "ghost", UserID: "carol", WrappedKey: "eA==",
	}, &model.InboxEntry{ID: uuid.NewString(), UserID: "carol", LicenseID: "ghost", SharedBy: "alice"})
	assert.ErrorIs(t, err, ErrNotFound)

	carolList, err := inbox.ListForUser(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, carolList)
}

func TestLicenseRepository_ListByOwner_ListKeysByUser(t *testing.T) {
	r := NewLicenseRepository(newTestDB(t))
	ctx := context.Background()

	a1 := mkLicense("hash-g1", "alice")
	a2 := mkLicense("hash-g2", "alice")
	b1 := mkLicense("hash-g3", "bob")
	require.NoError(t, r.Create(ctx, a1))
	require.NoError(t, r.Create(ctx, a2))
	require.NoError(t, r.Create(ctx, b1))

	// bob — получатель одной из лицензий alice
	require.NoError(t, r.AddWrappedKey(ctx, model.LicenseKey{
		LicenseID: a1.ID, UserID: "bob", WrappedKey: "d3JhcA==", WrapMethod: "hybrid",
	}))

	owned, err := r.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	bobKeys, err := r.ListKeysByUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobKeys, 2) // своя лицензия + доступ к a1
	ids := []string{bobKeys[0].LicenseID, bobKeys[1].LicenseID}
	assert.Contains(t, ids, a1.ID)
	assert.Contains(t, ids, b1.ID)
}
