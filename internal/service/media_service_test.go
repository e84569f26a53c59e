package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"MediaKeeper/internal/keywrap"
	"MediaKeeper/internal/model"
	"MediaKeeper/internal/repo"
)

// newTestDB — in-memory SQLite (modernc.org/sqlite), отдельная база на тест
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:svc_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	if err := db.AutoMigrate(
		&model.MediaBlob{}, &model.MediaLicense{}, &model.LicenseKey{},
		&model.InboxEntry{}, &model.PublicKeyRecord{},
	); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}
	return db
}

func legacyWrapped(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString([]byte("opaque legacy wrap"))
}

func uploadReq(t *testing.T, hash string) UploadRequest {
	t.Helper()
	return UploadRequest{
		Ciphertext: []byte{1, 2, 3, 4},
		IV:         []byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9},
		MediaHash:  hash,
		MimeType:   "video/mp4",
		Title:      "clip",
		WrappedKey: legacyWrapped(t),
	}
}

func TestMediaService_Upload_CreatesBlobLicenseAndOwnerKey(t *testing.T) {
	db := newTestDB(t)
	blobs := repo.NewBlobRepository(db)
	licenses := repo.NewLicenseRepository(db)
	s := NewMediaService(blobs, licenses)
	ctx := context.Background()

	res, err := s.Upload(ctx, "alice", uploadReq(t, "hash-1"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, model.LicenseID("hash-1", "alice"), res.LicenseID)

	lic, err := licenses.Get(ctx, res.LicenseID)
	require.NoError(t, err)
	assert.Equal(t, "alice", lic.OwnerUserID)
	require.Len(t, lic.Keys, 1)
	assert.Equal(t, "alice", lic.Keys[0].UserID)
	assert.Equal(t, "password", lic.Keys[0].WrapMethod)

	blob, err := blobs.Get(ctx, res.BlobID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), blob.ByteLength)
}

func TestMediaService_Upload_Idempotent(t *testing.T) {
	db := newTestDB(t)
	s := NewMediaService(repo.NewBlobRepository(db), repo.NewLicenseRepository(db))
	ctx := context.Background()

	first, err := s.Upload(ctx, "alice", uploadReq(t, "hash-2"))
	require.NoError(t, err)
	require.True(t, first.Created)

	// тот же контент, тот же владелец: существующая лицензия, без нового blob
	second, err := s.Upload(ctx, "alice", uploadReq(t, "hash-2"))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.LicenseID, second.LicenseID)
	assert.Equal(t, first.BlobID, second.BlobID)
}

func TestMediaService_Upload_Validation(t *testing.T) {
	db := newTestDB(t)
	s := NewMediaService(repo.NewBlobRepository(db), repo.NewLicenseRepository(db))
	ctx := context.Background()

	req := uploadReq(t, "hash-3")
	req.WrappedKey = ""
	_, err := s.Upload(ctx, "alice", req)
	assert.ErrorIs(t, err, ErrEmptyWrappedKey)

	req = uploadReq(t, "hash-3")
	req.WrappedKey = "{broken json"
	_, err = s.Upload(ctx, "alice", req)
	assert.ErrorIs(t, err, keywrap.ErrMalformedKey)

	// клиентский LicenseID обязан сойтись с вычисленным
	req = uploadReq(t, "hash-3")
	req.LicenseID = "bogus"
	_, err = s.Upload(ctx, "alice", req)
	assert.ErrorIs(t, err, ErrLicenseIDMismatch)

	req = uploadReq(t, "hash-3")
	req.LicenseID = model.LicenseID("hash-3", "alice")
	_, err = s.Upload(ctx, "alice", req)
	assert.NoError(t, err)
}

func TestMediaService_Fetch(t *testing.T) {
	db := newTestDB(t)
	s := NewMediaService(repo.NewBlobRepository(db), repo.NewLicenseRepository(db))
	ctx := context.Background()

	res, err := s.Upload(ctx, "alice", uploadReq(t, "hash-4"))
	require.NoError(t, err)

	got, err := s.Fetch(ctx, res.LicenseID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Ciphertext)
	assert.Equal(t, legacyWrapped(t), got.WrappedKey)
	assert.Equal(t, "video/mp4", got.MimeType)

	// не-получатель и несуществующая лицензия наружу неразличимы
	_, err = s.Fetch(ctx, res.LicenseID, "bob")
	assert.ErrorIs(t, err, repo.ErrAccessDenied)
	_, err = s.Fetch(ctx, "ghost", "alice")
	assert.ErrorIs(t, err, repo.ErrAccessDenied)
}

// Моки для проверки компенсации при неудачном создании лицензии
type mockBlobRepo struct{ mock.Mock }

func (m *mockBlobRepo) CreateIfAbsent(ctx context.Context, blob *model.MediaBlob) (bool, error) {
	args := m.Called(ctx, blob)
	return args.Bool(0), args.Error(1)
}
func (m *mockBlobRepo) Get(ctx context.Context, id string) (*model.MediaBlob, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*model.MediaBlob); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockBlobRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

var _ repo.BlobRepository = (*mockBlobRepo)(nil)

type mockLicenseRepo struct{ mock.Mock }

func (m *mockLicenseRepo) Create(ctx context.Context, lic *model.MediaLicense) error {
	return m.Called(ctx, lic).Error(0)
}
func (m *mockLicenseRepo) Get(ctx context.Context, id string) (*model.MediaLicense, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*model.MediaLicense); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockLicenseRepo) AddWrappedKey(ctx context.Context, key model.LicenseKey) error {
	return m.Called(ctx, key).Error(0)
}
func (m *mockLicenseRepo) AddWrappedKeyAndNotify(ctx context.Context, key model.LicenseKey, entry *model.InboxEntry) error {
	return m.Called(ctx, key, entry).Error(0)
}
func (m *mockLicenseRepo) GetWrappedKey(ctx context.Context, licenseID, userID string) (*model.LicenseKey, error) {
	args := m.Called(ctx, licenseID, userID)
	if v, ok := args.Get(0).(*model.LicenseKey); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockLicenseRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]model.MediaLicense, error) {
	args := m.Called(ctx, ownerUserID)
	if v, ok := args.Get(0).([]model.MediaLicense); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockLicenseRepo) ListKeysByUser(ctx context.Context, userID string) ([]model.LicenseKey, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]model.LicenseKey); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ repo.LicenseRepository = (*mockLicenseRepo)(nil)

func TestMediaService_Upload_CompensatesOrphanBlob(t *testing.T) {
	blobs := &mockBlobRepo{}
	licenses := &mockLicenseRepo{}
	s := NewMediaService(blobs, licenses)
	ctx := context.Background()

	licenses.On("Get", mock.Anything, mock.Anything).Return(nil, repo.ErrNotFound)
	blobs.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(true, nil)
	licenses.On("Create", mock.Anything, mock.Anything).Return(repo.ErrStorage)
	// blob не должен осиротеть после неудачного создания лицензии
	blobs.On("Delete", mock.Anything, mock.Anything).Return(nil)

	_, err := s.Upload(ctx, "alice", uploadReq(t, "hash-5"))
	assert.ErrorIs(t, err, repo.ErrStorage)
	blobs.AssertCalled(t, "Delete", mock.Anything, mock.Anything)
}
