package handlers_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"MediaKeeper/internal/config"
	"MediaKeeper/internal/handlers"
	"MediaKeeper/internal/middleware"
	"MediaKeeper/internal/model"
	"MediaKeeper/internal/repo"
	"MediaKeeper/internal/service"
)

const testSecret = "test-secret"

// testEnv — полный серверный стек поверх in-memory SQLite.
type testEnv struct {
	router http.Handler
	db     *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:h_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.MediaBlob{}, &model.MediaLicense{}, &model.LicenseKey{},
		&model.InboxEntry{}, &model.PublicKeyRecord{},
	))

	blobs := repo.NewBlobRepository(db)
	licenses := repo.NewLicenseRepository(db)
	inbox := repo.NewInboxRepository(db)
	keys := repo.NewPublicKeyRepository(db)

	cfg := &config.Config{AuthSecret: testSecret, BlobMaxSizeMB: 1, RewrapBatchSize: 10}
	logger := zap.NewNop().Sugar()
	h := handlers.NewHandler(
		service.NewMediaService(blobs, licenses),
		service.NewShareService(licenses),
		inbox, keys, licenses, logger, cfg,
	)
	return &testEnv{router: h.Router, db: db}
}

// authCookie выпускает валидный auth-cookie для пользователя.
func authCookie(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, middleware.SetLoginCookie(rec, userID, testSecret))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

// doJSON выполняет запрос с JSON-телом от имени пользователя (или анонимно).
func (e *testEnv) doJSON(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.AddCookie(authCookie(t, userID))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// uploadBody — валидный запрос загрузки с legacy-обёрткой.
func uploadBody(ciphertext []byte, mediaHash string) map[string]any {
	return map[string]any{
		"ciphertext":  b64(ciphertext),
		"iv":          b64([]byte("0123456789ab")),
		"media_hash":  mediaHash,
		"mime_type":   "video/mp4",
		"wrapped_key": b64([]byte("opaque legacy wrap")),
	}
}
