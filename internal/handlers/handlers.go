package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MediaKeeper/internal/config"
	"MediaKeeper/internal/keywrap"
	"MediaKeeper/internal/middleware"
	"MediaKeeper/internal/repo"
	"MediaKeeper/internal/service"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	mediaService *service.MediaService,
	shareService *service.ShareService,
	inboxRepo repo.InboxRepository,
	keyRepo repo.PublicKeyRepository,
	licenseRepo repo.LicenseRepository,
	logger *zap.SugaredLogger,
	cfg *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(cfg.AuthSecret))

	// Handlers
	userHandler := NewUserHandler(logger, cfg)
	mediaHandler := NewMediaHandler(mediaService, licenseRepo, logger, cfg)
	shareHandler := NewShareHandler(shareService, logger)
	inboxHandler := NewInboxHandler(inboxRepo, logger)
	keysHandler := NewKeysHandler(keyRepo, logger)

	// User routes
	r.Post("/api/user/login", userHandler.Login)

	// Media routes
	r.Post("/api/media/upload", mediaHandler.Upload)
	r.Get("/api/media/{id}", mediaHandler.Fetch)
	r.Post("/api/media/share", shareHandler.Share)

	// Re-wrap support: список собственных обёрнутых ключей и их замена
	r.Get("/api/media/wrapped-keys", mediaHandler.ListWrappedKeys)
	r.Post("/api/media/rewrap", mediaHandler.ReWrapKey)

	// Inbox routes
	r.Get("/api/inbox", inboxHandler.List)
	r.Post("/api/inbox/{id}/read", inboxHandler.MarkRead)
	r.Delete("/api/inbox/{id}", inboxHandler.Delete)

	// Public key directory
	r.Post("/api/keys/publish", keysHandler.Publish)
	r.Get("/api/keys/{userID}", keysHandler.Get)

	return &Handler{Router: r}
}

// writeStoreError переводит ошибку хранилища в HTTP-код. denyAsNotFound
// схлопывает «нет доступа» и «нет лицензии» в один 404, чтобы не
// раскрывать существование чужих лицензий.
func writeStoreError(w http.ResponseWriter, err error, denyAsNotFound bool) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrAccessDenied):
		if denyAsNotFound {
			http.Error(w, "not found", http.StatusNotFound)
		} else {
			http.Error(w, "access denied", http.StatusForbidden)
		}
	case errors.Is(err, repo.ErrDuplicateLicense):
		http.Error(w, "license id already taken", http.StatusConflict)
	case errors.Is(err, keywrap.ErrMalformedKey),
		errors.Is(err, service.ErrEmptyWrappedKey),
		errors.Is(err, service.ErrLicenseIDMismatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
