package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"MediaKeeper/internal/middleware"
	"MediaKeeper/internal/service"
)

// ShareHandler — граница шаринга.
type ShareHandler struct {
	ShareService *service.ShareService
	Logger       *zap.SugaredLogger
}

// NewShareHandler создаёт хендлер share
func NewShareHandler(shareService *service.ShareService, logger *zap.SugaredLogger) *ShareHandler {
	return &ShareHandler{ShareService: shareService, Logger: logger}
}

// ShareRequest — вход границы шаринга.
type ShareRequest struct {
	LicenseID       string `json:"license_id"`
	RecipientUserID string `json:"recipient_user_id"`
	WrappedKey      string `json:"wrapped_key"`
	PublicKeyID     string `json:"recipient_public_key_id,omitempty"`
	Message         string `json:"message,omitempty"`
}

// Share выдаёт доступ получателю: ключ уже обёрнут клиентом.
func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Share: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.LicenseID == "" || req.RecipientUserID == "" {
		http.Error(w, "missing license_id or recipient_user_id", http.StatusBadRequest)
		return
	}

	entry, err := h.ShareService.Share(r.Context(), userID, service.ShareRequest{
		LicenseID:       req.LicenseID,
		RecipientUserID: req.RecipientUserID,
		WrappedKey:      req.WrappedKey,
		PublicKeyID:     req.PublicKeyID,
		Message:         req.Message,
	})
	if err != nil {
		h.Logger.Warnw("Share: service error", "user_id", userID, "license_id", req.LicenseID, "error", err)
		writeStoreError(w, err, false)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"inbox_entry_id": entry.ID})
}
