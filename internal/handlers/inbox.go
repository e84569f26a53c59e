package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MediaKeeper/internal/middleware"
	"MediaKeeper/internal/repo"
)

// InboxHandler — чтение и read-переходы уведомлений о шаринге.
type InboxHandler struct {
	Inbox  repo.InboxRepository
	Logger *zap.SugaredLogger
}

// NewInboxHandler создаёт хендлер inbox
func NewInboxHandler(inbox repo.InboxRepository, logger *zap.SugaredLogger) *InboxHandler {
	return &InboxHandler{Inbox: inbox, Logger: logger}
}

// List отдаёт уведомления получателя, новые первыми.
func (h *InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	entries, err := h.Inbox.ListForUser(r.Context(), userID)
	if err != nil {
		h.Logger.Errorw("Inbox list: storage error", "user_id", userID, "error", err)
		writeStoreError(w, err, false)
		return
	}
	type entryDTO struct {
		ID        string `json:"id"`
		LicenseID string `json:"license_id"`
		SharedBy  string `json:"shared_by"`
		Message   string `json:"message,omitempty"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryDTO{
			ID:        e.ID,
			LicenseID: e.LicenseID,
			SharedBy:  e.SharedBy,
			Message:   e.Message,
			Status:    e.Status,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": out})
}

// MarkRead переводит запись в состояние read.
func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Inbox.MarkRead(r.Context(), id, userID); err != nil {
		writeStoreError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete убирает уведомление; доступ к лицензии при этом сохраняется.
func (h *InboxHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Inbox.Delete(r.Context(), id, userID); err != nil {
		writeStoreError(w, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
