package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"MediaKeeper/internal/config"
	"MediaKeeper/internal/middleware"
)

// UserHandler — заглушка границы аккаунтов: хранение пользователей живёт
// во внешнем сервисе, здесь только выпуск auth-cookie по user_id.
type UserHandler struct {
	Logger *zap.SugaredLogger
	Config *config.Config
}

// NewUserHandler создаёт хендлер user
func NewUserHandler(logger *zap.SugaredLogger, cfg *config.Config) *UserHandler {
	return &UserHandler{Logger: logger, Config: cfg}
}

// LoginRequest — вход выпуска cookie.
type LoginRequest struct {
	UserID string `json:"user_id"`
}

// Login выпускает auth-cookie для указанного пользователя.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := middleware.SetLoginCookie(w, req.UserID, h.Config.AuthSecret); err != nil {
		h.Logger.Errorw("Login: cookie error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"user_id": req.UserID})
}
