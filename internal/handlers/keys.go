package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MediaKeeper/internal/middleware"
	"MediaKeeper/internal/model"
	"MediaKeeper/internal/repo"
)

// KeysHandler — справочник публичных ключей: публикация своей публичной
// половины и выборка чужой перед шарингом.
type KeysHandler struct {
	Keys   repo.PublicKeyRepository
	Logger *zap.SugaredLogger
}

// NewKeysHandler создаёт хендлер keys
func NewKeysHandler(keys repo.PublicKeyRepository, logger *zap.SugaredLogger) *KeysHandler {
	return &KeysHandler{Keys: keys, Logger: logger}
}

// PublishRequest — публичная половина гибридной пары в base64.
type PublishRequest struct {
	KeyID   string `json:"key_id"`
	KEMKey  string `json:"kem_key"`
	ECDHKey string `json:"ecdh_key"`
}

// Publish сохраняет публичный ключ вызывающего.
func (h *KeysHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	kem, err := base64.StdEncoding.DecodeString(req.KEMKey)
	if err != nil || len(kem) == 0 {
		http.Error(w, "invalid kem_key (base64)", http.StatusBadRequest)
		return
	}
	ecdhKey, err := base64.StdEncoding.DecodeString(req.ECDHKey)
	if err != nil || len(ecdhKey) == 0 {
		http.Error(w, "invalid ecdh_key (base64)", http.StatusBadRequest)
		return
	}
	rec := &model.PublicKeyRecord{
		UserID:        userID,
		KeyID:         req.KeyID,
		KEMPublicKey:  kem,
		ECDHPublicKey: ecdhKey,
	}
	if err := h.Keys.Upsert(r.Context(), rec); err != nil {
		h.Logger.Errorw("Publish key: storage error", "user_id", userID, "error", err)
		writeStoreError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get отдаёт опубликованный публичный ключ пользователя.
func (h *KeysHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	target := chi.URLParam(r, "userID")
	rec, err := h.Keys.Get(r.Context(), target)
	if err != nil {
		writeStoreError(w, err, false)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user_id":  rec.UserID,
		"key_id":   rec.KeyID,
		"kem_key":  base64.StdEncoding.EncodeToString(rec.KEMPublicKey),
		"ecdh_key": base64.StdEncoding.EncodeToString(rec.ECDHPublicKey),
	})
}
