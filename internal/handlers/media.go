package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MediaKeeper/internal/config"
	"MediaKeeper/internal/middleware"
	"MediaKeeper/internal/model"
	"MediaKeeper/internal/repo"
	"MediaKeeper/internal/service"
)

// MediaHandler обрабатывает загрузку и выдачу зашифрованного медиа.
type MediaHandler struct {
	MediaService *service.MediaService
	Licenses     repo.LicenseRepository
	Logger       *zap.SugaredLogger
	Config       *config.Config
}

// NewMediaHandler создаёт хендлер media
func NewMediaHandler(mediaService *service.MediaService, licenses repo.LicenseRepository, logger *zap.SugaredLogger, cfg *config.Config) *MediaHandler {
	return &MediaHandler{MediaService: mediaService, Licenses: licenses, Logger: logger, Config: cfg}
}

// UploadRequest — граница загрузки: шифртекст и обёрнутый ключ в base64/строке.
type UploadRequest struct {
	Ciphertext  string `json:"ciphertext"`
	IV          string `json:"iv"`
	MediaHash   string `json:"media_hash"`
	LicenseID   string `json:"license_id,omitempty"`
	MimeType    string `json:"mime_type"`
	Title       string `json:"title,omitempty"`
	WrappedKey  string `json:"wrapped_key"`
	WrapMethod  string `json:"wrap_method,omitempty"`
	PublicKeyID string `json:"public_key_id,omitempty"`
}

// Upload создаёт пару blob+лицензия.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Лимит общего тела запроса
	maxBody := int64(h.Config.BlobMaxSizeMB)*1024*1024*2 + 1*1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Upload: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.MediaHash == "" {
		http.Error(w, "missing media_hash", http.StatusBadRequest)
		return
	}
	ciphertext, err := base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil || len(ciphertext) == 0 {
		http.Error(w, "invalid ciphertext (base64)", http.StatusBadRequest)
		return
	}
	if int64(len(ciphertext)) > int64(h.Config.BlobMaxSizeMB)*1024*1024 {
		h.Logger.Warnw("Upload: payload too large", "user_id", userID, "size", len(ciphertext))
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	iv, err := base64.StdEncoding.DecodeString(req.IV)
	if err != nil || len(iv) == 0 {
		http.Error(w, "invalid iv (base64)", http.StatusBadRequest)
		return
	}

	res, err := h.MediaService.Upload(r.Context(), userID, service.UploadRequest{
		Ciphertext:  ciphertext,
		IV:          iv,
		MediaHash:   req.MediaHash,
		LicenseID:   req.LicenseID,
		MimeType:    req.MimeType,
		Title:       req.Title,
		WrappedKey:  req.WrappedKey,
		PublicKeyID: req.PublicKeyID,
	})
	if err != nil {
		h.Logger.Warnw("Upload: service error", "user_id", userID, "error", err)
		writeStoreError(w, err, false)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if res.Created {
		w.WriteHeader(http.StatusCreated)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"license_id": res.LicenseID,
		"blob_id":    res.BlobID,
		"created":    res.Created,
	})
}

// Fetch выдаёт шифртекст и обёрнутый ключ запрашивающего. Заголовок Range
// включает механическую выдачу диапазона байт шифртекста (206/416);
// расшифровки на сервере нет и быть не может.
func (h *MediaHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	licenseID := chi.URLParam(r, "id")

	res, err := h.MediaService.Fetch(r.Context(), licenseID, userID)
	if err != nil {
		// отсутствие доступа и отсутствие лицензии наружу неразличимы
		writeStoreError(w, err, true)
		return
	}

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		h.serveRange(w, rangeHeader, res)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ciphertext":  base64.StdEncoding.EncodeToString(res.Ciphertext),
		"iv":          base64.StdEncoding.EncodeToString(res.IV),
		"wrapped_key": res.WrappedKey,
		"wrap_method": res.WrapMethod,
		"mime_type":   res.MimeType,
		"byte_length": res.ByteLength,
	})
}

// parseRange разбирает "bytes=a-b" в границы диапазона внутри total.
func parseRange(header string, total int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false
	}
	lo, hi, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}
	switch {
	case lo == "" && hi != "":
		// суффикс: последние n байт
		n, err := strconv.ParseInt(hi, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > total {
			n = total
		}
		return total - n, total - 1, total > 0
	case lo != "":
		a, err := strconv.ParseInt(lo, 10, 64)
		if err != nil || a < 0 || a >= total {
			return 0, 0, false
		}
		b := total - 1
		if hi != "" {
			b, err = strconv.ParseInt(hi, 10, 64)
			if err != nil || b < a {
				return 0, 0, false
			}
			if b >= total {
				b = total - 1
			}
		}
		return a, b, true
	default:
		return 0, 0, false
	}
}

func (h *MediaHandler) serveRange(w http.ResponseWriter, rangeHeader string, res *service.FetchResult) {
	total := int64(len(res.Ciphertext))
	start, end, ok := parseRange(rangeHeader, total)
	if !ok {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", total))
		http.Error(w, "invalid range", http.StatusRequestedRangeNotSatisfiable)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, total))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(res.Ciphertext[start : end+1])
}

// ListWrappedKeys отдаёт все записи wrapped-key запрашивающего —
// вход rewrap-движка на клиенте.
func (h *MediaHandler) ListWrappedKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	keys, err := h.Licenses.ListKeysByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Errorw("ListWrappedKeys: storage error", "user_id", userID, "error", err)
		writeStoreError(w, err, false)
		return
	}
	type keyDTO struct {
		LicenseID  string `json:"license_id"`
		WrappedKey string `json:"wrapped_key"`
		WrapMethod string `json:"wrap_method,omitempty"`
	}
	out := make([]keyDTO, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyDTO{LicenseID: k.LicenseID, WrappedKey: k.WrappedKey, WrapMethod: k.WrapMethod})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"keys": out})
}

// ReWrapRequest — замена собственной записи wrapped-key после ротации.
type ReWrapRequest struct {
	LicenseID   string `json:"license_id"`
	WrappedKey  string `json:"wrapped_key"`
	PublicKeyID string `json:"public_key_id,omitempty"`
}

// ReWrapKey перезаписывает запись ключа вызывающего в указанной лицензии.
// Содержимое не проверяется: перевёртку делает клиент, сервер не может.
func (h *MediaHandler) ReWrapKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req ReWrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.LicenseID == "" || req.WrappedKey == "" {
		http.Error(w, "missing license_id or wrapped_key", http.StatusBadRequest)
		return
	}
	err := h.Licenses.AddWrappedKey(r.Context(), model.LicenseKey{
		LicenseID:   req.LicenseID,
		UserID:      userID,
		WrappedKey:  req.WrappedKey,
		WrapMethod:  "hybrid",
		PublicKeyID: req.PublicKeyID,
	})
	if err != nil {
		h.Logger.Warnw("ReWrapKey: store error", "user_id", userID, "license_id", req.LicenseID, "error", err)
		writeStoreError(w, err, true)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"license_id": req.LicenseID, "updated": true})
}
