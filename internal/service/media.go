package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"MediaKeeper/internal/keywrap"
	"MediaKeeper/internal/model"
	"MediaKeeper/internal/repo"
)

// Ошибки валидации границы загрузки.
var (
	ErrLicenseIDMismatch = errors.New("license id does not match media hash and owner")
	ErrEmptyWrappedKey   = errors.New("wrapped key must not be empty")
)

// MediaService инкапсулирует создание и выдачу пары blob+лицензия.
// Криптографии здесь нет: сервер принимает готовый шифртекст и уже
// обёрнутый ключ, проверяя только форму.
type MediaService struct {
	blobs    repo.BlobRepository
	licenses repo.LicenseRepository
}

func NewMediaService(blobs repo.BlobRepository, licenses repo.LicenseRepository) *MediaService {
	return &MediaService{blobs: blobs, licenses: licenses}
}

// UploadRequest — вход границы загрузки (поля уже декодированы хендлером).
type UploadRequest struct {
	Ciphertext  []byte
	IV          []byte
	MediaHash   string
	LicenseID   string // опционально; при наличии обязан совпасть с вычисленным
	MimeType    string
	Title       string
	WrappedKey  string // обёрнутый владельцем для себя ключ, непрозрачная строка
	PublicKeyID string
}

// UploadResult — итог загрузки.
type UploadResult struct {
	LicenseID string
	BlobID    string
	Created   bool
}

// Upload создаёт MediaBlob и MediaLicense. Повторная загрузка того же
// контента тем же владельцем идемпотентна: возвращается существующая
// лицензия, новый blob не создаётся.
func (s *MediaService) Upload(ctx context.Context, ownerID string, req UploadRequest) (*UploadResult, error) {
	if req.WrappedKey == "" {
		return nil, ErrEmptyWrappedKey
	}
	// Детекция формата на границе: '{' — гибридный JSON, иначе legacy base64.
	wk, err := keywrap.DecodeString(req.WrappedKey)
	if err != nil {
		return nil, err
	}

	id := model.LicenseID(req.MediaHash, ownerID)
	if req.LicenseID != "" && req.LicenseID != id {
		return nil, ErrLicenseIDMismatch
	}

	// Идемпотентный повтор: лицензия уже есть у этого владельца.
	if existing, err := s.licenses.Get(ctx, id); err == nil {
		if existing.OwnerUserID != ownerID {
			return nil, repo.ErrDuplicateLicense
		}
		return &UploadResult{LicenseID: id, BlobID: existing.MediaBlobID, Created: false}, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	blob := &model.MediaBlob{
		ID:         uuid.NewString(),
		Ciphertext: req.Ciphertext,
		IV:         req.IV,
		MimeType:   req.MimeType,
		ByteLength: int64(len(req.Ciphertext)),
	}
	if _, err := s.blobs.CreateIfAbsent(ctx, blob); err != nil {
		return nil, err
	}

	lic := &model.MediaLicense{
		ID:          id,
		OwnerUserID: ownerID,
		MediaBlobID: blob.ID,
		MediaHash:   req.MediaHash,
		MimeType:    req.MimeType,
		Title:       req.Title,
		Keys: []model.LicenseKey{{
			LicenseID:   id,
			UserID:      ownerID,
			WrappedKey:  req.WrappedKey,
			WrapMethod:  wk.Method(),
			PublicKeyID: req.PublicKeyID,
		}},
	}
	if err := s.licenses.Create(ctx, lic); err != nil {
		// не оставляем blob-сироту после неудачной загрузки
		if delErr := s.blobs.Delete(ctx, blob.ID); delErr != nil {
			return nil, fmt.Errorf("create license: %w (orphan blob %s not removed: %v)", err, blob.ID, delErr)
		}
		return nil, err
	}
	return &UploadResult{LicenseID: id, BlobID: blob.ID, Created: true}, nil
}

// FetchResult — выдача для конкретного запрашивающего: его запись
// wrapped-key плюс шифртекст.
type FetchResult struct {
	Ciphertext []byte
	IV         []byte
	WrappedKey string
	WrapMethod string
	MimeType   string
	ByteLength int64
}

// Fetch возвращает шифртекст и обёрнутый ключ запрашивающего. Отсутствие
// лицензии и отсутствие записи ключа наружу выглядят одинаково
// (ErrAccessDenied): нельзя подсказывать, какие лицензии существуют.
func (s *MediaService) Fetch(ctx context.Context, licenseID, userID string) (*FetchResult, error) {
	key, err := s.licenses.GetWrappedKey(ctx, licenseID, userID)
	if err != nil {
		return nil, err
	}
	lic, err := s.licenses.Get(ctx, licenseID)
	if err != nil {
		return nil, err
	}
	blob, err := s.blobs.Get(ctx, lic.MediaBlobID)
	if err != nil {
		return nil, err
	}
	return &FetchResult{
		Ciphertext: blob.Ciphertext,
		IV:         blob.IV,
		WrappedKey: key.WrappedKey,
		WrapMethod: key.WrapMethod,
		MimeType:   blob.MimeType,
		ByteLength: blob.ByteLength,
	}, nil
}
