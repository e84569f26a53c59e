package service

import (
	"context"

	"github.com/google/uuid"

	"MediaKeeper/internal/keywrap"
	"MediaKeeper/internal/model"
	"MediaKeeper/internal/repo"
)

// ShareService — протокол шаринга. Криптографии не выполняет: ключ уже
// обёрнут клиентом для получателя. Вся ответственность — авторизация
// владельца плюс атомарная запись двух записей (ключ + уведомление).
type ShareService struct {
	licenses repo.LicenseRepository
}

func NewShareService(licenses repo.LicenseRepository) *ShareService {
	return &ShareService{licenses: licenses}
}

// ShareRequest — вход границы шаринга.
type ShareRequest struct {
	LicenseID       string
	RecipientUserID string
	WrappedKey      string
	PublicKeyID     string
	Message         string
}

// Share кладёт обёрнутый ключ получателя в карту лицензии и создаёт
// непрочитанное уведомление. Неудача не оставляет частично видимой
// inbox-записи: обе записи пишутся в одной транзакции.
func (s *ShareService) Share(ctx context.Context, callerID string, req ShareRequest) (*model.InboxEntry, error) {
	if req.WrappedKey == "" {
		return nil, ErrEmptyWrappedKey
	}
	wk, err := keywrap.DecodeString(req.WrappedKey)
	if err != nil {
		return nil, err
	}

	lic, err := s.licenses.Get(ctx, req.LicenseID)
	if err != nil {
		return nil, err
	}
	if lic.OwnerUserID != callerID {
		return nil, repo.ErrAccessDenied
	}

	entry := &model.InboxEntry{
		ID:        uuid.NewString(),
		UserID:    req.RecipientUserID,
		LicenseID: req.LicenseID,
		SharedBy:  callerID,
		Message:   req.Message,
		Status:    model.InboxUnread,
	}
	key := model.LicenseKey{
		LicenseID:   req.LicenseID,
		UserID:      req.RecipientUserID,
		WrappedKey:  req.WrappedKey,
		WrapMethod:  wk.Method(),
		PublicKeyID: req.PublicKeyID,
	}
	if err := s.licenses.AddWrappedKeyAndNotify(ctx, key, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
