package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"MediaKeeper/internal/model"
)

// InboxRepository — уведомления о шаринге. Записи создаёт протокол шаринга
// (через LicenseRepository.AddWrappedKeyAndNotify); здесь — чтение и
// переходы read-статуса получателем.
type InboxRepository interface {
	// ListForUser возвращает записи получателя, новые первыми.
	ListForUser(ctx context.Context, userID string) ([]model.InboxEntry, error)

	// MarkRead переводит запись в состояние read. ErrNotFound, если записи
	// нет либо она принадлежит другому пользователю (поверхностно одно и то же).
	MarkRead(ctx context.Context, id, userID string) error

	// Delete убирает уведомление. Доступ к лицензии не отзывается:
	// удаление касается только inbox.
	Delete(ctx context.Context, id, userID string) error
}

type inboxRepo struct {
	db *gorm.DB
}

// NewInboxRepository создаёт реализацию репозитория inbox.
func NewInboxRepository(db *gorm.DB) InboxRepository {
	return &inboxRepo{db: db}
}

func (r *inboxRepo) ListForUser(ctx context.Context, userID string) ([]model.InboxEntry, error) {
	var list []model.InboxEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return list, nil
}

func (r *inboxRepo) MarkRead(ctx context.Context, id, userID string) error {
	tx := r.db.WithContext(ctx).Model(&model.InboxEntry{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", model.InboxRead)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorage, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *inboxRepo) Delete(ctx context.Context, id, userID string) error {
	tx := r.db.WithContext(ctx).
		Delete(&model.InboxEntry{}, "id = ? AND user_id = ?", id, userID)
	if tx.Error != nil {
		return fmt.Errorf("%w: %v", ErrStorage, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
