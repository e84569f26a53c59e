package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"MediaKeeper/internal/model"
)

// LicenseRepository — хранилище лицензий и их wrapped-key карт.
type LicenseRepository interface {
	// Create сохраняет лицензию. Повторная отправка той же лицензии тем же
	// владельцем — идемпотентный no-op; тот же ID под другим владельцем —
	// ErrDuplicateLicense.
	Create(ctx context.Context, lic *model.MediaLicense) error

	// Get возвращает лицензию с её ключами или ErrNotFound.
	Get(ctx context.Context, id string) (*model.MediaLicense, error)

	// AddWrappedKey добавляет либо перезаписывает запись получателя в
	// wrapped-key карте. ErrNotFound, если лицензии нет. Содержимое ключа
	// сервер не проверяет — не может и не должен.
	AddWrappedKey(ctx context.Context, key model.LicenseKey) error

	// AddWrappedKeyAndNotify атомарно пишет запись ключа и уведомление:
	// читатель не должен увидеть inbox-запись без соответствующего ключа.
	AddWrappedKeyAndNotify(ctx context.Context, key model.LicenseKey, entry *model.InboxEntry) error

	// GetWrappedKey возвращает запись получателя. Отсутствие лицензии и
	// отсутствие записи поверхностно неразличимы: оба — ErrAccessDenied.
	GetWrappedKey(ctx context.Context, licenseID, userID string) (*model.LicenseKey, error)

	// ListByOwner возвращает все лицензии владельца (с ключами).
	ListByOwner(ctx context.Context, ownerUserID string) ([]model.MediaLicense, error)

	// ListKeysByUser возвращает все записи wrapped-key, которыми владеет
	// пользователь как получатель — индекс для rewrap-движка.
	ListKeysByUser(ctx context.Context, userID string) ([]model.LicenseKey, error)
}

type licenseRepo struct {
	db *gorm.DB
}

// NewLicenseRepository создаёт реализацию репозитория лицензий.
func NewLicenseRepository(db *gorm.DB) LicenseRepository {
	return &licenseRepo{db: db}
}

func (r *licenseRepo) Create(ctx context.Context, lic *model.MediaLicense) error {
	var existing model.MediaLicense
	err := r.db.WithContext(ctx).Select("id", "owner_user_id").First(&existing, "id = ?", lic.ID).Error
	switch {
	case err == nil:
		if existing.OwnerUserID != lic.OwnerUserID {
			return ErrDuplicateLicense
		}
		// тот же владелец — идемпотентный повтор загрузки
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// создаём ниже
	default:
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := r.db.WithContext(ctx).Create(lic).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (r *licenseRepo) Get(ctx context.Context, id string) (*model.MediaLicense, error) {
	var lic model.MediaLicense
	err := r.db.WithContext(ctx).Preload("Keys").First(&lic, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &lic, nil
}

// upsertKey пишет запись ключа в рамках переданного db (возможно, транзакции).
// Upsert одной строкой сериализует конкурентные записи по (license, user):
// конкурентный share и ротация не оставят полузаписанного состояния.
func upsertKey(db *gorm.DB, key model.LicenseKey) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "license_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"wrapped_key", "wrap_method", "public_key_id", "updated_at",
		}),
	}).Create(&key).Error
}

func (r *licenseRepo) licenseExists(db *gorm.DB, licenseID string) error {
	var count int64
	if err := db.Model(&model.MediaLicense{}).Where("id = ?", licenseID).Count(&count).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *licenseRepo) AddWrappedKey(ctx context.Context, key model.LicenseKey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.licenseExists(tx, key.LicenseID); err != nil {
			return err
		}
		if err := upsertKey(tx, key); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		return nil
	})
}

func (r *licenseRepo) AddWrappedKeyAndNotify(ctx context.Context, key model.LicenseKey, entry *model.InboxEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.licenseExists(tx, key.LicenseID); err != nil {
			return err
		}
		// сначала ключ, затем уведомление — в одной транзакции
		if err := upsertKey(tx, key); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		return nil
	})
}

func (r *licenseRepo) GetWrappedKey(ctx context.Context, licenseID, userID string) (*model.LicenseKey, error) {
	var key model.LicenseKey
	err := r.db.WithContext(ctx).
		First(&key, "license_id = ? AND user_id = ?", licenseID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &key, nil
}

func (r *licenseRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]model.MediaLicense, error) {
	var list []model.MediaLicense
	err := r.db.WithContext(ctx).Preload("Keys").
		Where("owner_user_id = ?", ownerUserID).Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return list, nil
}

func (r *licenseRepo) ListKeysByUser(ctx context.Context, userID string) ([]model.LicenseKey, error) {
	var keys []model.LicenseKey
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return keys, nil
}
