package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"MediaKeeper/internal/model"
)

// PublicKeyRepository — справочник опубликованных публичных ключей.
type PublicKeyRepository interface {
	// Upsert публикует либо заменяет публичный ключ пользователя.
	Upsert(ctx context.Context, rec *model.PublicKeyRecord) error

	// Get возвращает опубликованный ключ пользователя или ErrNotFound.
	Get(ctx context.Context, userID string) (*model.PublicKeyRecord, error)
}

type pubKeyRepo struct {
	db *gorm.DB
}

// NewPublicKeyRepository создаёт реализацию справочника ключей.
func NewPublicKeyRepository(db *gorm.DB) PublicKeyRepository {
	return &pubKeyRepo{db: db}
}

func (r *pubKeyRepo) Upsert(ctx context.Context, rec *model.PublicKeyRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"key_id", "kem_public_key", "ecdh_public_key", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (r *pubKeyRepo) Get(ctx context.Context, userID string) (*model.PublicKeyRecord, error) {
	var rec model.PublicKeyRecord
	if err := r.db.WithContext(ctx).First(&rec, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &rec, nil
}
