package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"MediaKeeper/internal/model"
)

// BlobRepository — минимальный контракт доступа к MediaBlob.
type BlobRepository interface {
	// CreateIfAbsent пытается создать запись. Если существует — ничего не делает.
	// Возвращает created=true если запись была создана в этой операции.
	CreateIfAbsent(ctx context.Context, blob *model.MediaBlob) (created bool, err error)

	// Get возвращает blob по ID или ErrNotFound.
	Get(ctx context.Context, id string) (*model.MediaBlob, error)

	// Delete удаляет blob. Лицензии не трогает: каскадного удаления нет,
	// ссылка из лицензии может протухнуть — это явное решение.
	Delete(ctx context.Context, id string) error
}

type blobRepo struct {
	db *gorm.DB
}

// NewBlobRepository создаёт реализацию репозитория для MediaBlob.
func NewBlobRepository(db *gorm.DB) BlobRepository {
	return &blobRepo{db: db}
}

func (r *blobRepo) CreateIfAbsent(ctx context.Context, blob *model.MediaBlob) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(blob)
	if tx.Error != nil {
		return false, fmt.Errorf("%w: %v", ErrStorage, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

func (r *blobRepo) Get(ctx context.Context, id string) (*model.MediaBlob, error) {
	var b model.MediaBlob
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &b, nil
}

func (r *blobRepo) Delete(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Delete(&model.MediaBlob{}, "id = ?", id)
	if tx.Error != nil {
		return fmt.Errorf("%w: %v", ErrStorage, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
