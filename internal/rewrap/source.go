package rewrap

import (
	"context"

	"MediaKeeper/internal/model"
	"MediaKeeper/internal/repo"
)

// RepoSource — адаптер LicenseSource поверх gorm-репозитория лицензий.
type RepoSource struct {
	licenses repo.LicenseRepository
}

func NewRepoSource(licenses repo.LicenseRepository) *RepoSource {
	return &RepoSource{licenses: licenses}
}

func (s *RepoSource) ListKeys(ctx context.Context, userID string) ([]Item, error) {
	keys, err := s.licenses.ListKeysByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		items = append(items, Item{LicenseID: k.LicenseID, WrappedKey: k.WrappedKey})
	}
	return items, nil
}

func (s *RepoSource) PutKey(ctx context.Context, licenseID, userID, wrappedKey, method, publicKeyID string) error {
	return s.licenses.AddWrappedKey(ctx, model.LicenseKey{
		LicenseID:   licenseID,
		UserID:      userID,
		WrappedKey:  wrappedKey,
		WrapMethod:  method,
		PublicKeyID: publicKeyID,
	})
}
