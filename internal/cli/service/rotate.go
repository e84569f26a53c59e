package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"MediaKeeper/internal/cli/api"
	"MediaKeeper/internal/cli/keystore"
	"MediaKeeper/internal/crypto"
	"MediaKeeper/internal/rewrap"
)

// apiSource — rewrap.LicenseSource поверх серверного API: движок крутится
// на клиенте (только у него есть приватные ключи), сервер лишь хранит.
type apiSource struct {
	c *api.Client
}

func (s apiSource) ListKeys(ctx context.Context, userID string) ([]rewrap.Item, error) {
	var resp struct {
		Keys []struct {
			LicenseID  string `json:"license_id"`
			WrappedKey string `json:"wrapped_key"`
		} `json:"keys"`
	}
	if _, err := s.c.GetJSON("/api/media/wrapped-keys", &resp); err != nil {
		return nil, err
	}
	items := make([]rewrap.Item, 0, len(resp.Keys))
	for _, k := range resp.Keys {
		items = append(items, rewrap.Item{LicenseID: k.LicenseID, WrappedKey: k.WrappedKey})
	}
	return items, nil
}

func (s apiSource) PutKey(ctx context.Context, licenseID, userID, wrappedKey, method, publicKeyID string) error {
	_, err := s.c.PostJSON("/api/media/rewrap", map[string]any{
		"license_id":    licenseID,
		"wrapped_key":   wrappedKey,
		"public_key_id": publicKeyID,
	}, nil)
	return err
}

// PublishPublicKey публикует публичную половину текущей пары.
func PublishPublicKey(c *api.Client, kp *crypto.HybridKeypair) error {
	pub := kp.Public()
	_, err := c.PostJSON("/api/keys/publish", map[string]any{
		"key_id":   pub.KeyID,
		"kem_key":  base64.StdEncoding.EncodeToString(pub.KEM),
		"ecdh_key": base64.StdEncoding.EncodeToString(pub.ECDH),
	}, nil)
	return err
}

// RotateKeys выпускает новую пару и перевёртывает все обёрнутые ключи
// пользователя со старой пары на новую. Прогресс уходит в progress
// (канал может быть nil).
func RotateKeys(ctx context.Context, c *api.Client, ks keystore.Store, userID string, batchSize int, progress chan<- rewrap.ProgressEvent) (*rewrap.Result, error) {
	old, fresh, err := ks.Rotate(userID)
	if err != nil {
		return nil, fmt.Errorf("rotate keystore: %w", err)
	}
	// новая публичная половина должна быть видна отправителям сразу,
	// иначе свежие шары продолжат заворачиваться на старый ключ
	if err := PublishPublicKey(c, fresh); err != nil {
		return nil, fmt.Errorf("publish public key: %w", err)
	}

	engine := rewrap.NewEngine(apiSource{c: c}, nil, rewrap.Config{
		BatchSize: batchSize,
		Progress:  progress,
	})
	return engine.Run(ctx, userID, old, fresh)
}
