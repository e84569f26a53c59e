package service

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"

	"MediaKeeper/internal/cli/api"
	"MediaKeeper/internal/cli/keystore"
	"MediaKeeper/internal/container"
	"MediaKeeper/internal/crypto"
	"MediaKeeper/internal/keywrap"
)

// UploadOutcome — итог клиентской загрузки.
type UploadOutcome struct {
	LicenseID string
	BlobID    string
	Created   bool
}

// EncryptAndUpload шифрует файл локально и загружает шифртекст с ключом,
// обёрнутым для самого владельца. Открытый текст и медиа-ключ сервер
// не покидают машину клиента.
func EncryptAndUpload(c *api.Client, ks keystore.Store, userID, path, title string) (*UploadOutcome, error) {
	plain, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(plain)
	mediaHash := hex.EncodeToString(sum[:])

	mediaKey, err := crypto.NewMediaKey()
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(mediaKey)

	ciphertext, iv, err := crypto.Encrypt(plain, mediaKey)
	if err != nil {
		return nil, err
	}

	kp, _, err := ks.LoadOrCreate(userID)
	if err != nil {
		return nil, err
	}
	wrapped, err := crypto.Wrap(mediaKey, kp.Public())
	if err != nil {
		return nil, err
	}
	wrappedStr, err := keywrap.NewHybrid(wrapped).EncodeString()
	if err != nil {
		return nil, err
	}

	var resp struct {
		LicenseID string `json:"license_id"`
		BlobID    string `json:"blob_id"`
		Created   bool   `json:"created"`
	}
	_, err = c.PostJSON("/api/media/upload", map[string]any{
		"ciphertext":    base64.StdEncoding.EncodeToString(ciphertext),
		"iv":            base64.StdEncoding.EncodeToString(iv),
		"media_hash":    mediaHash,
		"mime_type":     http.DetectContentType(plain),
		"title":         title,
		"wrapped_key":   wrappedStr,
		"wrap_method":   "hybrid",
		"public_key_id": kp.Current.KeyID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &UploadOutcome{LicenseID: resp.LicenseID, BlobID: resp.BlobID, Created: resp.Created}, nil
}

// fetchedMedia — разобранный ответ границы выдачи.
type fetchedMedia struct {
	Ciphertext []byte
	IV         []byte
	WrappedKey string
	MimeType   string
}

func fetchMedia(c *api.Client, licenseID string) (*fetchedMedia, error) {
	var resp struct {
		Ciphertext string `json:"ciphertext"`
		IV         string `json:"iv"`
		WrappedKey string `json:"wrapped_key"`
		MimeType   string `json:"mime_type"`
	}
	if _, err := c.GetJSON("/api/media/"+licenseID, &resp); err != nil {
		return nil, err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(resp.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(resp.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	return &fetchedMedia{Ciphertext: ciphertext, IV: iv, WrappedKey: resp.WrappedKey, MimeType: resp.MimeType}, nil
}

// unwrapMediaKey разворачивает обёрнутый ключ любого из двух форматов.
// Для legacy-обёртки нужен пароль; для гибридной — пара из keystore.
func unwrapMediaKey(wrappedStr string, kp *crypto.HybridKeypair, password string) ([]byte, error) {
	wk, err := keywrap.DecodeString(wrappedStr)
	if err != nil {
		return nil, err
	}
	switch wk.Kind {
	case keywrap.Hybrid:
		if kp == nil {
			return nil, errors.New("no keypair to unwrap hybrid key")
		}
		return crypto.Unwrap(wk.HybridData, kp)
	case keywrap.Legacy:
		if password == "" {
			return nil, errors.New("legacy wrapped key requires a password")
		}
		return crypto.LegacyUnwrap(wk.LegacyData, password)
	default:
		return nil, keywrap.ErrMalformedKey
	}
}

// FetchAndDecrypt скачивает медиа и расшифровывает его локально.
// password нужен только для legacy-обёрток.
func FetchAndDecrypt(c *api.Client, ks keystore.Store, userID, licenseID, password string) ([]byte, string, error) {
	media, err := fetchMedia(c, licenseID)
	if err != nil {
		return nil, "", err
	}
	var kp *crypto.HybridKeypair
	if kp, err = ks.Load(userID); err != nil && !errors.Is(err, keystore.ErrNoKeypair) {
		return nil, "", err
	}
	mediaKey, err := unwrapMediaKey(media.WrappedKey, kp, password)
	if err != nil {
		return nil, "", err
	}
	defer crypto.Zeroize(mediaKey)

	plain, err := crypto.Decrypt(media.Ciphertext, media.IV, mediaKey)
	if err != nil {
		return nil, "", err
	}
	return plain, media.MimeType, nil
}

// ShareWith оборачивает медиа-ключ для получателя и вызывает границу
// шаринга. Вся криптография здесь, на клиенте.
func ShareWith(c *api.Client, ks keystore.Store, userID, licenseID, recipientID, message, password string) (string, error) {
	media, err := fetchMedia(c, licenseID)
	if err != nil {
		return "", err
	}
	var kp *crypto.HybridKeypair
	if kp, err = ks.Load(userID); err != nil && !errors.Is(err, keystore.ErrNoKeypair) {
		return "", err
	}
	mediaKey, err := unwrapMediaKey(media.WrappedKey, kp, password)
	if err != nil {
		return "", err
	}
	defer crypto.Zeroize(mediaKey)

	var keyResp struct {
		KeyID   string `json:"key_id"`
		KEMKey  string `json:"kem_key"`
		ECDHKey string `json:"ecdh_key"`
	}
	if _, err := c.GetJSON("/api/keys/"+recipientID, &keyResp); err != nil {
		return "", fmt.Errorf("recipient public key: %w", err)
	}
	kem, err := base64.StdEncoding.DecodeString(keyResp.KEMKey)
	if err != nil {
		return "", fmt.Errorf("recipient kem key: %w", err)
	}
	ecdhKey, err := base64.StdEncoding.DecodeString(keyResp.ECDHKey)
	if err != nil {
		return "", fmt.Errorf("recipient ecdh key: %w", err)
	}

	wrapped, err := crypto.Wrap(mediaKey, &crypto.HybridPublic{
		KeyID: keyResp.KeyID, KEM: kem, ECDH: ecdhKey,
	})
	if err != nil {
		return "", err
	}
	wrappedStr, err := keywrap.NewHybrid(wrapped).EncodeString()
	if err != nil {
		return "", err
	}

	var resp struct {
		InboxEntryID string `json:"inbox_entry_id"`
	}
	_, err = c.PostJSON("/api/media/share", map[string]any{
		"license_id":              licenseID,
		"recipient_user_id":       recipientID,
		"wrapped_key":             wrappedStr,
		"recipient_public_key_id": keyResp.KeyID,
		"message":                 message,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.InboxEntryID, nil
}

// ExportContainer скачивает медиа и пишет самоописывающий пакет для
// внеполосной передачи: метаданные JSON + шифртекст в одном файле.
func ExportContainer(c *api.Client, licenseID, outPath string) error {
	media, err := fetchMedia(c, licenseID)
	if err != nil {
		return err
	}
	buf, err := container.Encode(map[string]any{
		"license_id":  licenseID,
		"iv":          base64.StdEncoding.EncodeToString(media.IV),
		"mime_type":   media.MimeType,
		"wrapped_key": media.WrappedKey,
	}, media.Ciphertext)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, buf, 0o600)
}

// DecryptContainer разбирает пакет, созданный ExportContainer, и
// расшифровывает его содержимое локально.
func DecryptContainer(ks keystore.Store, userID, inPath, password string) ([]byte, string, error) {
	buf, err := os.ReadFile(inPath)
	if err != nil {
		return nil, "", err
	}
	meta, ciphertext, err := container.Decode(buf)
	if err != nil {
		return nil, "", err
	}
	ivStr, _ := meta["iv"].(string)
	wrappedStr, _ := meta["wrapped_key"].(string)
	mime, _ := meta["mime_type"].(string)
	iv, err := base64.StdEncoding.DecodeString(ivStr)
	if err != nil {
		return nil, "", fmt.Errorf("container iv: %w", err)
	}

	var kp *crypto.HybridKeypair
	if kp, err = ks.Load(userID); err != nil && !errors.Is(err, keystore.ErrNoKeypair) {
		return nil, "", err
	}
	mediaKey, err := unwrapMediaKey(wrappedStr, kp, password)
	if err != nil {
		return nil, "", err
	}
	defer crypto.Zeroize(mediaKey)

	plain, err := crypto.Decrypt(ciphertext, iv, mediaKey)
	if err != nil {
		return nil, "", err
	}
	return plain, mime, nil
}
