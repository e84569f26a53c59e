package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// KeyLen — длина симметричного ключа для AES-256 (в байтах).
const KeyLen = 32

// Параметры PBKDF2 для legacy-обёртки. Подбор параметров KDF вне скоупа,
// значения зафиксированы для совместимости с уже выпущенными обёртками.
const (
	legacySaltLen    = 16
	legacyIterations = 100_000
)

// NewMediaKey генерирует случайный симметричный медиа-ключ.
func NewMediaKey() ([]byte, error) {
	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt шифрует данные plain с помощью AES-GCM и заданного ключа.
// Возвращает шифртекст и nonce.
func Encrypt(plain []byte, key []byte) ([]byte, []byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	out := gcm.Seal(nil, nonce, plain, nil)
	return out, nonce, nil
}

// Decrypt расшифровывает шифртекст с использованием AES-GCM, ключа и nonce.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// DeriveLegacyKey выводит ключ из пароля по PBKDF2-SHA256.
func DeriveLegacyKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, legacyIterations, KeyLen, sha256.New)
}

// LegacyWrap оборачивает медиа-ключ паролем: PBKDF2 + AES-GCM.
// Результат — непрозрачный бинарный блок salt|nonce|ciphertext.
func LegacyWrap(mediaKey []byte, password string) ([]byte, error) {
	salt := make([]byte, legacySaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	kek := DeriveLegacyKey(password, salt)
	defer Zeroize(kek)

	ct, nonce, err := Encrypt(mediaKey, kek)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(salt)+len(nonce)+len(ct))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ct...)
	return out, nil
}

// LegacyUnwrap разворачивает блок, созданный LegacyWrap.
func LegacyUnwrap(wrapped []byte, password string) ([]byte, error) {
	const nonceLen = 12 // стандартный nonce AES-GCM
	if len(wrapped) < legacySaltLen+nonceLen+1 {
		return nil, errors.New("legacy wrap too short")
	}
	salt := wrapped[:legacySaltLen]
	nonce := wrapped[legacySaltLen : legacySaltLen+nonceLen]
	ct := wrapped[legacySaltLen+nonceLen:]

	kek := DeriveLegacyKey(password, salt)
	defer Zeroize(kek)
	return Decrypt(ct, nonce, kek)
}

// Zeroize затирает ключевой материал. Вызывается владельцем буфера,
// как только ключ больше не нужен.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
