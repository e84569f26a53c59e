package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// ErrKeyMismatch — детерминированный отказ: ни текущая, ни предыдущая
// ключевая пара не разворачивает шифртекст. Повторять вызов бессмысленно.
var ErrKeyMismatch = errors.New("key mismatch: neither current nor previous keypair unwraps ciphertext")

// hkdfInfo фиксирует контекст вывода ключа-обёртки. Менять нельзя:
// сломает разворачивание уже выпущенных обёрток.
const hkdfInfo = "mediakeeper/hybrid-wrap/v1"

// HybridPublic — публичная половина гибридной пары: ML-KEM-768 + X25519.
type HybridPublic struct {
	KeyID string `json:"key_id"`
	KEM   []byte `json:"kem"`
	ECDH  []byte `json:"ecdh"`
}

// HybridPrivate — приватный материал одной версии пары. Поля сериализуемы,
// чтобы клиентский keystore мог сохранить пару между запусками.
type HybridPrivate struct {
	KeyID      string `json:"key_id"`
	KEMPublic  []byte `json:"kem_public"`
	KEMSecret  []byte `json:"kem_secret"`
	ECDHPublic []byte `json:"ecdh_public"`
	ECDHSecret []byte `json:"ecdh_secret"`
}

// HybridKeypair — ключевая пара пользователя: текущая версия и, после
// ротации, предыдущая. Предыдущая хранится только чтобы развернуть
// материал, обёрнутый до последней ротации.
type HybridKeypair struct {
	Current  *HybridPrivate `json:"current"`
	Previous *HybridPrivate `json:"previous,omitempty"`
}

// HybridCiphertext — самодостаточный результат Wrap: KEM-инкапсуляция,
// эфемерный публичный ключ X25519 и AES-GCM-обёртка медиа-ключа.
// Иммутабелен после создания.
type HybridCiphertext struct {
	KEMCiphertext []byte `json:"kem_ct"`
	EphemeralPub  []byte `json:"eph_pub"`
	Nonce         []byte `json:"nonce"`
	Wrapped       []byte `json:"wrapped"`
	PublicKeyID   string `json:"public_key_id,omitempty"`
}

// newHybridPrivate генерирует одну версию пары.
func newHybridPrivate() (*HybridPrivate, error) {
	kemPub, kemSec, err := mlkem768.Scheme().GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("mlkem keygen: %w", err)
	}
	kemPubB, err := kemPub.MarshalBinary()
	if err != nil {
		return nil, err
	}
	kemSecB, err := kemSec.MarshalBinary()
	if err != nil {
		return nil, err
	}

	ecdhSec, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("x25519 keygen: %w", err)
	}

	return &HybridPrivate{
		KeyID:      uuid.NewString(),
		KEMPublic:  kemPubB,
		KEMSecret:  kemSecB,
		ECDHPublic: ecdhSec.PublicKey().Bytes(),
		ECDHSecret: ecdhSec.Bytes(),
	}, nil
}

// GenerateKeypair создаёт новую гибридную пару без предыдущей версии.
func GenerateKeypair() (*HybridKeypair, error) {
	cur, err := newHybridPrivate()
	if err != nil {
		return nil, err
	}
	return &HybridKeypair{Current: cur}, nil
}

// Rotate выпускает новую текущую версию пары; старая текущая становится
// предыдущей (и только она — более старые версии отбрасываются).
func (kp *HybridKeypair) Rotate() (*HybridKeypair, error) {
	cur, err := newHybridPrivate()
	if err != nil {
		return nil, err
	}
	return &HybridKeypair{Current: cur, Previous: kp.Current}, nil
}

// Public возвращает публичную половину этой версии пары.
func (p *HybridPrivate) Public() *HybridPublic {
	return &HybridPublic{KeyID: p.KeyID, KEM: p.KEMPublic, ECDH: p.ECDHPublic}
}

// Public возвращает публичную половину текущей версии.
func (kp *HybridKeypair) Public() *HybridPublic {
	return kp.Current.Public()
}

// deriveWrapKey сводит оба общих секрета в один ключ-обёртку через HKDF.
func deriveWrapKey(kemShared, ecdhShared []byte) ([]byte, error) {
	secret := make([]byte, 0, len(kemShared)+len(ecdhShared))
	secret = append(secret, kemShared...)
	secret = append(secret, ecdhShared...)
	defer Zeroize(secret)

	key := make([]byte, KeyLen)
	r := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Wrap оборачивает медиа-ключ для получателя: инкапсуляция ML-KEM плюс
// эфемерный X25519, оба секрета через HKDF дают ключ AES-GCM-обёртки.
// Взлом только одной из половин не раскрывает медиа-ключ.
func Wrap(mediaKey []byte, pub *HybridPublic) (*HybridCiphertext, error) {
	if len(mediaKey) != KeyLen {
		return nil, fmt.Errorf("media key must be %d bytes, got %d", KeyLen, len(mediaKey))
	}
	kemPub, err := mlkem768.Scheme().UnmarshalBinaryPublicKey(pub.KEM)
	if err != nil {
		return nil, fmt.Errorf("recipient kem key: %w", err)
	}
	kemCT, kemShared, err := mlkem768.Scheme().Encapsulate(kemPub)
	if err != nil {
		return nil, fmt.Errorf("kem encapsulate: %w", err)
	}
	defer Zeroize(kemShared)

	recipientECDH, err := ecdh.X25519().NewPublicKey(pub.ECDH)
	if err != nil {
		return nil, fmt.Errorf("recipient ecdh key: %w", err)
	}
	eph, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	ecdhShared, err := eph.ECDH(recipientECDH)
	if err != nil {
		return nil, err
	}
	defer Zeroize(ecdhShared)

	wrapKey, err := deriveWrapKey(kemShared, ecdhShared)
	if err != nil {
		return nil, err
	}
	defer Zeroize(wrapKey)

	wrapped, nonce, err := Encrypt(mediaKey, wrapKey)
	if err != nil {
		return nil, err
	}
	return &HybridCiphertext{
		KEMCiphertext: kemCT,
		EphemeralPub:  eph.PublicKey().Bytes(),
		Nonce:         nonce,
		Wrapped:       wrapped,
		PublicKeyID:   pub.KeyID,
	}, nil
}

// unwrapWith пытается развернуть шифртекст одной версией пары.
func unwrapWith(ct *HybridCiphertext, priv *HybridPrivate) ([]byte, error) {
	kemSec, err := mlkem768.Scheme().UnmarshalBinaryPrivateKey(priv.KEMSecret)
	if err != nil {
		return nil, fmt.Errorf("kem secret: %w", err)
	}
	kemShared, err := mlkem768.Scheme().Decapsulate(kemSec, ct.KEMCiphertext)
	if err != nil {
		return nil, fmt.Errorf("kem decapsulate: %w", err)
	}
	defer Zeroize(kemShared)

	ecdhSec, err := ecdh.X25519().NewPrivateKey(priv.ECDHSecret)
	if err != nil {
		return nil, fmt.Errorf("ecdh secret: %w", err)
	}
	ephPub, err := ecdh.X25519().NewPublicKey(ct.EphemeralPub)
	if err != nil {
		return nil, fmt.Errorf("ephemeral key: %w", err)
	}
	ecdhShared, err := ecdhSec.ECDH(ephPub)
	if err != nil {
		return nil, err
	}
	defer Zeroize(ecdhShared)

	wrapKey, err := deriveWrapKey(kemShared, ecdhShared)
	if err != nil {
		return nil, err
	}
	defer Zeroize(wrapKey)

	return Decrypt(ct.Wrapped, ct.Nonce, wrapKey)
}

// Unwrap разворачивает медиа-ключ: сначала текущей версией пары, затем
// предыдущей (grace-период сразу после ротации, пока старые шары ещё не
// перевёрнуты). Если не подошла ни одна — ErrKeyMismatch.
// Вызывающий обязан затереть возвращённый ключ после использования.
func Unwrap(ct *HybridCiphertext, kp *HybridKeypair) ([]byte, error) {
	if kp == nil || kp.Current == nil {
		return nil, errors.New("nil keypair")
	}
	if key, err := unwrapWith(ct, kp.Current); err == nil {
		return key, nil
	}
	if kp.Previous != nil {
		if key, err := unwrapWith(ct, kp.Previous); err == nil {
			return key, nil
		}
	}
	return nil, ErrKeyMismatch
}
