package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MediaLicense — запись контроля доступа: связывает один blob с владельцем
// и набором получателей. ID детерминирован от (mediaHash, owner), поэтому
// повторная загрузка того же контента тем же владельцем идемпотентна.
// ID, OwnerUserID и CreatedAt иммутабельны; меняется только набор LicenseKey.
type MediaLicense struct {
	ID          string `gorm:"primaryKey"`
	OwnerUserID string `gorm:"not null;index"`

	// Ссылка, не владение: время жизни blob не зависит от лицензии.
	MediaBlobID string `gorm:"index"`

	MediaHash string `gorm:"not null"`
	MimeType  string
	Title     string

	Keys []LicenseKey `gorm:"foreignKey:LicenseID"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// LicenseKey — одна запись wrapped-key карты лицензии: обёрнутый ключ
// конкретного получателя. Строка непрозрачна для сервера — он не может
// и не должен проверять, что она расшифровывается.
type LicenseKey struct {
	LicenseID string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`

	WrappedKey  string `gorm:"not null"`
	WrapMethod  string // "hybrid" | "password"; пустое значение = неизвестно (legacy)
	PublicKeyID string // идентификатор публичного ключа получателя, если известен

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// LicenseID детерминированно вычисляет идентификатор лицензии от хеша
// контента и владельца. Одинаковые входы всегда дают одинаковый ID;
// разные владельцы с одним хешем — разные ID.
func LicenseID(mediaHash, ownerUserID string) string {
	h := sha256.New()
	h.Write([]byte(mediaHash))
	h.Write([]byte{0x1f}) // разделитель, чтобы (ab,c) != (a,bc)
	h.Write([]byte(ownerUserID))
	return hex.EncodeToString(h.Sum(nil))
}
