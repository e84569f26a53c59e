package model

import "time"

// PublicKeyRecord — опубликованная публичная половина гибридной ключевой
// пары пользователя. Нужна отправителям, чтобы обернуть медиа-ключ для
// получателя; приватная половина сервером не хранится.
type PublicKeyRecord struct {
	UserID string `gorm:"primaryKey"`
	KeyID  string `gorm:"not null"`

	KEMPublicKey  []byte `gorm:"not null"`
	ECDHPublicKey []byte `gorm:"not null"`

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
