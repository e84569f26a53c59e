package model

import "time"

// Серверная модель MediaBlob — шифртекст медиа-файла.
// Сервер хранит только шифртекст и IV; открытый текст недоступен никогда.
// Запись иммутабельна после создания и живёт независимо от лицензии:
// каскадного удаления нет, blob может пережить свою лицензию.
type MediaBlob struct {
	ID string `gorm:"primaryKey"`

	Ciphertext []byte `gorm:"not null"`
	IV         []byte `gorm:"not null"`

	MimeType   string
	ByteLength int64 `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
