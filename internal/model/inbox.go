package model

import "time"

// Статусы записи входящих.
const (
	InboxUnread = "unread"
	InboxRead   = "read"
)

// InboxEntry — уведомление о шаринге. Создаётся протоколом шаринга,
// меняется только переходами read-статуса; ротация ключей его не трогает.
// Удаление записи убирает уведомление, но не отзывает доступ к лицензии.
type InboxEntry struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	UserID    string `gorm:"not null;index"` // получатель
	LicenseID string `gorm:"not null"`
	SharedBy  string `gorm:"not null"`

	Message string
	Status  string `gorm:"not null;default:unread"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
