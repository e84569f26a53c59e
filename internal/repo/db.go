package repo

import (
	"fmt"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"MediaKeeper/internal/model"
)

// InitDB открывает соединение с БД и прогоняет миграции моделей.
// Пустой DSN — локальный файл SQLite (pure-Go драйвер modernc),
// иначе строка подключения трактуется как Postgres.
func InitDB(dsn string) (*gorm.DB, error) {
	var dial gorm.Dialector
	if dsn == "" {
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: "mediakeeper.db"}
	} else {
		dial = postgres.Open(dsn)
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&model.MediaBlob{},
		&model.MediaLicense{},
		&model.LicenseKey{},
		&model.InboxEntry{},
		&model.PublicKeyRecord{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return db, nil
}
