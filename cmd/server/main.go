package main

import (
	"net/http"

	"go.uber.org/zap"

	"MediaKeeper/internal/config"
	"MediaKeeper/internal/handlers"
	"MediaKeeper/internal/middleware"
	"MediaKeeper/internal/repo"
	"MediaKeeper/internal/service"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	blobRepo := repo.NewBlobRepository(gormDB)
	licenseRepo := repo.NewLicenseRepository(gormDB)
	inboxRepo := repo.NewInboxRepository(gormDB)
	keyRepo := repo.NewPublicKeyRepository(gormDB)

	mediaService := service.NewMediaService(blobRepo, licenseRepo)
	shareService := service.NewShareService(licenseRepo)

	h := handlers.NewHandler(mediaService, shareService, inboxRepo, keyRepo, licenseRepo, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"BlobMaxSizeMB", cfg.BlobMaxSizeMB,
	)

	if err := http.ListenAndServe(addr, h.Router); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}
