package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"MediaKeeper/internal/cli/api"
	"MediaKeeper/internal/cli/keystore"
	"MediaKeeper/internal/config"
)

// currentUserPath — файл с идентификатором залогиненного пользователя.
func currentUserPath(cfg *config.Config) (string, error) {
	if err := os.MkdirAll(cfg.KeystoreDir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(cfg.KeystoreDir, "current_user"), nil
}

func saveCurrentUser(cfg *config.Config, userID string) error {
	p, err := currentUserPath(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(userID), 0o600)
}

func loadCurrentUser(cfg *config.Config) (string, error) {
	p, err := currentUserPath(cfg)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil || len(b) == 0 {
		return "", errors.New("не выполнен вход: сначала выполните login <user-id>")
	}
	return strings.TrimSpace(string(b)), nil
}

// session собирает клиент API, keystore и user id для команды.
func session(cfg *config.Config) (*api.Client, keystore.Store, string, error) {
	userID, err := loadCurrentUser(cfg)
	if err != nil {
		return nil, keystore.Store{}, "", err
	}
	c := api.NewClient(cfg.ServerURL, cfg.TokenFile)
	ks := keystore.Store{Dir: cfg.KeystoreDir}
	return c, ks, userID, nil
}
