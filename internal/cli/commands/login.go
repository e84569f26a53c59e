package commands

import (
	"context"
	"fmt"

	"MediaKeeper/internal/cli/api"
	"MediaKeeper/internal/cli/keystore"
	"MediaKeeper/internal/cli/service"
	"MediaKeeper/internal/config"
)

type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Войти на сервер и сохранить auth-токен" }
func (loginCmd) Usage() string       { return "login <user-id>" }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return ErrUsage
	}
	userID := args[0]

	c := api.NewClient(cfg.ServerURL, cfg.TokenFile)
	if err := c.Login(userID); err != nil {
		return err
	}
	if err := saveCurrentUser(cfg, userID); err != nil {
		return err
	}

	// гарантируем пару и публикуем публичную половину: без неё другим
	// нечем заворачивать ключи для этого пользователя
	ks := keystore.Store{Dir: cfg.KeystoreDir}
	kp, created, err := ks.LoadOrCreate(userID)
	if err != nil {
		return err
	}
	if err := service.PublishPublicKey(c, kp); err != nil {
		return err
	}

	fmt.Fprintf(Out, "✓ Вход выполнен: %s\n", userID)
	if created {
		fmt.Fprintln(Out, "✓ Создана новая гибридная ключевая пара")
	}
	return nil
}

func init() { RegisterCmd(loginCmd{}) }
