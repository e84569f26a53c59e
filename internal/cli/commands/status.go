package commands

import (
	"context"
	"errors"
	"fmt"

	"MediaKeeper/internal/cli/keystore"
	"MediaKeeper/internal/config"
)

type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Показать текущего пользователя и состояние ключей" }
func (statusCmd) Usage() string       { return "status" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	userID, err := loadCurrentUser(cfg)
	if err != nil {
		fmt.Fprintln(Out, "Не залогинен")
		return nil
	}
	fmt.Fprintf(Out, "Пользователь: %s\n", userID)
	fmt.Fprintf(Out, "Сервер:       %s\n", cfg.ServerURL)

	ks := keystore.Store{Dir: cfg.KeystoreDir}
	kp, err := ks.Load(userID)
	switch {
	case errors.Is(err, keystore.ErrNoKeypair):
		fmt.Fprintln(Out, "Ключевая пара: отсутствует (создаётся при login)")
	case err != nil:
		return err
	default:
		fmt.Fprintf(Out, "Ключевая пара: текущая %s", kp.Current.KeyID)
		if kp.Previous != nil {
			fmt.Fprintf(Out, ", предыдущая %s", kp.Previous.KeyID)
		}
		fmt.Fprintln(Out)
	}
	return nil
}

func init() { RegisterCmd(statusCmd{}) }
