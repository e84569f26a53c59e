package commands

import (
	"context"
	"fmt"
	"strings"

	"MediaKeeper/internal/cli/service"
	"MediaKeeper/internal/config"
)

type shareCmd struct{}

func (shareCmd) Name() string        { return "share" }
func (shareCmd) Description() string { return "Поделиться медиа с другим пользователем" }
func (shareCmd) Usage() string       { return "share <license-id> <recipient-user-id> [<message...>]" }

func (shareCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	licenseID, recipient := args[0], args[1]
	message := strings.Join(args[2:], " ")

	c, ks, userID, err := session(cfg)
	if err != nil {
		return err
	}
	entryID, err := service.ShareWith(c, ks, userID, licenseID, recipient, message, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Доступ выдан пользователю %s\n", recipient)
	fmt.Fprintf(Out, "  уведомление: %s\n", entryID)
	return nil
}

func init() { RegisterCmd(shareCmd{}) }
