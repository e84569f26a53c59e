package commands

import (
	"context"
	"fmt"
	"os"

	"MediaKeeper/internal/cli/service"
	"MediaKeeper/internal/config"
)

type exportCmd struct{}

func (exportCmd) Name() string        { return "export" }
func (exportCmd) Description() string { return "Выгрузить медиа как самоописывающий пакет" }
func (exportCmd) Usage() string       { return "export <license-id> <out-file>" }

func (exportCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	c, _, _, err := session(cfg)
	if err != nil {
		return err
	}
	if err := service.ExportContainer(c, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Пакет сохранён: %s\n", args[1])
	return nil
}

type importCmd struct{}

func (importCmd) Name() string        { return "import" }
func (importCmd) Description() string { return "Расшифровать пакет, созданный командой export" }
func (importCmd) Usage() string       { return "import <package-file> <out-file> [<password>]" }

func (importCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return ErrUsage
	}
	password := ""
	if len(args) == 3 {
		password = args[2]
	}
	_, ks, userID, err := session(cfg)
	if err != nil {
		return err
	}
	plain, mime, err := service.DecryptContainer(ks, userID, args[0], password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], plain, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Расшифровано: %s (%d байт, %s)\n", args[1], len(plain), mime)
	return nil
}

func init() {
	RegisterCmd(exportCmd{})
	RegisterCmd(importCmd{})
}
