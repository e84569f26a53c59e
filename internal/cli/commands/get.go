package commands

import (
	"context"
	"fmt"
	"os"

	"MediaKeeper/internal/cli/service"
	"MediaKeeper/internal/config"
)

type getCmd struct{}

func (getCmd) Name() string        { return "get" }
func (getCmd) Description() string { return "Скачать и расшифровать медиа в файл" }
func (getCmd) Usage() string       { return "get <license-id> <out-file> [<password>]" }

func (getCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return ErrUsage
	}
	licenseID, outPath := args[0], args[1]
	password := ""
	if len(args) == 3 {
		password = args[2] // только для legacy-обёрток
	}

	c, ks, userID, err := session(cfg)
	if err != nil {
		return err
	}
	plain, mime, err := service.FetchAndDecrypt(c, ks, userID, licenseID, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, plain, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Сохранено: %s (%d байт, %s)\n", outPath, len(plain), mime)
	return nil
}

func init() { RegisterCmd(getCmd{}) }
