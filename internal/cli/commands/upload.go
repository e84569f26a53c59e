package commands

import (
	"context"
	"fmt"

	"MediaKeeper/internal/cli/service"
	"MediaKeeper/internal/config"
)

type uploadCmd struct{}

func (uploadCmd) Name() string        { return "upload" }
func (uploadCmd) Description() string { return "Зашифровать файл и загрузить на сервер" }
func (uploadCmd) Usage() string       { return "upload <file> [<title>]" }

func (uploadCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	path := args[0]
	title := ""
	if len(args) == 2 {
		title = args[1]
	}

	c, ks, userID, err := session(cfg)
	if err != nil {
		return err
	}
	out, err := service.EncryptAndUpload(c, ks, userID, path, title)
	if err != nil {
		return err
	}
	if out.Created {
		fmt.Fprintln(Out, "✓ Загружено:")
	} else {
		fmt.Fprintln(Out, "• Уже существует (идемпотентный повтор):")
	}
	fmt.Fprintf(Out, "  license: %s\n", out.LicenseID)
	fmt.Fprintf(Out, "  blob:    %s\n", out.BlobID)
	return nil
}

func init() { RegisterCmd(uploadCmd{}) }
