package commands

import (
	"context"
	"errors"
	"fmt"

	"MediaKeeper/internal/config"
)

// Dispatch разбирает аргументы и выполняет подкоманду.
// Возвращает код выхода процесса.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}
	name := args[0]
	cmd, ok := Get(name)
	if !ok {
		fmt.Fprintf(Out, "unknown command: %s\n\n", name)
		fmt.Fprint(Out, FormatGlobalUsage())
		return 2
	}
	if err := cmd.Run(ctx, cfg, args[1:]); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintf(Out, "usage: %s\n", cmd.Usage())
			return 2
		}
		fmt.Fprintf(Out, "error: %v\n", err)
		return 1
	}
	return 0
}
