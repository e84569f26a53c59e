package commands

import (
	"context"
	"fmt"

	"MediaKeeper/internal/cli/service"
	"MediaKeeper/internal/config"
	"MediaKeeper/internal/rewrap"
)

type rotateCmd struct{}

func (rotateCmd) Name() string { return "rotate" }
func (rotateCmd) Description() string {
	return "Ротация ключевой пары с перевёрткой всех обёрнутых ключей"
}
func (rotateCmd) Usage() string { return "rotate" }

func (rotateCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	c, ks, userID, err := session(cfg)
	if err != nil {
		return err
	}

	progress := make(chan rewrap.ProgressEvent, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range progress {
			fmt.Fprintf(Out, "  батч %d/%d: %d/%d (%.0f%%), отказов %d\n",
				ev.CurrentBatch, ev.TotalBatches, ev.Completed, ev.Total, ev.Percentage, ev.Failed)
		}
	}()

	fmt.Fprintln(Out, "→ Ротация ключевой пары...")
	res, err := service.RotateKeys(ctx, c, ks, userID, cfg.RewrapBatchSize, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if res.Canceled {
		fmt.Fprintln(Out, "! Прервано: результат частичный")
	}
	fmt.Fprintf(Out, "✓ Перевёрнуто %d из %d (пропущено legacy: %d, отказов: %d) за %s\n",
		res.ReWrapped, res.Total, res.Skipped, res.Failed, res.Duration)
	for _, e := range res.Errors {
		fmt.Fprintf(Out, "  × %s: %v (попыток: %d)\n", e.LicenseID, e.Err, e.Attempts)
	}
	return nil
}

func init() { RegisterCmd(rotateCmd{}) }
