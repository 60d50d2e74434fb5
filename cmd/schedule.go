package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scheduleCron string

// newScheduler registers the sync job on a cron spec. A tick that fires
// while the previous run is still going is skipped.
func newScheduler(spec string, runner *syncRunner, ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		res, err := runner.RunNow(ctx)
		if errors.Is(err, errRunInProgress) {
			zap.L().Warn("schedule: previous run still in progress, skipping tick")
			return
		}
		if err != nil {
			return
		}
		zap.L().Info("schedule: run complete",
			zap.String("run_id", res.RunID),
			zap.Int64("records", res.Extract.Records),
			zap.Int("reports", len(res.Reports)),
		)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "schedule: parse cron %q", spec)
	}
	return c, nil
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run sync on a cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scheduleCron != "" {
			cfg.Schedule.Cron = scheduleCron
		}
		if err := cfg.Validate("schedule"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, closeFn, err := newSyncPipeline(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		runner := newSyncRunner(p.run)
		c, err := newScheduler(cfg.Schedule.Cron, runner, ctx)
		if err != nil {
			return err
		}

		zap.L().Info("schedule: started", zap.String("cron", cfg.Schedule.Cron))
		c.Start()
		<-ctx.Done()

		zap.L().Info("schedule: stopping, waiting for running job")
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron spec (default from config)")
	rootCmd.AddCommand(scheduleCmd)
}
