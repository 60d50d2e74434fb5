package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealsync/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetch deals and persons from Pipedrive into the record store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runID := newRunID()
		stats, err := extract.New(initPipedrive(), st, extractConfig(cfg, runID)).Run(ctx)
		if err != nil {
			zap.L().Error("extraction failed", zap.String("run_id", runID), zap.Error(err))
			return err
		}

		counts, err := st.Counts(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "records=%d inserted=%d updated=%d skipped=%d failed=%d persons=%d deals=%d\n",
			stats.Records, stats.Inserted, stats.Updated, stats.Skipped, stats.Failed, counts.Persons, counts.Deals)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
