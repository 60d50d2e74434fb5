package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dealsync/internal/reconcile"
	"github.com/sells-group/dealsync/pkg/sheets"
)

var reconcileDryRun bool

// dryRunPlan is printed by reconcile --dry-run.
type dryRunPlan struct {
	Summary reconcile.Summary   `yaml:"summary"`
	Header  []string            `yaml:"header"`
	Updates []sheets.ValueRange `yaml:"updates"`
}

var reconcileCmd = &cobra.Command{
	Use:       "reconcile <mailers|purls|digisheet>",
	Short:     "Join one report's spreadsheet rows against the record store",
	Args:      cobra.ExactArgs(1),
	ValidArgs: reconcile.Reports,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}
		v, err := variantByName(cfg, args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sh, err := initSheets(ctx)
		if err != nil {
			return err
		}
		rec, err := reconcile.New(st, sh, reconcileConfig(cfg))
		if err != nil {
			return err
		}

		if reconcileDryRun {
			updates, sum, err := rec.Plan(ctx, v)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close() //nolint:errcheck
			return enc.Encode(dryRunPlan{Summary: sum, Header: v.Header(), Updates: updates})
		}

		sum, err := rec.Run(ctx, v)
		if err != nil {
			return err
		}
		zap.L().Info("reconcile: done",
			zap.String("report", sum.Report),
			zap.Int("rows", sum.Rows),
			zap.Int("matched", sum.Matched),
			zap.Int("written", sum.Written),
		)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "print the write batch as YAML instead of writing it")
	rootCmd.AddCommand(reconcileCmd)
}
