package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealsync/internal/extract"
	"github.com/sells-group/dealsync/internal/reconcile"
)

// syncPipeline runs extraction and then each report in order. The first
// failing step aborts the remaining ones.
type syncPipeline struct {
	extract   func(ctx context.Context, runID string) (extract.Stats, error)
	reconcile func(ctx context.Context, v reconcile.Variant) (reconcile.Summary, error)
	variants  []reconcile.Variant
}

type syncResult struct {
	RunID   string              `json:"run_id" yaml:"run_id"`
	Extract extract.Stats       `json:"extract" yaml:"extract"`
	Reports []reconcile.Summary `json:"reports" yaml:"reports"`
}

func (p syncPipeline) run(ctx context.Context, runID string) (syncResult, error) {
	res := syncResult{RunID: runID}
	log := zap.L().With(zap.String("run_id", runID))

	log.Info("sync: extracting")
	stats, err := p.extract(ctx, runID)
	res.Extract = stats
	if err != nil {
		return res, eris.Wrap(err, "sync: extract")
	}

	for _, v := range p.variants {
		log.Info("sync: reconciling", zap.String("report", v.Name))
		sum, err := p.reconcile(ctx, v)
		if err != nil {
			return res, eris.Wrapf(err, "sync: reconcile %s", v.Name)
		}
		res.Reports = append(res.Reports, sum)
	}

	log.Info("sync: complete", zap.Int("reports", len(res.Reports)))
	return res, nil
}

// newSyncPipeline wires the configured store, CRM and spreadsheet backends.
// The returned close func releases the store.
func newSyncPipeline(ctx context.Context) (syncPipeline, func(), error) {
	st, err := initStore(ctx)
	if err != nil {
		return syncPipeline{}, nil, err
	}
	sh, err := initSheets(ctx)
	if err != nil {
		st.Close() //nolint:errcheck
		return syncPipeline{}, nil, err
	}
	rec, err := reconcile.New(st, sh, reconcileConfig(cfg))
	if err != nil {
		st.Close() //nolint:errcheck
		return syncPipeline{}, nil, err
	}
	client := initPipedrive()

	p := syncPipeline{
		extract: func(ctx context.Context, runID string) (extract.Stats, error) {
			return extract.New(client, st, extractConfig(cfg, runID)).Run(ctx)
		},
		reconcile: rec.Run,
		variants:  variants(cfg),
	}
	return p, func() { _ = st.Close() }, nil
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Extract from the CRM, then run every report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sync"); err != nil {
			return err
		}
		ctx := cmd.Context()

		p, closeFn, err := newSyncPipeline(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := p.run(ctx, newRunID())
		if err != nil {
			zap.L().Error("sync failed", zap.String("run_id", res.RunID), zap.Error(err))
			return err
		}
		for _, s := range res.Reports {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s rows=%d matched=%d written=%d\n", s.Report, s.Rows, s.Matched, s.Written)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
