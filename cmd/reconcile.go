package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/summit-goods/commission-cli/internal/reconcile"
)

var reconcileLive bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile CRM companies into ERP customer records",
	Long:  "Compares active Copper companies against ERP customers keyed by account order ID, then creates missing customers and patches drifted fields. Runs as a dry run unless --live is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		rec := reconcile.NewReconciler(st, reconcile.NewTracker(), cfg.Sync.BatchSize)
		stats, err := rec.Run(ctx, reconcileLive)
		if err != nil {
			return err
		}

		if !reconcileLive {
			zap.L().Info("dry run complete, no writes applied", zap.String("runId", stats.RunID))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileLive, "live", false, "apply writes (default is dry run)")
	rootCmd.AddCommand(reconcileCmd)
}
