package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/summit-goods/commission-cli/internal/model"
	"github.com/summit-goods/commission-cli/internal/reconcile"
	"github.com/summit-goods/commission-cli/pkg/copper"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull external collections into the local store",
}

var syncCopperCmd = &cobra.Command{
	Use:   "copper",
	Short: "Pull active companies from the Copper API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Copper.Key == "" {
			return eris.New("copper API key is required (COMMISSION_COPPER_KEY)")
		}

		st, err := initPostgres(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		client := copper.NewClient(cfg.Copper.Key, cfg.Copper.UserEmail,
			copper.WithBaseURL(cfg.Copper.BaseURL),
			copper.WithPageSize(cfg.Copper.PageSize),
			copper.WithRateLimit(cfg.Copper.RatePerSec),
		)

		raw, err := client.ListActiveCompanies(ctx)
		if err != nil {
			return eris.Wrap(err, "list copper companies")
		}

		companies := make([]model.CrmCompany, 0, len(raw))
		for _, c := range raw {
			companies = append(companies, copper.ToCrmCompany(c))
		}

		n, err := reconcile.ImportCompanies(ctx, st.Pool(), companies)
		if err != nil {
			return err
		}

		zap.L().Info("copper sync complete",
			zap.Int("fetched", len(raw)),
			zap.Int64("upserted", n),
		)
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncCopperCmd)
	rootCmd.AddCommand(syncCmd)
}
