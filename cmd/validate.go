package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/summit-goods/commission-cli/internal/validate"
)

var (
	validateMonth string
	validateRep   string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate commission data for a month",
	Long:  "Cross-checks a month's sales orders against rep assignments, customer records, and commission rates, and reports warnings, orphaned orders, and per-rep revenue.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := validate.NewValidator(st).Validate(ctx, validateMonth, validateRep)
		if err != nil {
			return err
		}

		if !report.Valid {
			zap.L().Warn("commission data has blocking issues",
				zap.String("month", report.CommissionMonth),
				zap.Int("warnings", len(report.Warnings)),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateMonth, "month", "", "commission month to validate, e.g. 2026-07 (required)")
	validateCmd.Flags().StringVar(&validateRep, "rep", "", "limit the report to a single sales person")
	validateCmd.MarkFlagRequired("month")
	rootCmd.AddCommand(validateCmd)
}
