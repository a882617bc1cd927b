package cli

import (
	"github.com/spf13/cobra"

	"github.com/pinto-org/tractor-operator/internal/app"
)

var (
	scanSimulate bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Evaluate published orders once and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ScanOptions{
			Simulate: scanSimulate,
		}

		return getApp().Scan(cmd.Context(), opts)
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanSimulate, "simulate", false, "Dry-run executable orders and estimate profit")
}
