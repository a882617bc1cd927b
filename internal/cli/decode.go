package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pinto-org/tractor-operator/internal/app"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <payload-hex>",
	Short: "Decode blueprint payload bytes offline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return fmt.Errorf("payload hex is required")
		}

		opts := app.DecodeOptions{
			DataHex: args[0],
		}

		return getApp().Decode(cmd.Context(), opts)
	},
}
