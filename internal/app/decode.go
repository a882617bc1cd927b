package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/pinto-org/tractor-operator/internal/blueprint"
)

// Decode parses hex blueprint payload bytes offline and prints the sow order
// parameters. No RPC connection is made.
func (a *App) Decode(ctx context.Context, opts DecodeOptions) error {
	raw := strings.TrimSpace(opts.DataHex)
	if raw == "" {
		return fmt.Errorf("payload data is required")
	}
	if !strings.HasPrefix(raw, "0x") {
		raw = "0x" + raw
	}

	data, err := hexutil.Decode(raw)
	if err != nil {
		return fmt.Errorf("parse payload hex: %w", err)
	}

	result := blueprint.DecodeSowOrder(data, a.sowBlueprint())
	switch result.Status {
	case blueprint.StatusNotApplicable:
		fmt.Fprintln(os.Stdout, "payload is not a sow order")
		return nil
	case blueprint.StatusMalformed:
		return fmt.Errorf("payload is malformed: %s", result.Reason)
	}

	order := result.Order

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Total amount\t%s\n", order.TotalAmountValue)
	fmt.Fprintf(writer, "Min amount per season\t%s\n", order.MinAmountPerSeasonValue)
	fmt.Fprintf(writer, "Max amount per season\t%s\n", order.MaxAmountPerSeasonValue)
	fmt.Fprintf(writer, "Min temperature\t%s\n", order.MinTempValue)
	fmt.Fprintf(writer, "Max podline length\t%s\n", order.MaxPodlineLengthValue)
	fmt.Fprintf(writer, "Max grown stalk per BDV\t%s\n", order.MaxGrownStalkPerBDVValue)
	fmt.Fprintf(writer, "Run blocks after sunrise\t%s\n", order.RunBlocksAfterSunrise.String())
	fmt.Fprintf(writer, "Slippage ratio\t%s\n", order.SlippageRatioValue)
	fmt.Fprintf(writer, "Source token indices\t%v\n", order.SourceTokenIndices)
	fmt.Fprintf(writer, "Tip address\t%s\n", order.Operator.TipAddress.Hex())
	fmt.Fprintf(writer, "Tip amount\t%s\n", order.Operator.TipAmountValue)

	whitelist := "any operator"
	if len(order.Operator.Whitelist) > 0 {
		hexes := make([]string, len(order.Operator.Whitelist))
		for i, addr := range order.Operator.Whitelist {
			hexes[i] = addr.Hex()
		}
		whitelist = strings.Join(hexes, ", ")
	}
	fmt.Fprintf(writer, "Operator whitelist\t%s\n", whitelist)

	writer.Flush()
	return nil
}
