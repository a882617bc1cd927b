package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pinto-org/tractor-operator/internal/eligibility"
	"github.com/pinto-org/tractor-operator/internal/events"
	"github.com/pinto-org/tractor-operator/internal/loader"
	"github.com/pinto-org/tractor-operator/internal/simulator"
)

// Scan performs a single evaluation pass and prints the resulting order view
// without executing anything. With --simulate it also dry-runs the orders
// this operator could execute and reports their estimated profit.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	client := a.newChainClient()
	defer client.Close()

	_, operator, err := a.operatorIdentity()
	if err != nil {
		return err
	}

	source := events.NewSource(client, a.diamond(), a.Logger)
	ldr := loader.New(source, a.sowBlueprint(), a.Logger)

	snaps, head, err := ldr.Load(ctx, a.loadOptions())
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(os.Stdout, "no published requisitions found")
		return nil
	}

	now := time.Now()

	profits := make(map[int]string)
	if opts.Simulate {
		oracle, err := a.newOracle(client)
		if err != nil {
			return err
		}
		sim := simulator.New(client, oracle, a.diamond(), operator, a.Logger)

		executable := eligibility.Executable(snaps, now, operator)
		results := sim.SimulateAll(ctx, executable)
		byHash := make(map[string]simulator.Result, len(results))
		for _, res := range results {
			byHash[res.Snapshot.Requisition.BlueprintHash.Hex()] = res
		}
		for i, snap := range snaps {
			res, ok := byHash[snap.Requisition.BlueprintHash.Hex()]
			if !ok {
				continue
			}
			switch {
			case !res.OK:
				profits[i] = "revert: " + sanitizeInline(res.Reason)
			case res.ProfitUSD != nil:
				profits[i] = res.ProfitUSD.StringFixed(2)
			default:
				profits[i] = "unknown"
			}
		}
	}

	fmt.Fprintf(os.Stdout, "block %d, %d published requisitions\n\n", head.Number, len(snaps))

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Blueprint\tPublisher\tState\tEligible\tTip\tProfit USD")

	for i, snap := range snaps {
		state := eligibility.StateAt(snap, now)

		eligible := "no"
		if eligibility.EligibleFor(snap, operator) {
			eligible = "yes"
		}

		tip := ""
		if snap.Decode.Decoded() {
			tip = snap.Decode.Order.Operator.TipAmountValue
		} else {
			tip = "(" + snap.Decode.Status.String() + ")"
		}

		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			shortHash(snap.Requisition.BlueprintHash.Hex()),
			shortHash(snap.Requisition.Blueprint.Publisher.Hex()),
			state,
			eligible,
			tip,
			profits[i],
		)
	}

	writer.Flush()
	return nil
}
