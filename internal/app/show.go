package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent execution attempts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show executions")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListRecentExecutions(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no executions found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tBlueprint\tState\tProfit USD\tTx\tBlock\tReason")

	for _, rec := range records {
		profit := ""
		if rec.ProfitUSD != nil {
			profit = rec.ProfitUSD.StringFixed(2)
		}
		txHash := ""
		if rec.TxHash != nil {
			txHash = *rec.TxHash
		}
		block := ""
		if rec.BlockNumber != nil {
			block = fmt.Sprintf("%d", *rec.BlockNumber)
		}
		reason := ""
		if rec.Reason != nil {
			reason = sanitizeInline(*rec.Reason)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.StartedAt.UTC().Format(time.RFC3339),
			shortHash(rec.BlueprintHash),
			rec.State,
			profit,
			shortHash(txHash),
			block,
			reason,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

// shortHash truncates a 0x hash for table output.
func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:10] + ".."
}
