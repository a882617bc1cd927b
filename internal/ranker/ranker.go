package ranker

import (
	"sort"

	"github.com/pinto-org/tractor-operator/internal/simulator"
)

// Rank orders simulation-successful candidates by descending estimated
// profit. A candidate with a profit estimate always ranks above one without;
// candidates that both lack an estimate keep their input order. Failed
// simulations are excluded.
func Rank(results []simulator.Result) []simulator.Result {
	ranked := make([]simulator.Result, 0, len(results))
	for _, res := range results {
		if res.OK {
			ranked = append(ranked, res)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch {
		case a.HasProfit() && b.HasProfit():
			return a.ProfitUSD.GreaterThan(*b.ProfitUSD)
		case a.HasProfit():
			return true
		default:
			return false
		}
	})

	return ranked
}

// Best returns the top-ranked candidate, for callers that execute a single
// order per cycle.
func Best(results []simulator.Result) (simulator.Result, bool) {
	ranked := Rank(results)
	if len(ranked) == 0 {
		return simulator.Result{}, false
	}
	return ranked[0], true
}
