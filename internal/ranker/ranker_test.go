package ranker

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/pinto-org/tractor-operator/internal/blueprint"
	"github.com/pinto-org/tractor-operator/internal/loader"
	"github.com/pinto-org/tractor-operator/internal/simulator"
)

func candidate(hash byte, ok bool, profit *int64) simulator.Result {
	res := simulator.Result{
		Snapshot: loader.Snapshot{
			Requisition: blueprint.Requisition{BlueprintHash: common.Hash{hash}},
		},
		OK: ok,
	}
	if profit != nil {
		p := decimal.NewFromInt(*profit)
		res.ProfitUSD = &p
	}
	return res
}

func ptr(v int64) *int64 { return &v }

func TestRankDescendingProfitWithUndefinedLast(t *testing.T) {
	a := candidate(0xA, true, ptr(10))
	b := candidate(0xB, true, ptr(5))
	c := candidate(0xC, true, nil)

	for _, input := range [][]simulator.Result{
		{a, b, c},
		{c, b, a},
		{b, c, a},
	} {
		ranked := Rank(input)
		if len(ranked) != 3 {
			t.Fatalf("ranked = %d entries, want 3", len(ranked))
		}
		order := []byte{
			ranked[0].Snapshot.Requisition.BlueprintHash[0],
			ranked[1].Snapshot.Requisition.BlueprintHash[0],
			ranked[2].Snapshot.Requisition.BlueprintHash[0],
		}
		if order[0] != 0xA || order[1] != 0xB || order[2] != 0xC {
			t.Fatalf("rank order = %x, want [a b c]", order)
		}
	}
}

func TestRankExcludesFailedSimulations(t *testing.T) {
	ranked := Rank([]simulator.Result{
		candidate(0xA, false, ptr(100)),
		candidate(0xB, true, ptr(1)),
	})
	if len(ranked) != 1 || ranked[0].Snapshot.Requisition.BlueprintHash[0] != 0xB {
		t.Fatalf("failed simulation leaked into ranking: %d entries", len(ranked))
	}
}

func TestRankStableForUndefinedProfits(t *testing.T) {
	x := candidate(0x01, true, nil)
	y := candidate(0x02, true, nil)
	ranked := Rank([]simulator.Result{x, y})
	if ranked[0].Snapshot.Requisition.BlueprintHash[0] != 0x01 {
		t.Fatal("undefined-profit candidates must keep input order")
	}
}

func TestBest(t *testing.T) {
	if _, ok := Best(nil); ok {
		t.Fatal("Best of empty input should report no candidate")
	}

	best, ok := Best([]simulator.Result{
		candidate(0xB, true, ptr(5)),
		candidate(0xA, true, ptr(10)),
	})
	if !ok || best.Snapshot.Requisition.BlueprintHash[0] != 0xA {
		t.Fatal("Best should return the highest-profit candidate")
	}
}
