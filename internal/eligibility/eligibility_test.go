package eligibility

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pinto-org/tractor-operator/internal/blueprint"
	"github.com/pinto-org/tractor-operator/internal/loader"
)

var operator = common.HexToAddress("0xAbCd000000000000000000000000000000000001")

func snapshot(start, end int64, cancelled bool, whitelist []common.Address) loader.Snapshot {
	return loader.Snapshot{
		Requisition: blueprint.Requisition{
			Blueprint: blueprint.Blueprint{
				StartTime: big.NewInt(start),
				EndTime:   big.NewInt(end),
			},
		},
		IsCancelled: cancelled,
		Decode: blueprint.DecodeResult{
			Status: blueprint.StatusDecoded,
			Order: &blueprint.SowOrder{
				Operator: blueprint.OperatorParams{Whitelist: whitelist},
			},
		},
	}
}

func TestStateAtWindowBoundaries(t *testing.T) {
	now := time.Unix(1000, 0)

	cases := []struct {
		name       string
		start, end int64
		want       State
	}{
		{"inside window", 500, 1500, StateActive},
		{"start boundary inclusive", 1000, 1500, StateActive},
		{"end boundary exclusive", 500, 1000, StateExpired},
		{"expired", 100, 900, StateExpired},
		{"pending", 1001, 2000, StatePending},
	}

	for _, c := range cases {
		snap := snapshot(c.start, c.end, false, nil)
		if got := StateAt(snap, now); got != c.want {
			t.Fatalf("%s: state = %s, want %s", c.name, got, c.want)
		}
	}
}

func TestCancelledWinsOverWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	snap := snapshot(500, 1500, true, nil)
	if got := StateAt(snap, now); got != StateCancelled {
		t.Fatalf("state = %s, want cancelled", got)
	}
	if active := Active([]loader.Snapshot{snap}, now); len(active) != 0 {
		t.Fatal("cancelled snapshot must never be active")
	}
}

func TestEligibleForWhitelist(t *testing.T) {
	// Empty whitelist: any operator is eligible.
	if !EligibleFor(snapshot(0, 2000, false, nil), operator) {
		t.Fatal("empty whitelist should permit every operator")
	}

	// Membership is case-insensitive over the hex form.
	listed := snapshot(0, 2000, false, []common.Address{
		common.HexToAddress("0xABCD000000000000000000000000000000000001"),
	})
	if !EligibleFor(listed, operator) {
		t.Fatal("whitelisted operator should be eligible")
	}

	other := snapshot(0, 2000, false, []common.Address{
		common.HexToAddress("0x9999000000000000000000000000000000000009"),
	})
	if EligibleFor(other, operator) {
		t.Fatal("non-whitelisted operator should not be eligible")
	}
}

func TestUndecodedNeverExecutable(t *testing.T) {
	now := time.Unix(1000, 0)
	snap := snapshot(500, 1500, false, nil)
	snap.Decode = blueprint.DecodeResult{Status: blueprint.StatusNotApplicable}

	if EligibleFor(snap, operator) {
		t.Fatal("snapshot without decoded parameters has no eligibility")
	}

	executable := Executable([]loader.Snapshot{snap}, now, operator)
	if len(executable) != 0 {
		t.Fatal("undecoded snapshot must be excluded from the executable set")
	}
	// It still counts as active for monitoring purposes.
	if len(Active([]loader.Snapshot{snap}, now)) != 1 {
		t.Fatal("undecoded snapshot should still appear active")
	}
}

func TestExecutableFiltersAll(t *testing.T) {
	now := time.Unix(1000, 0)
	snaps := []loader.Snapshot{
		snapshot(500, 1500, false, nil),  // executable
		snapshot(500, 1500, true, nil),   // cancelled
		snapshot(1100, 1500, false, nil), // pending
		snapshot(100, 900, false, nil),   // expired
		snapshot(500, 1500, false, []common.Address{common.HexToAddress("0x02")}), // not whitelisted
	}

	executable := Executable(snaps, now, operator)
	if len(executable) != 1 {
		t.Fatalf("executable = %d entries, want 1", len(executable))
	}
}
