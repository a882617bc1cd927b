package simulator

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pinto-org/tractor-operator/internal/blueprint"
	"github.com/pinto-org/tractor-operator/internal/loader"
	"github.com/pinto-org/tractor-operator/internal/pricing"
)

type fakeCaller struct {
	callErr     error
	gas         uint64
	gasErr      error
	gasPrice    *big.Int
	gasPriceErr error
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, f.callErr
}

func (f *fakeCaller) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return f.gas, f.gasErr
}

func (f *fakeCaller) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, f.gasPriceErr
}

func decodedSnapshot(tip int64) loader.Snapshot {
	return loader.Snapshot{
		Requisition: blueprint.Requisition{
			Blueprint: blueprint.Blueprint{
				MaxNonce:  big.NewInt(1),
				StartTime: big.NewInt(0),
				EndTime:   big.NewInt(1 << 32),
			},
		},
		Decode: blueprint.DecodeResult{
			Status: blueprint.StatusDecoded,
			Order: &blueprint.SowOrder{
				Operator: blueprint.OperatorParams{TipAmount: big.NewInt(tip)},
			},
		},
	}
}

func TestSimulateProfit(t *testing.T) {
	// Tip of 100 units at 1 USD/unit, cost 2_000_000 gas at 10 gwei with the
	// base asset at 2000 USD: cost = 0.02 ether * 2000 = 40 USD, profit 60.
	caller := &fakeCaller{gas: 2_000_000, gasPrice: big.NewInt(10_000_000_000)}
	oracle := pricing.Static{Base: decimal.NewFromInt(2000), Tip: decimal.NewFromInt(1)}
	sim := New(caller, oracle, common.Address{}, common.Address{}, zerolog.Nop())

	res := sim.Simulate(context.Background(), decodedSnapshot(100_000000))
	if !res.OK {
		t.Fatalf("simulation failed: %s", res.Reason)
	}
	if res.CostUSD == nil || res.CostUSD.String() != "40" {
		t.Fatalf("cost = %v, want 40", res.CostUSD)
	}
	if res.TipUSD == nil || res.TipUSD.String() != "100" {
		t.Fatalf("tip = %v, want 100", res.TipUSD)
	}
	if !res.HasProfit() || res.ProfitUSD.String() != "60" {
		t.Fatalf("profit = %v, want 60", res.ProfitUSD)
	}
}

func TestSimulateRevertRecordsReason(t *testing.T) {
	caller := &fakeCaller{callErr: errors.New("execution reverted: blueprint expired\nextra detail")}
	sim := New(caller, pricing.Static{}, common.Address{}, common.Address{}, zerolog.Nop())

	res := sim.Simulate(context.Background(), decodedSnapshot(1))
	if res.OK {
		t.Fatal("reverting call must not be OK")
	}
	if res.Reason != "execution reverted: blueprint expired" {
		t.Fatalf("reason = %q", res.Reason)
	}
	if res.GasEstimate != nil || res.HasProfit() {
		t.Fatal("failed simulation must not carry cost estimates")
	}
}

func TestSimulatePartialFailureKeepsSuccess(t *testing.T) {
	caller := &fakeCaller{gasErr: errors.New("estimation unavailable")}
	oracle := pricing.Static{Base: decimal.NewFromInt(2000), Tip: decimal.NewFromInt(1)}
	sim := New(caller, oracle, common.Address{}, common.Address{}, zerolog.Nop())

	res := sim.Simulate(context.Background(), decodedSnapshot(100_000000))
	if !res.OK {
		t.Fatal("gas estimate failure must not fail the simulation")
	}
	if res.CostUSD != nil || res.HasProfit() {
		t.Fatal("cost and profit should be unset when estimation failed")
	}
	if res.TipUSD == nil {
		t.Fatal("tip conversion is independent of gas estimation")
	}
}

func TestSimulateAllPreservesOrderAndIsolation(t *testing.T) {
	ok := &fakeCaller{gas: 21000, gasPrice: big.NewInt(1)}
	oracle := pricing.Static{Base: decimal.NewFromInt(1), Tip: decimal.NewFromInt(1)}
	sim := New(ok, oracle, common.Address{}, common.Address{}, zerolog.Nop())

	snaps := []loader.Snapshot{
		decodedSnapshot(1_000000),
		decodedSnapshot(2_000000),
		decodedSnapshot(3_000000),
	}
	results := sim.SimulateAll(context.Background(), snaps)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, res := range results {
		want := big.NewInt(int64(i+1) * 1_000000)
		got := res.Snapshot.Decode.Order.Operator.TipAmount
		if got.Cmp(want) != 0 {
			t.Fatalf("result %d out of order: tip %s, want %s", i, got, want)
		}
		if !res.OK {
			t.Fatalf("result %d failed: %s", i, res.Reason)
		}
	}
}
