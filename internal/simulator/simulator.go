package simulator

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pinto-org/tractor-operator/internal/blueprint"
	"github.com/pinto-org/tractor-operator/internal/chain"
	"github.com/pinto-org/tractor-operator/internal/fixedpoint"
	"github.com/pinto-org/tractor-operator/internal/loader"
	"github.com/pinto-org/tractor-operator/internal/pricing"
)

var weiPerEther = decimal.New(1, 18)

// Result captures one candidate's dry-run outcome. A successful result may
// still miss cost or profit fields when a price lookup or gas estimate failed
// independently; ranking treats those as candidates without a profit
// estimate.
type Result struct {
	Snapshot loader.Snapshot

	OK     bool
	Reason string

	GasEstimate *big.Int
	GasCostWei  *big.Int
	CostUSD     *decimal.Decimal
	TipUSD      *decimal.Decimal
	ProfitUSD   *decimal.Decimal
}

// HasProfit reports whether a profit estimate could be derived.
func (r Result) HasProfit() bool {
	return r.ProfitUSD != nil
}

// Simulator dry-runs requisitions against current chain state and estimates
// execution profit in USD.
type Simulator struct {
	caller   chain.Caller
	oracle   pricing.Oracle
	diamond  common.Address
	operator common.Address
	logger   zerolog.Logger
}

// New constructs a Simulator calling the diamond as the given operator.
func New(caller chain.Caller, oracle pricing.Oracle, diamond, operator common.Address, logger zerolog.Logger) *Simulator {
	return &Simulator{
		caller:   caller,
		oracle:   oracle,
		diamond:  diamond,
		operator: operator,
		logger:   logger.With().Str("component", "simulator").Logger(),
	}
}

// Simulate dry-runs one requisition with empty operator data. A revert is an
// expected negative result, recorded as a short reason, never an error.
func (s *Simulator) Simulate(ctx context.Context, snap loader.Snapshot) Result {
	result := Result{Snapshot: snap}

	data, err := blueprint.PackTractor(snap.Requisition, nil)
	if err != nil {
		result.Reason = shortReason(err)
		return result
	}

	msg := ethereum.CallMsg{From: s.operator, To: &s.diamond, Data: data}
	if _, err := s.caller.CallContract(ctx, msg, nil); err != nil {
		result.Reason = shortReason(err)
		return result
	}
	result.OK = true

	hash := snap.Requisition.BlueprintHash

	// Each step below may fail on its own without failing the simulation;
	// the result just proceeds with the corresponding fields unset.
	gas, err := s.caller.EstimateGas(ctx, msg)
	if err != nil {
		s.logger.Warn().Err(err).Str("blueprint", hash.Hex()).Msg("gas estimation failed")
	} else {
		result.GasEstimate = new(big.Int).SetUint64(gas)
	}

	if result.GasEstimate != nil {
		gasPrice, priceErr := s.caller.SuggestGasPrice(ctx)
		if priceErr != nil {
			s.logger.Warn().Err(priceErr).Str("blueprint", hash.Hex()).Msg("gas price lookup failed")
		} else {
			result.GasCostWei = new(big.Int).Mul(result.GasEstimate, gasPrice)
		}
	}

	if result.GasCostWei != nil {
		baseUSD, rateErr := s.oracle.BaseAssetUSD(ctx)
		if rateErr != nil {
			s.logger.Warn().Err(rateErr).Str("blueprint", hash.Hex()).Msg("base asset rate lookup failed")
		} else {
			cost := decimal.NewFromBigInt(result.GasCostWei, 0).Div(weiPerEther).Mul(baseUSD)
			result.CostUSD = &cost
		}
	}

	if snap.Decode.Decoded() {
		tipUSD, rateErr := s.oracle.TipAssetUSD(ctx)
		if rateErr != nil {
			s.logger.Warn().Err(rateErr).Str("blueprint", hash.Hex()).Msg("tip asset rate lookup failed")
		} else {
			tip := fixedpoint.Decimal(snap.Decode.Order.Operator.TipAmount, fixedpoint.AmountDecimals).Mul(tipUSD)
			result.TipUSD = &tip
		}
	}

	if result.CostUSD != nil && result.TipUSD != nil {
		profit := result.TipUSD.Sub(*result.CostUSD)
		result.ProfitUSD = &profit
	}

	return result
}

// SimulateAll fans the candidates out to independent goroutines and fans the
// results back in input order. Each candidate's pipeline is isolated; no
// state is shared across the fan-out.
func (s *Simulator) SimulateAll(ctx context.Context, snapshots []loader.Snapshot) []Result {
	results := make([]Result, len(snapshots))

	var wg sync.WaitGroup
	for i, snap := range snapshots {
		wg.Add(1)
		go func(i int, snap loader.Snapshot) {
			defer wg.Done()
			results[i] = s.Simulate(ctx, snap)
		}(i, snap)
	}
	wg.Wait()

	return results
}

// shortReason trims an RPC error down to a caller-facing message.
func shortReason(err error) string {
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	const max = 200
	if len(msg) > max {
		msg = msg[:max]
	}
	return msg
}
