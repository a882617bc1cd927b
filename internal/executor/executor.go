package executor

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/pinto-org/tractor-operator/internal/blueprint"
	"github.com/pinto-org/tractor-operator/internal/chain"
	"github.com/pinto-org/tractor-operator/internal/loader"
	"github.com/pinto-org/tractor-operator/internal/simulator"
)

// Mode selects whether orders are actually submitted.
type Mode string

const (
	// ModePreview stops after a successful re-simulation without submitting.
	ModePreview Mode = "preview"
	// ModeExecute signs and submits the order for on-chain execution.
	ModeExecute Mode = "execute"
)

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePreview, ModeExecute:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown execution mode %q (want preview or execute)", s)
}

// State is a step in the per-order execution state machine. Every order ends
// in exactly one terminal state per cycle; failures are terminal and never
// retried within the cycle.
type State string

const (
	StatePending          State = "PENDING"
	StateSimulating       State = "SIMULATING"
	StateSimulationFailed State = "SIMULATION_FAILED"
	StateSimulationOK     State = "SIMULATION_OK"
	StatePreviewStopped   State = "PREVIEW_STOPPED"
	StateSubmitting       State = "SUBMITTING"
	StateSubmitted        State = "SUBMITTED"
	StateConfirmed        State = "CONFIRMED"
	StateSubmitFailed     State = "SUBMIT_FAILED"
)

// Outcome is the terminal record of one execution attempt.
type Outcome struct {
	BlueprintHash common.Hash
	State         State
	Reason        string
	TxHash        common.Hash
	BlockNumber   uint64
}

// Simulator re-runs a dry-run immediately before submission.
type Simulator interface {
	Simulate(ctx context.Context, snap loader.Snapshot) simulator.Result
}

// Executor drives the per-order state machine: re-simulate defensively, then
// either stop (preview) or sign, submit, and await confirmation.
type Executor struct {
	sim       Simulator
	caller    chain.Caller
	submitter chain.Submitter
	key       *ecdsa.PrivateKey
	operator  common.Address
	diamond   common.Address
	mode      Mode
	logger    zerolog.Logger
}

// New constructs an Executor. A signing key is required in execute mode;
// preview mode runs without one.
func New(sim Simulator, caller chain.Caller, submitter chain.Submitter, key *ecdsa.PrivateKey, operator, diamond common.Address, mode Mode, logger zerolog.Logger) (*Executor, error) {
	if mode == ModeExecute && key == nil {
		return nil, errors.New("execute mode requires an operator private key")
	}
	return &Executor{
		sim:       sim,
		caller:    caller,
		submitter: submitter,
		key:       key,
		operator:  operator,
		diamond:   diamond,
		mode:      mode,
		logger:    logger.With().Str("component", "executor").Logger(),
	}, nil
}

// Execute runs one order to a terminal state. State drift between evaluation
// and execution is guarded by always re-simulating first.
func (e *Executor) Execute(ctx context.Context, res simulator.Result) Outcome {
	hash := res.Snapshot.Requisition.BlueprintHash
	log := e.logger.With().Str("blueprint", hash.Hex()).Logger()

	outcome := Outcome{BlueprintHash: hash, State: StatePending}

	outcome.State = StateSimulating
	recheck := e.sim.Simulate(ctx, res.Snapshot)
	if !recheck.OK {
		outcome.State = StateSimulationFailed
		outcome.Reason = recheck.Reason
		log.Info().Str("reason", recheck.Reason).Msg("re-simulation failed; order skipped")
		return outcome
	}
	outcome.State = StateSimulationOK

	if e.mode == ModePreview {
		outcome.State = StatePreviewStopped
		log.Info().Msg("preview mode: stopping after successful re-simulation")
		return outcome
	}

	outcome.State = StateSubmitting
	tx, err := e.submit(ctx, res.Snapshot, recheck.GasEstimate)
	if err != nil {
		outcome.State = StateSubmitFailed
		outcome.Reason = err.Error()
		log.Error().Err(err).Msg("submission failed")
		return outcome
	}
	outcome.State = StateSubmitted
	outcome.TxHash = tx.Hash()
	log.Info().Str("tx", tx.Hash().Hex()).Msg("order submitted")

	receipt, err := bind.WaitMined(ctx, e.submitter, tx)
	if err != nil {
		outcome.State = StateSubmitFailed
		outcome.Reason = fmt.Sprintf("await confirmation: %v", err)
		log.Error().Err(err).Str("tx", tx.Hash().Hex()).Msg("confirmation failed")
		return outcome
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		outcome.State = StateSubmitFailed
		outcome.Reason = "transaction reverted on chain"
		outcome.BlockNumber = receipt.BlockNumber.Uint64()
		log.Error().Str("tx", tx.Hash().Hex()).Uint64("block", outcome.BlockNumber).Msg("transaction reverted")
		return outcome
	}

	outcome.State = StateConfirmed
	outcome.BlockNumber = receipt.BlockNumber.Uint64()
	log.Info().Str("tx", tx.Hash().Hex()).Uint64("block", outcome.BlockNumber).Msg("order confirmed")
	return outcome
}

func (e *Executor) submit(ctx context.Context, snap loader.Snapshot, gasEstimate *big.Int) (*types.Transaction, error) {
	data, err := blueprint.PackTractor(snap.Requisition, nil)
	if err != nil {
		return nil, err
	}

	gasLimit, err := e.gasLimit(ctx, data, gasEstimate)
	if err != nil {
		return nil, err
	}

	chainID, err := e.submitter.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve chain id: %w", err)
	}
	nonce, err := e.submitter.PendingNonceAt(ctx, e.operator)
	if err != nil {
		return nil, fmt.Errorf("resolve nonce: %w", err)
	}
	tipCap, err := e.submitter.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip cap: %w", err)
	}
	feeCap, err := e.submitter.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas fee cap: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &e.diamond,
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), e.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := e.submitter.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	return signed, nil
}

// gasLimit reuses the re-simulation's estimate with 20% headroom, falling
// back to a fresh estimate when the re-simulation could not produce one.
func (e *Executor) gasLimit(ctx context.Context, data []byte, estimate *big.Int) (uint64, error) {
	gas := uint64(0)
	if estimate != nil {
		gas = estimate.Uint64()
	} else {
		fresh, err := e.caller.EstimateGas(ctx, ethereum.CallMsg{From: e.operator, To: &e.diamond, Data: data})
		if err != nil {
			return 0, fmt.Errorf("estimate gas: %w", err)
		}
		gas = fresh
	}
	return gas + gas/5, nil
}
