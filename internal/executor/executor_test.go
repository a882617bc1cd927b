package executor

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/pinto-org/tractor-operator/internal/blueprint"
	"github.com/pinto-org/tractor-operator/internal/loader"
	"github.com/pinto-org/tractor-operator/internal/simulator"
)

type fakeSim struct {
	ok     bool
	reason string
	gas    *big.Int
}

func (f *fakeSim) Simulate(ctx context.Context, snap loader.Snapshot) simulator.Result {
	return simulator.Result{Snapshot: snap, OK: f.ok, Reason: f.reason, GasEstimate: f.gas}
}

type fakeSubmitter struct {
	mu        sync.Mutex
	sent      []*types.Transaction
	sendErr   error
	receipt   *types.Receipt
	gas       uint64
	estimates int
}

func (f *fakeSubmitter) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1337), nil
}

func (f *fakeSubmitter) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeSubmitter) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeSubmitter) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(20_000_000_000), nil
}

func (f *fakeSubmitter) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeSubmitter) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return f.receipt, nil
}

func (f *fakeSubmitter) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeSubmitter) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeSubmitter) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimates++
	return f.gas, nil
}

func testResult() simulator.Result {
	return simulator.Result{
		Snapshot: loader.Snapshot{
			Requisition: blueprint.Requisition{
				Blueprint: blueprint.Blueprint{
					MaxNonce:  big.NewInt(1),
					StartTime: big.NewInt(0),
					EndTime:   big.NewInt(1 << 32),
				},
				BlueprintHash: common.HexToHash("0x42"),
			},
		},
		OK: true,
	}
}

func TestPreviewStopsWithoutSubmitting(t *testing.T) {
	sub := &fakeSubmitter{}
	exec, err := New(&fakeSim{ok: true, gas: big.NewInt(100000)}, sub, sub, nil, common.Address{}, common.Address{}, ModePreview, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outcome := exec.Execute(context.Background(), testResult())
	if outcome.State != StatePreviewStopped {
		t.Fatalf("state = %s, want PREVIEW_STOPPED", outcome.State)
	}
	if len(sub.sent) != 0 {
		t.Fatal("preview mode must never submit")
	}
}

func TestReSimulationFailureIsTerminal(t *testing.T) {
	sub := &fakeSubmitter{}
	exec, err := New(&fakeSim{ok: false, reason: "blueprint used up"}, sub, sub, nil, common.Address{}, common.Address{}, ModePreview, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outcome := exec.Execute(context.Background(), testResult())
	if outcome.State != StateSimulationFailed {
		t.Fatalf("state = %s, want SIMULATION_FAILED", outcome.State)
	}
	if outcome.Reason != "blueprint used up" {
		t.Fatalf("reason = %q", outcome.Reason)
	}
}

func TestExecuteSubmitsAndConfirms(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sub := &fakeSubmitter{
		receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1234)},
	}
	operator := crypto.PubkeyToAddress(key.PublicKey)

	exec, err := New(&fakeSim{ok: true, gas: big.NewInt(100000)}, sub, sub, key, operator, common.Address{}, ModeExecute, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outcome := exec.Execute(context.Background(), testResult())
	if outcome.State != StateConfirmed {
		t.Fatalf("state = %s, want CONFIRMED (reason %q)", outcome.State, outcome.Reason)
	}
	if outcome.BlockNumber != 1234 {
		t.Fatalf("block = %d, want 1234", outcome.BlockNumber)
	}
	if len(sub.sent) != 1 {
		t.Fatalf("sent = %d transactions, want 1", len(sub.sent))
	}
	if sub.sent[0].Gas() != 120000 {
		t.Fatalf("gas limit = %d, want estimate plus headroom", sub.sent[0].Gas())
	}
	if outcome.TxHash != sub.sent[0].Hash() {
		t.Fatal("outcome should carry the submitted tx hash")
	}
}

func TestSubmitFailureIsTerminal(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sub := &fakeSubmitter{sendErr: errors.New("nonce too low"), gas: 50000}

	exec, err := New(&fakeSim{ok: true}, sub, sub, key, crypto.PubkeyToAddress(key.PublicKey), common.Address{}, ModeExecute, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outcome := exec.Execute(context.Background(), testResult())
	if outcome.State != StateSubmitFailed {
		t.Fatalf("state = %s, want SUBMIT_FAILED", outcome.State)
	}
	if sub.estimates != 1 {
		t.Fatalf("estimates = %d, want fallback estimate when re-simulation had none", sub.estimates)
	}
}

func TestExecuteModeRequiresKey(t *testing.T) {
	sub := &fakeSubmitter{}
	if _, err := New(&fakeSim{}, sub, sub, nil, common.Address{}, common.Address{}, ModeExecute, zerolog.Nop()); err == nil {
		t.Fatal("execute mode without a key must be rejected")
	}
}

func TestParseMode(t *testing.T) {
	if _, err := ParseMode("preview"); err != nil {
		t.Fatalf("preview should parse: %v", err)
	}
	if _, err := ParseMode("execute"); err != nil {
		t.Fatalf("execute should parse: %v", err)
	}
	if _, err := ParseMode("yolo"); err == nil {
		t.Fatal("unknown mode should be rejected")
	}
}
