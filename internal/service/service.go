package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/pinto-org/tractor-operator/internal/eligibility"
	"github.com/pinto-org/tractor-operator/internal/events"
	"github.com/pinto-org/tractor-operator/internal/executor"
	"github.com/pinto-org/tractor-operator/internal/loader"
	"github.com/pinto-org/tractor-operator/internal/ranker"
	"github.com/pinto-org/tractor-operator/internal/scheduler"
	"github.com/pinto-org/tractor-operator/internal/simulator"
	"github.com/pinto-org/tractor-operator/internal/storage"
)

// SnapshotLoader rebuilds the full order view from chain events.
type SnapshotLoader interface {
	Load(ctx context.Context, opts loader.Options) ([]loader.Snapshot, events.Head, error)
}

// Simulator dry-runs a batch of candidate orders.
type Simulator interface {
	SimulateAll(ctx context.Context, snaps []loader.Snapshot) []simulator.Result
}

// OrderExecutor drives one order to a terminal state.
type OrderExecutor interface {
	Execute(ctx context.Context, res simulator.Result) executor.Outcome
}

// Service orchestrates one polling cycle: load, filter, simulate, rank, and
// execute at most one order. Cycles share no state; each rebuilds its view
// from scratch.
type Service struct {
	scheduler  *scheduler.Scheduler
	loader     SnapshotLoader
	sim        Simulator
	exec       OrderExecutor
	cycleStore storage.CycleStore
	execStore  storage.ExecutionStore
	operator   common.Address
	loadOpts   loader.Options
	logger     zerolog.Logger
}

// Options collects service collaborators. CycleStore and ExecutionStore are
// optional audit sinks; a nil store disables auditing.
type Options struct {
	Scheduler      *scheduler.Scheduler
	Loader         SnapshotLoader
	Simulator      Simulator
	Executor       OrderExecutor
	CycleStore     storage.CycleStore
	ExecutionStore storage.ExecutionStore
	Operator       common.Address
	LoadOptions    loader.Options
}

// New constructs the operator service.
func New(opts Options, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:  opts.Scheduler,
		loader:     opts.Loader,
		sim:        opts.Simulator,
		exec:       opts.Executor,
		cycleStore: opts.CycleStore,
		execStore:  opts.ExecutionStore,
		operator:   opts.Operator,
		loadOpts:   opts.LoadOptions,
		logger:     logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.Cycle)
}

// Cycle executes one full evaluation pass. Evaluation failures against
// individual orders never abort the cycle; only a failed event load does.
func (s *Service) Cycle(ctx context.Context) error {
	started := time.Now().UTC()

	snaps, head, err := s.loader.Load(ctx, s.loadOpts)
	if err != nil {
		return fmt.Errorf("load order snapshots: %w", err)
	}

	now := time.Now()
	active := eligibility.Active(snaps, now)
	executable := eligibility.Executable(snaps, now, s.operator)

	s.logger.Info().
		Uint64("block", head.Number).
		Int("published", len(snaps)).
		Int("active", len(active)).
		Int("executable", len(executable)).
		Msg("order view rebuilt")

	run := storage.CycleRun{
		StartedAt:   started,
		BlockNumber: int64(head.Number),
		Published:   len(snaps),
		Active:      len(active),
		Executable:  len(executable),
	}

	if len(executable) == 0 {
		s.logger.Info().Msg("nothing executable this cycle")
		s.recordCycle(ctx, run)
		return nil
	}

	results := s.sim.SimulateAll(ctx, executable)
	ranked := ranker.Rank(results)
	run.Viable = len(ranked)

	if len(ranked) == 0 {
		s.logger.Info().Int("simulated", len(results)).Msg("no viable orders after simulation")
		s.recordCycle(ctx, run)
		return nil
	}
	if ranked[0].ProfitUSD != nil {
		run.BestProfit = ranked[0].ProfitUSD
	}

	// Orders execute strictly one at a time, best profit first. A terminal
	// failure on one order never stops the rest of the list.
	for _, candidate := range ranked {
		outcome := s.exec.Execute(ctx, candidate)
		run.Executed++

		s.logger.Info().
			Str("blueprint", outcome.BlueprintHash.Hex()).
			Str("state", string(outcome.State)).
			Msg("ranked order processed")

		s.recordExecution(ctx, started, candidate, outcome)
	}

	s.recordCycle(ctx, run)
	return nil
}

func (s *Service) recordCycle(ctx context.Context, run storage.CycleRun) {
	if s.cycleStore == nil {
		return
	}
	if _, err := s.cycleStore.InsertCycleRun(ctx, run); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist cycle run")
	}
}

func (s *Service) recordExecution(ctx context.Context, started time.Time, candidate simulator.Result, outcome executor.Outcome) {
	if s.execStore == nil {
		return
	}

	rec := storage.ExecutionRecord{
		StartedAt:     started,
		BlueprintHash: outcome.BlueprintHash.Hex(),
		State:         string(outcome.State),
		ProfitUSD:     candidate.ProfitUSD,
	}
	if outcome.Reason != "" {
		reason := outcome.Reason
		rec.Reason = &reason
	}
	if outcome.TxHash != (common.Hash{}) {
		hash := outcome.TxHash.Hex()
		rec.TxHash = &hash
	}
	if outcome.BlockNumber != 0 {
		block := int64(outcome.BlockNumber)
		rec.BlockNumber = &block
	}

	if _, err := s.execStore.InsertExecution(ctx, rec); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist execution record")
	}
}
