package app

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pinto-org/tractor-operator/internal/chain"
	"github.com/pinto-org/tractor-operator/internal/config"
	"github.com/pinto-org/tractor-operator/internal/events"
	"github.com/pinto-org/tractor-operator/internal/executor"
	"github.com/pinto-org/tractor-operator/internal/loader"
	"github.com/pinto-org/tractor-operator/internal/pricing"
	"github.com/pinto-org/tractor-operator/internal/scheduler"
	"github.com/pinto-org/tractor-operator/internal/service"
	"github.com/pinto-org/tractor-operator/internal/simulator"
	"github.com/pinto-org/tractor-operator/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newChainClient() *chain.Client {
	return chain.New(chain.Options{
		RPCURL:  a.Config.Chain.RPCURL,
		Timeout: a.Config.Chain.RequestTimeout,
	}, a.Logger)
}

func (a *App) diamond() common.Address {
	return common.HexToAddress(a.Config.Tractor.DiamondAddress)
}

func (a *App) sowBlueprint() common.Address {
	return common.HexToAddress(a.Config.Tractor.SowBlueprintAddress)
}

func (a *App) loadOptions() loader.Options {
	opts := loader.Options{}
	if a.Config.Tractor.PublisherFilter != "" {
		publisher := common.HexToAddress(a.Config.Tractor.PublisherFilter)
		opts.Publisher = &publisher
	}
	return opts
}

// operatorIdentity resolves the signing key (when configured) and the
// operator address used for simulation and whitelist checks.
func (a *App) operatorIdentity() (*ecdsa.PrivateKey, common.Address, error) {
	if a.Config.Operator.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(a.Config.Operator.PrivateKey, "0x"))
		if err != nil {
			return nil, common.Address{}, fmt.Errorf("parse operator private key: %w", err)
		}
		return key, crypto.PubkeyToAddress(key.PublicKey), nil
	}
	if a.Config.Operator.Address == "" {
		return nil, common.Address{}, errors.New("operator identity not configured")
	}
	return nil, common.HexToAddress(a.Config.Operator.Address), nil
}

func (a *App) newOracle(client *chain.Client) (pricing.Oracle, error) {
	cfg := a.Config.Pricing
	if cfg.BaseAssetFeed != "" && cfg.TipAssetFeed != "" {
		return pricing.NewChainlinkFeeds(client, pricing.FeedOptions{
			BaseAssetFeed: common.HexToAddress(cfg.BaseAssetFeed),
			TipAssetFeed:  common.HexToAddress(cfg.TipAssetFeed),
		}, a.Logger)
	}

	base, err := decimal.NewFromString(cfg.StaticBaseUSD)
	if err != nil {
		return nil, fmt.Errorf("parse pricing.static_base_usd: %w", err)
	}
	tip, err := decimal.NewFromString(cfg.StaticTipUSD)
	if err != nil {
		return nil, fmt.Errorf("parse pricing.static_tip_usd: %w", err)
	}
	return pricing.Static{Base: base, Tip: tip}, nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running polling service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; auditing disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	client := a.newChainClient()
	defer client.Close()

	key, operator, err := a.operatorIdentity()
	if err != nil {
		return err
	}

	oracle, err := a.newOracle(client)
	if err != nil {
		return err
	}

	mode, err := executor.ParseMode(a.Config.Operator.Mode)
	if err != nil {
		return err
	}

	source := events.NewSource(client, a.diamond(), a.Logger)
	ldr := loader.New(source, a.sowBlueprint(), a.Logger)
	sim := simulator.New(client, oracle, a.diamond(), operator, a.Logger)

	exec, err := executor.New(sim, client, client, key, operator, a.diamond(), mode, a.Logger)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	var cycleStore storage.CycleStore
	var execStore storage.ExecutionStore
	if store != nil {
		cycleStore = store
		execStore = store
	}

	svc := service.New(service.Options{
		Scheduler:      sched,
		Loader:         ldr,
		Simulator:      sim,
		Executor:       exec,
		CycleStore:     cycleStore,
		ExecutionStore: execStore,
		Operator:       operator,
		LoadOptions:    a.loadOptions(),
	}, a.Logger)

	a.Logger.Info().
		Str("mode", string(mode)).
		Str("operator", operator.Hex()).
		Msg("starting operator service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("operator service stopped")
	return nil
}

// ExportOptions hold parameters for exporting cycle history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ScanOptions configure the one-shot scan command.
type ScanOptions struct {
	Simulate bool
}

// DecodeOptions configure the offline payload decode command.
type DecodeOptions struct {
	DataHex string
}
