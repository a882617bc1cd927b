package loader

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/pinto-org/tractor-operator/internal/blueprint"
	"github.com/pinto-org/tractor-operator/internal/events"
)

// EventSource is the slice of the event source the loader consumes.
type EventSource interface {
	LatestHead(ctx context.Context) (events.Head, error)
	FetchPublished(ctx context.Context, toBlock uint64) ([]events.Published, error)
	FetchCancelled(ctx context.Context, toBlock uint64) (map[common.Hash]struct{}, error)
	BlockTime(ctx context.Context, number uint64) (uint64, error)
}

// Snapshot is the point-in-time view of one published requisition: the
// requisition itself, whether a cancel event referenced its hash by the
// reference block, its decoded order parameters (or the reason there are
// none), and the originating block metadata. Snapshots are rebuilt from the
// event history every cycle and never persisted.
type Snapshot struct {
	Requisition blueprint.Requisition
	IsCancelled bool
	Decode      blueprint.DecodeResult
	BlockNumber uint64
	Timestamp   uint64
}

// Options narrow the loaded set.
type Options struct {
	// Publisher restricts to requisitions published by one identity.
	Publisher *common.Address
	// OnlySowOrders silently drops requisitions whose payload is not a
	// decodable sow order.
	OnlySowOrders bool
}

// Loader joins the publish and cancel streams into requisition snapshots.
type Loader struct {
	source EventSource
	target common.Address // sow order contract the decoder matches against
	logger zerolog.Logger
}

// New constructs a Loader decoding against the given sow order contract.
func New(source EventSource, target common.Address, logger zerolog.Logger) *Loader {
	return &Loader{
		source: source,
		target: target,
		logger: logger.With().Str("component", "loader").Logger(),
	}
}

// Load fetches both event streams at the current head and returns one
// snapshot per published requisition, plus the reference head.
func (l *Loader) Load(ctx context.Context, opts Options) ([]Snapshot, events.Head, error) {
	head, err := l.source.LatestHead(ctx)
	if err != nil {
		return nil, events.Head{}, fmt.Errorf("resolve reference head: %w", err)
	}

	published, err := l.source.FetchPublished(ctx, head.Number)
	if err != nil {
		return nil, head, err
	}
	cancelled, err := l.source.FetchCancelled(ctx, head.Number)
	if err != nil {
		return nil, head, err
	}

	blockTimes := make(map[uint64]uint64)
	snapshots := make([]Snapshot, 0, len(published))
	for _, pub := range published {
		if opts.Publisher != nil && pub.Requisition.Blueprint.Publisher != *opts.Publisher {
			continue
		}

		decode := blueprint.DecodeSowOrder(pub.Requisition.Blueprint.Data, l.target)
		if opts.OnlySowOrders && !decode.Decoded() {
			continue
		}
		if decode.Status == blueprint.StatusMalformed {
			l.logger.Warn().
				Str("blueprint", pub.Requisition.BlueprintHash.Hex()).
				Str("reason", decode.Reason).
				Msg("requisition payload malformed")
		}

		ts, ok := blockTimes[pub.BlockNumber]
		if !ok {
			var tsErr error
			ts, tsErr = l.source.BlockTime(ctx, pub.BlockNumber)
			if tsErr != nil {
				// Partial data: the snapshot proceeds without a timestamp.
				// Failures are not memoized, so a later event in the same
				// block gets a fresh lookup.
				l.logger.Warn().Err(tsErr).Uint64("block", pub.BlockNumber).
					Msg("could not resolve block timestamp")
				ts = 0
			} else {
				blockTimes[pub.BlockNumber] = ts
			}
		}

		_, isCancelled := cancelled[pub.Requisition.BlueprintHash]
		snapshots = append(snapshots, Snapshot{
			Requisition: pub.Requisition,
			IsCancelled: isCancelled,
			Decode:      decode,
			BlockNumber: pub.BlockNumber,
			Timestamp:   ts,
		})
	}

	return snapshots, head, nil
}
