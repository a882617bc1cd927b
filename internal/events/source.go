package events

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/pinto-org/tractor-operator/internal/blueprint"
	"github.com/pinto-org/tractor-operator/internal/chain"
)

// Head is the chain tip a cycle evaluates against.
type Head struct {
	Number    uint64
	Timestamp uint64
}

// Published is a normalized publish event: the embedded requisition plus the
// originating block metadata.
type Published struct {
	Requisition blueprint.Requisition
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// Source fetches the two append-only tractor event streams. The full history
// is refetched every cycle; correctness over efficiency.
type Source struct {
	reader  chain.LogReader
	diamond common.Address
	logger  zerolog.Logger
}

// NewSource constructs an event source for the given diamond contract.
func NewSource(reader chain.LogReader, diamond common.Address, logger zerolog.Logger) *Source {
	return &Source{
		reader:  reader,
		diamond: diamond,
		logger:  logger.With().Str("component", "event_source").Logger(),
	}
}

// LatestHead returns the current block number and timestamp.
func (s *Source) LatestHead(ctx context.Context) (Head, error) {
	header, err := s.reader.HeaderByNumber(ctx, nil)
	if err != nil {
		return Head{}, fmt.Errorf("fetch latest header: %w", err)
	}
	return Head{Number: header.Number.Uint64(), Timestamp: header.Time}, nil
}

// BlockTime returns the timestamp of the given block.
func (s *Source) BlockTime(ctx context.Context, number uint64) (uint64, error) {
	header, err := s.reader.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fmt.Errorf("fetch header %d: %w", number, err)
	}
	return header.Time, nil
}

// FetchPublished returns every PublishRequisition event up to and including
// toBlock, normalized to the Requisition shape. A log that fails to decode is
// dropped with a warning; one bad event never aborts the batch.
func (s *Source) FetchPublished(ctx context.Context, toBlock uint64) ([]Published, error) {
	logs, err := s.reader.FilterLogs(ctx, s.query(blueprint.PublishRequisitionTopic(), toBlock))
	if err != nil {
		return nil, fmt.Errorf("filter publish events: %w", err)
	}

	published := make([]Published, 0, len(logs))
	for _, log := range logs {
		req, parseErr := blueprint.ParsePublishLog(log)
		if parseErr != nil {
			s.logger.Warn().Err(parseErr).
				Uint64("block", log.BlockNumber).
				Str("tx", log.TxHash.Hex()).
				Msg("dropping malformed publish event")
			continue
		}
		published = append(published, Published{
			Requisition: req,
			BlockNumber: log.BlockNumber,
			TxHash:      log.TxHash,
			LogIndex:    log.Index,
		})
	}
	return published, nil
}

// FetchCancelled returns the set of blueprint hashes cancelled at or before
// toBlock. Malformed cancel events are dropped with a warning.
func (s *Source) FetchCancelled(ctx context.Context, toBlock uint64) (map[common.Hash]struct{}, error) {
	logs, err := s.reader.FilterLogs(ctx, s.query(blueprint.CancelBlueprintTopic(), toBlock))
	if err != nil {
		return nil, fmt.Errorf("filter cancel events: %w", err)
	}

	cancelled := make(map[common.Hash]struct{}, len(logs))
	for _, log := range logs {
		hash, parseErr := blueprint.ParseCancelLog(log)
		if parseErr != nil {
			s.logger.Warn().Err(parseErr).
				Uint64("block", log.BlockNumber).
				Msg("dropping malformed cancel event")
			continue
		}
		cancelled[hash] = struct{}{}
	}
	return cancelled, nil
}

func (s *Source) query(topic common.Hash, toBlock uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{s.diamond},
		Topics:    [][]common.Hash{{topic}},
	}
}
