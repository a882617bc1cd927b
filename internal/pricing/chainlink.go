package pricing

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pinto-org/tractor-operator/internal/chain"
)

const aggregatorABIJSON = `[
{"name":"latestRoundData","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"roundId","type":"uint80"},{"name":"answer","type":"int256"},{"name":"startedAt","type":"uint256"},{"name":"updatedAt","type":"uint256"},{"name":"answeredInRound","type":"uint80"}]},
{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var aggregatorABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		panic("failed to parse aggregator ABI: " + err.Error())
	}
	aggregatorABI = parsed
}

// FeedOptions name the two Chainlink-compatible USD aggregators.
type FeedOptions struct {
	BaseAssetFeed common.Address
	TipAssetFeed  common.Address
}

// ChainlinkFeeds reads USD rates from two on-chain aggregators. Requiring
// both feeds up front is what guarantees the shared-value-unit contract of
// the Oracle interface.
type ChainlinkFeeds struct {
	caller chain.Caller
	opts   FeedOptions
	logger zerolog.Logger
}

// NewChainlinkFeeds constructs the on-chain oracle.
func NewChainlinkFeeds(caller chain.Caller, opts FeedOptions, logger zerolog.Logger) (*ChainlinkFeeds, error) {
	if opts.BaseAssetFeed == (common.Address{}) || opts.TipAssetFeed == (common.Address{}) {
		return nil, errors.New("both base asset and tip asset USD feeds must be configured")
	}
	return &ChainlinkFeeds{
		caller: caller,
		opts:   opts,
		logger: logger.With().Str("component", "price_oracle").Logger(),
	}, nil
}

func (c *ChainlinkFeeds) BaseAssetUSD(ctx context.Context) (decimal.Decimal, error) {
	return c.readFeed(ctx, c.opts.BaseAssetFeed)
}

func (c *ChainlinkFeeds) TipAssetUSD(ctx context.Context) (decimal.Decimal, error) {
	return c.readFeed(ctx, c.opts.TipAssetFeed)
}

func (c *ChainlinkFeeds) readFeed(ctx context.Context, feed common.Address) (decimal.Decimal, error) {
	answer, err := c.callInt(ctx, feed, "latestRoundData")
	if err != nil {
		return decimal.Decimal{}, err
	}
	if answer.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("feed %s returned non-positive answer", feed.Hex())
	}

	payload, err := aggregatorABI.Pack("decimals")
	if err != nil {
		return decimal.Decimal{}, err
	}
	res, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &feed, Data: payload}, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("read feed decimals: %w", err)
	}
	outputs, err := aggregatorABI.Unpack("decimals", res)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode feed decimals: %w", err)
	}
	places, ok := outputs[0].(uint8)
	if !ok {
		return decimal.Decimal{}, errors.New("unexpected decimals response")
	}

	return decimal.NewFromBigInt(answer, -int32(places)), nil
}

func (c *ChainlinkFeeds) callInt(ctx context.Context, feed common.Address, method string) (*big.Int, error) {
	payload, err := aggregatorABI.Pack(method)
	if err != nil {
		return nil, err
	}
	res, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &feed, Data: payload}, nil)
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", feed.Hex(), err)
	}
	outputs, err := aggregatorABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("decode feed %s: %w", feed.Hex(), err)
	}
	if len(outputs) < 2 {
		return nil, errors.New("unexpected latestRoundData response")
	}
	answer, ok := outputs[1].(*big.Int)
	if !ok {
		return nil, errors.New("failed to decode feed answer")
	}
	return answer, nil
}

var _ Oracle = (*ChainlinkFeeds)(nil)
