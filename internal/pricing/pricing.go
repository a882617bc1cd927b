package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Oracle supplies the two exchange rates the simulator needs to net a tip
// against an execution cost. Both rates are quoted against the same
// reference currency (USD); implementations must guarantee that, because
// profit comparison across candidates is meaningless otherwise.
type Oracle interface {
	// BaseAssetUSD is the USD price of the chain's gas asset.
	BaseAssetUSD(ctx context.Context) (decimal.Decimal, error)
	// TipAssetUSD is the USD price of the asset tips are denominated in.
	TipAssetUSD(ctx context.Context) (decimal.Decimal, error)
}

// Static is an Oracle with fixed configured rates.
type Static struct {
	Base decimal.Decimal
	Tip  decimal.Decimal
}

func (s Static) BaseAssetUSD(ctx context.Context) (decimal.Decimal, error) {
	return s.Base, nil
}

func (s Static) TipAssetUSD(ctx context.Context) (decimal.Decimal, error) {
	return s.Tip, nil
}

var _ Oracle = Static{}
