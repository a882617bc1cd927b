package blueprint

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Blueprint is the immutable order description a publisher signs. Field
// layout mirrors the tractor facet's Blueprint struct.
type Blueprint struct {
	Publisher           common.Address
	Data                []byte
	OperatorPasteInstrs [][32]byte
	MaxNonce            *big.Int
	StartTime           *big.Int // unix seconds, inclusive
	EndTime             *big.Int // unix seconds, exclusive
}

// Requisition is a published Blueprint together with its hash and the
// publisher's authorization signature.
type Requisition struct {
	Blueprint     Blueprint
	BlueprintHash common.Hash
	Signature     []byte
}

// OperatorParams carries the operator-facing half of a sow order. An empty
// Whitelist means any operator may execute.
type OperatorParams struct {
	Whitelist      []common.Address
	TipAddress     common.Address
	TipAmount      *big.Int // signed, AmountDecimals fixed point
	TipAmountValue string
}

// SowOrder is the decoded form of a sowBlueprintv0 payload. Every fixed-point
// field is kept in both representations: the wire integer for arithmetic and
// the human decimal string for display and config round-trips.
type SowOrder struct {
	SourceTokenIndices []uint8

	TotalAmount      *big.Int
	TotalAmountValue string

	MinAmountPerSeason      *big.Int
	MinAmountPerSeasonValue string

	MaxAmountPerSeason      *big.Int
	MaxAmountPerSeasonValue string

	MinTemp      *big.Int
	MinTempValue string

	MaxPodlineLength      *big.Int
	MaxPodlineLengthValue string

	MaxGrownStalkPerBDV      *big.Int
	MaxGrownStalkPerBDVValue string

	// Opaque configured block count; no unit conversion applies.
	RunBlocksAfterSunrise *big.Int

	SlippageRatio      *big.Int
	SlippageRatioValue string

	Operator OperatorParams
}

// WhitelistsOperator reports whether the order permits the given operator.
// Addresses compare case-insensitively; an empty whitelist permits everyone.
func (o *SowOrder) WhitelistsOperator(operator common.Address) bool {
	if len(o.Operator.Whitelist) == 0 {
		return true
	}
	for _, addr := range o.Operator.Whitelist {
		if addr == operator {
			return true
		}
	}
	return false
}
