package blueprint

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pinto-org/tractor-operator/internal/fixedpoint"
)

// DecodeStatus classifies the outcome of decoding a blueprint payload.
type DecodeStatus int

const (
	// StatusNotApplicable means the payload is not a sow order. This is the
	// expected outcome for every other order type and is not an error.
	StatusNotApplicable DecodeStatus = iota
	// StatusDecoded means the full three-layer shape matched.
	StatusDecoded
	// StatusMalformed means the payload claimed to be a sow order but its
	// arguments did not unpack.
	StatusMalformed
)

func (s DecodeStatus) String() string {
	switch s {
	case StatusDecoded:
		return "decoded"
	case StatusMalformed:
		return "malformed"
	default:
		return "not_applicable"
	}
}

// DecodeResult is the tri-state outcome of DecodeSowOrder. Order is non-nil
// only when Status is StatusDecoded; Reason is set only for StatusMalformed.
type DecodeResult struct {
	Status DecodeStatus
	Order  *SowOrder
	Reason string
}

// Decoded reports whether the payload carried a usable sow order.
func (r DecodeResult) Decoded() bool {
	return r.Status == StatusDecoded && r.Order != nil
}

// An advanced call with no clipboard copy instructions.
var emptyClipboard = []byte{0x00, 0x00}

// EncodeSowOrder builds the triple-nested blueprint payload for a sow order:
// the sowBlueprintv0 call, wrapped in a single advancedPipe step targeting
// the sow order contract, wrapped in a single advancedFarm step. It returns
// the outer payload, the innermost calldata, and the operator paste
// instruction list (always empty in the current schema).
func EncodeSowOrder(order *SowOrder, target common.Address) ([]byte, []byte, [][32]byte, error) {
	if order == nil {
		return nil, nil, nil, fmt.Errorf("order must not be nil")
	}

	sowCalldata, err := sowBlueprintABI.Pack("sowBlueprintv0", toWire(order))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pack sowBlueprintv0: %w", err)
	}

	pipeCalldata, err := tractorABI.Pack("advancedPipe",
		[]wirePipeCall{{Target: target, CallData: sowCalldata, Clipboard: emptyClipboard}},
		big.NewInt(0),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pack advancedPipe: %w", err)
	}

	farmCalldata, err := tractorABI.Pack("advancedFarm",
		[]wireFarmCall{{CallData: pipeCalldata, Clipboard: emptyClipboard}},
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pack advancedFarm: %w", err)
	}

	return farmCalldata, sowCalldata, [][32]byte{}, nil
}

// DecodeSowOrder attempts to parse blueprint payload bytes as a sow order.
// Anything that does not match the exact advancedFarm -> advancedPipe ->
// sowBlueprintv0 shape with the expected pipe target decodes to
// StatusNotApplicable; a wrong pipe target is indistinguishable from garbage
// bytes. Only an inner call that names sowBlueprintv0 but fails to unpack is
// reported as malformed.
func DecodeSowOrder(data []byte, target common.Address) DecodeResult {
	farmMethod := tractorABI.Methods["advancedFarm"]
	pipeMethod := tractorABI.Methods["advancedPipe"]
	sowMethod := sowBlueprintABI.Methods["sowBlueprintv0"]

	farmArgs, ok := unpackCall(farmMethod, data)
	if !ok {
		return DecodeResult{Status: StatusNotApplicable}
	}
	farmCalls := *abi.ConvertType(farmArgs[0], new([]wireFarmCall)).(*[]wireFarmCall)
	if len(farmCalls) != 1 {
		return DecodeResult{Status: StatusNotApplicable}
	}

	pipeArgs, ok := unpackCall(pipeMethod, farmCalls[0].CallData)
	if !ok {
		return DecodeResult{Status: StatusNotApplicable}
	}
	pipeCalls := *abi.ConvertType(pipeArgs[0], new([]wirePipeCall)).(*[]wirePipeCall)
	if len(pipeCalls) != 1 || pipeCalls[0].Target != target {
		return DecodeResult{Status: StatusNotApplicable}
	}

	sowData := pipeCalls[0].CallData
	if len(sowData) < 4 || !bytes.Equal(sowData[:4], sowMethod.ID) {
		return DecodeResult{Status: StatusNotApplicable}
	}
	sowArgs, err := sowMethod.Inputs.Unpack(sowData[4:])
	if err != nil {
		return DecodeResult{Status: StatusMalformed, Reason: fmt.Sprintf("unpack sowBlueprintv0: %v", err)}
	}
	wire := *abi.ConvertType(sowArgs[0], new(wireSowBlueprint)).(*wireSowBlueprint)

	return DecodeResult{Status: StatusDecoded, Order: fromWire(wire)}
}

func unpackCall(method abi.Method, data []byte) ([]interface{}, bool) {
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return nil, false
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil || len(args) != len(method.Inputs) {
		return nil, false
	}
	return args, true
}

func toWire(order *SowOrder) wireSowBlueprint {
	return wireSowBlueprint{
		SowParams: wireSowParams{
			SourceTokenIndices: order.SourceTokenIndices,
			SowAmounts: wireSowAmounts{
				TotalAmountToSow:        orZero(order.TotalAmount),
				MinAmountToSowPerSeason: orZero(order.MinAmountPerSeason),
				MaxAmountToSowPerSeason: orZero(order.MaxAmountPerSeason),
			},
			MinTemp:               orZero(order.MinTemp),
			MaxPodlineLength:      orZero(order.MaxPodlineLength),
			MaxGrownStalkPerBdv:   orZero(order.MaxGrownStalkPerBDV),
			RunBlocksAfterSunrise: orZero(order.RunBlocksAfterSunrise),
			SlippageRatio:         orZero(order.SlippageRatio),
		},
		OpParams: wireOpParams{
			WhitelistedOperators: orAddresses(order.Operator.Whitelist),
			TipAddress:           order.Operator.TipAddress,
			TipAmount:            orZero(order.Operator.TipAmount),
		},
	}
}

func fromWire(wire wireSowBlueprint) *SowOrder {
	sow := wire.SowParams
	op := wire.OpParams

	order := &SowOrder{
		SourceTokenIndices:    sow.SourceTokenIndices,
		TotalAmount:           sow.SowAmounts.TotalAmountToSow,
		MinAmountPerSeason:    sow.SowAmounts.MinAmountToSowPerSeason,
		MaxAmountPerSeason:    sow.SowAmounts.MaxAmountToSowPerSeason,
		MinTemp:               sow.MinTemp,
		MaxPodlineLength:      sow.MaxPodlineLength,
		MaxGrownStalkPerBDV:   sow.MaxGrownStalkPerBdv,
		RunBlocksAfterSunrise: sow.RunBlocksAfterSunrise,
		SlippageRatio:         sow.SlippageRatio,
		Operator: OperatorParams{
			Whitelist:  op.WhitelistedOperators,
			TipAddress: op.TipAddress,
			TipAmount:  op.TipAmount,
		},
	}

	order.TotalAmountValue = fixedpoint.FromFixedPoint(order.TotalAmount, fixedpoint.AmountDecimals)
	order.MinAmountPerSeasonValue = fixedpoint.FromFixedPoint(order.MinAmountPerSeason, fixedpoint.AmountDecimals)
	order.MaxAmountPerSeasonValue = fixedpoint.FromFixedPoint(order.MaxAmountPerSeason, fixedpoint.AmountDecimals)
	order.MinTempValue = fixedpoint.FromFixedPoint(order.MinTemp, fixedpoint.AmountDecimals)
	order.MaxPodlineLengthValue = fixedpoint.FromFixedPoint(order.MaxPodlineLength, fixedpoint.AmountDecimals)
	order.MaxGrownStalkPerBDVValue = fixedpoint.FromFixedPoint(order.MaxGrownStalkPerBDV, fixedpoint.AmountDecimals)
	order.SlippageRatioValue = fixedpoint.FromFixedPoint(order.SlippageRatio, fixedpoint.RatioDecimals)
	order.Operator.TipAmountValue = fixedpoint.FromFixedPoint(order.Operator.TipAmount, fixedpoint.AmountDecimals)

	return order
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func orAddresses(v []common.Address) []common.Address {
	if v == nil {
		return []common.Address{}
	}
	return v
}
