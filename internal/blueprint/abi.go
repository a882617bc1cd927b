package blueprint

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ABI fragments for the diamond's tractor/farm facets and the sow order
// contract. Wire shapes are fixed by the deployed contracts and must stay
// bit-exact.
const (
	tractorABIJSON = `[
{"name":"advancedFarm","type":"function","stateMutability":"payable","inputs":[{"name":"data","type":"tuple[]","components":[{"name":"callData","type":"bytes"},{"name":"clipboard","type":"bytes"}]}],"outputs":[{"name":"results","type":"bytes[]"}]},
{"name":"advancedPipe","type":"function","stateMutability":"payable","inputs":[{"name":"pipes","type":"tuple[]","components":[{"name":"target","type":"address"},{"name":"callData","type":"bytes"},{"name":"clipboard","type":"bytes"}]},{"name":"value","type":"uint256"}],"outputs":[{"name":"results","type":"bytes[]"}]},
{"name":"tractor","type":"function","stateMutability":"payable","inputs":[{"name":"requisition","type":"tuple","components":[{"name":"blueprint","type":"tuple","components":[{"name":"publisher","type":"address"},{"name":"data","type":"bytes"},{"name":"operatorPasteInstrs","type":"bytes32[]"},{"name":"maxNonce","type":"uint256"},{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"}]},{"name":"blueprintHash","type":"bytes32"},{"name":"signature","type":"bytes"}]},{"name":"operatorData","type":"bytes"}],"outputs":[{"name":"results","type":"bytes[]"}]},
{"name":"PublishRequisition","type":"event","anonymous":false,"inputs":[{"name":"requisition","type":"tuple","indexed":false,"components":[{"name":"blueprint","type":"tuple","components":[{"name":"publisher","type":"address"},{"name":"data","type":"bytes"},{"name":"operatorPasteInstrs","type":"bytes32[]"},{"name":"maxNonce","type":"uint256"},{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"}]},{"name":"blueprintHash","type":"bytes32"},{"name":"signature","type":"bytes"}]}]},
{"name":"CancelBlueprint","type":"event","anonymous":false,"inputs":[{"name":"blueprintHash","type":"bytes32","indexed":false}]}
]`

	sowBlueprintABIJSON = `[
{"name":"sowBlueprintv0","type":"function","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[{"name":"sowParams","type":"tuple","components":[{"name":"sourceTokenIndices","type":"uint8[]"},{"name":"sowAmounts","type":"tuple","components":[{"name":"totalAmountToSow","type":"uint256"},{"name":"minAmountToSowPerSeason","type":"uint256"},{"name":"maxAmountToSowPerSeason","type":"uint256"}]},{"name":"minTemp","type":"uint256"},{"name":"maxPodlineLength","type":"uint256"},{"name":"maxGrownStalkPerBdv","type":"uint256"},{"name":"runBlocksAfterSunrise","type":"uint256"},{"name":"slippageRatio","type":"uint256"}]},{"name":"opParams","type":"tuple","components":[{"name":"whitelistedOperators","type":"address[]"},{"name":"tipAddress","type":"address"},{"name":"tipAmount","type":"int256"}]}]}],"outputs":[]}
]`
)

var (
	tractorABI      abi.ABI
	sowBlueprintABI abi.ABI
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(tractorABIJSON))
	if err != nil {
		panic("failed to parse tractor ABI: " + err.Error())
	}
	tractorABI = parsed

	parsed, err = abi.JSON(strings.NewReader(sowBlueprintABIJSON))
	if err != nil {
		panic("failed to parse sow blueprint ABI: " + err.Error())
	}
	sowBlueprintABI = parsed
}

// TractorABI exposes the facet ABI for event filtering and execution calls.
func TractorABI() abi.ABI {
	return tractorABI
}

// Wire structs matching the ABI tuples above. Field names must line up with
// the component names for go-ethereum's reflection-based conversion.

type wireFarmCall struct {
	CallData  []byte
	Clipboard []byte
}

type wirePipeCall struct {
	Target    common.Address
	CallData  []byte
	Clipboard []byte
}

type wireBlueprint struct {
	Publisher           common.Address
	Data                []byte
	OperatorPasteInstrs [][32]byte
	MaxNonce            *big.Int
	StartTime           *big.Int
	EndTime             *big.Int
}

type wireRequisition struct {
	Blueprint     wireBlueprint
	BlueprintHash [32]byte
	Signature     []byte
}

type wireSowAmounts struct {
	TotalAmountToSow        *big.Int
	MinAmountToSowPerSeason *big.Int
	MaxAmountToSowPerSeason *big.Int
}

type wireSowParams struct {
	SourceTokenIndices    []uint8
	SowAmounts            wireSowAmounts
	MinTemp               *big.Int
	MaxPodlineLength      *big.Int
	MaxGrownStalkPerBdv   *big.Int
	RunBlocksAfterSunrise *big.Int
	SlippageRatio         *big.Int
}

type wireOpParams struct {
	WhitelistedOperators []common.Address
	TipAddress           common.Address
	TipAmount            *big.Int
}

type wireSowBlueprint struct {
	SowParams wireSowParams
	OpParams  wireOpParams
}
