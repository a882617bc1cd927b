package blueprint

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var testTarget = common.HexToAddress("0x00b174d66adA7d63789087F50A9b9e0e48446dc1")

func testOrder() *SowOrder {
	return &SowOrder{
		SourceTokenIndices:    []uint8{0, 1, 3},
		TotalAmount:           big.NewInt(500_000000),
		MinAmountPerSeason:    big.NewInt(10_000000),
		MaxAmountPerSeason:    big.NewInt(100_000000),
		MinTemp:               big.NewInt(25_500000),
		MaxPodlineLength:      big.NewInt(1_000_000_000000),
		MaxGrownStalkPerBDV:   big.NewInt(50_000000),
		RunBlocksAfterSunrise: big.NewInt(300),
		SlippageRatio:         big.NewInt(0).Mul(big.NewInt(5), big.NewInt(1e15)), // 0.005
		Operator: OperatorParams{
			Whitelist:  []common.Address{common.HexToAddress("0x1111111111111111111111111111111111111111")},
			TipAddress: common.HexToAddress("0x2222222222222222222222222222222222222222"),
			TipAmount:  big.NewInt(5_000000),
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	order := testOrder()

	farmData, sowData, pasteInstrs, err := EncodeSowOrder(order, testTarget)
	if err != nil {
		t.Fatalf("EncodeSowOrder: %v", err)
	}
	if len(sowData) == 0 || len(farmData) == 0 {
		t.Fatal("encoder returned empty calldata")
	}
	if len(pasteInstrs) != 0 {
		t.Fatalf("paste instructions should be empty, got %d", len(pasteInstrs))
	}

	res := DecodeSowOrder(farmData, testTarget)
	if !res.Decoded() {
		t.Fatalf("decode status = %s, reason = %q", res.Status, res.Reason)
	}

	got := res.Order
	if got.TotalAmount.Cmp(order.TotalAmount) != 0 {
		t.Fatalf("total amount = %s, want %s", got.TotalAmount, order.TotalAmount)
	}
	if got.MinAmountPerSeason.Cmp(order.MinAmountPerSeason) != 0 ||
		got.MaxAmountPerSeason.Cmp(order.MaxAmountPerSeason) != 0 {
		t.Fatal("per-season bounds did not round trip")
	}
	if got.MinTemp.Cmp(order.MinTemp) != 0 ||
		got.MaxPodlineLength.Cmp(order.MaxPodlineLength) != 0 ||
		got.MaxGrownStalkPerBDV.Cmp(order.MaxGrownStalkPerBDV) != 0 {
		t.Fatal("threshold fields did not round trip")
	}
	if got.RunBlocksAfterSunrise.Cmp(order.RunBlocksAfterSunrise) != 0 {
		t.Fatal("runBlocksAfterSunrise did not round trip")
	}
	if got.SlippageRatio.Cmp(order.SlippageRatio) != 0 {
		t.Fatal("slippage ratio did not round trip")
	}
	if len(got.SourceTokenIndices) != 3 || got.SourceTokenIndices[2] != 3 {
		t.Fatalf("source token indices = %v", got.SourceTokenIndices)
	}
	if got.Operator.TipAddress != order.Operator.TipAddress {
		t.Fatal("tip address did not round trip")
	}
	if got.Operator.TipAmount.Cmp(order.Operator.TipAmount) != 0 {
		t.Fatal("tip amount did not round trip")
	}
	if len(got.Operator.Whitelist) != 1 || got.Operator.Whitelist[0] != order.Operator.Whitelist[0] {
		t.Fatal("whitelist did not round trip")
	}

	if got.TotalAmountValue != "500" {
		t.Fatalf("total amount value = %q, want 500", got.TotalAmountValue)
	}
	if got.MinTempValue != "25.5" {
		t.Fatalf("min temp value = %q, want 25.5", got.MinTempValue)
	}
	if got.SlippageRatioValue != "0.005" {
		t.Fatalf("slippage ratio value = %q, want 0.005", got.SlippageRatioValue)
	}
	if got.Operator.TipAmountValue != "5" {
		t.Fatalf("tip amount value = %q, want 5", got.Operator.TipAmountValue)
	}
}

func TestDecodeSignedTip(t *testing.T) {
	order := testOrder()
	order.Operator.TipAmount = big.NewInt(-2_500000)

	farmData, _, _, err := EncodeSowOrder(order, testTarget)
	if err != nil {
		t.Fatalf("EncodeSowOrder: %v", err)
	}

	res := DecodeSowOrder(farmData, testTarget)
	if !res.Decoded() {
		t.Fatalf("decode status = %s", res.Status)
	}
	if res.Order.Operator.TipAmount.Sign() >= 0 {
		t.Fatalf("tip amount = %s, want negative", res.Order.Operator.TipAmount)
	}
	if res.Order.Operator.TipAmountValue != "-2.5" {
		t.Fatalf("tip amount value = %q, want -2.5", res.Order.Operator.TipAmountValue)
	}
}

func TestDecodeNotApplicable(t *testing.T) {
	cases := map[string][]byte{
		"empty":          {},
		"short":          {0x01, 0x02},
		"garbage":        {0xde, 0xad, 0xbe, 0xef, 0x00, 0x11, 0x22},
		"wrong selector": append(sowBlueprintABI.Methods["sowBlueprintv0"].ID, make([]byte, 64)...),
	}
	for name, data := range cases {
		if res := DecodeSowOrder(data, testTarget); res.Status != StatusNotApplicable {
			t.Fatalf("%s: status = %s, want not_applicable", name, res.Status)
		}
	}
}

func TestDecodeWrongTargetIndistinguishable(t *testing.T) {
	farmData, _, _, err := EncodeSowOrder(testOrder(), testTarget)
	if err != nil {
		t.Fatalf("EncodeSowOrder: %v", err)
	}

	other := common.HexToAddress("0x9999999999999999999999999999999999999999")
	res := DecodeSowOrder(farmData, other)
	garbage := DecodeSowOrder([]byte{0xde, 0xad, 0xbe, 0xef}, other)

	if res != garbage {
		t.Fatalf("wrong target result %+v differs from garbage result %+v", res, garbage)
	}
	if res.Status != StatusNotApplicable {
		t.Fatalf("status = %s, want not_applicable", res.Status)
	}
}

func TestDecodeMalformedInner(t *testing.T) {
	// A pipe call that names sowBlueprintv0 but carries truncated arguments.
	sowData := append(append([]byte{}, sowBlueprintABI.Methods["sowBlueprintv0"].ID...), 0x01, 0x02)

	pipeData, err := tractorABI.Pack("advancedPipe",
		[]wirePipeCall{{Target: testTarget, CallData: sowData, Clipboard: emptyClipboard}},
		big.NewInt(0),
	)
	if err != nil {
		t.Fatalf("pack advancedPipe: %v", err)
	}
	farmData, err := tractorABI.Pack("advancedFarm", []wireFarmCall{{CallData: pipeData, Clipboard: emptyClipboard}})
	if err != nil {
		t.Fatalf("pack advancedFarm: %v", err)
	}

	res := DecodeSowOrder(farmData, testTarget)
	if res.Status != StatusMalformed {
		t.Fatalf("status = %s, want malformed", res.Status)
	}
	if res.Reason == "" {
		t.Fatal("malformed result should carry a reason")
	}
}
