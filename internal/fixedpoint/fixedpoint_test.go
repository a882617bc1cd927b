package fixedpoint

import (
	"math/big"
	"testing"
)

func TestToFixedPoint(t *testing.T) {
	cases := []struct {
		in       string
		decimals int32
		want     string
	}{
		{"1", 6, "1000000"},
		{"0.5", 6, "500000"},
		{"123.456789", 6, "123456789"},
		{"0", 6, "0"},
		{"1.5", 18, "1500000000000000000"},
	}

	for _, c := range cases {
		got, err := ToFixedPoint(c.in, c.decimals)
		if err != nil {
			t.Fatalf("ToFixedPoint(%q, %d): %v", c.in, c.decimals, err)
		}
		if got.String() != c.want {
			t.Fatalf("ToFixedPoint(%q, %d) = %s, want %s", c.in, c.decimals, got, c.want)
		}
	}
}

func TestToFixedPointRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "1.2.3", "0.1234567"} {
		if _, err := ToFixedPoint(in, 6); err == nil {
			t.Fatalf("ToFixedPoint(%q) should fail", in)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, raw := range []string{"0", "1", "1000000", "123456789", "100000000"} {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			t.Fatal("bad test input")
		}
		formatted := FromFixedPoint(v, 6)
		parsed, err := ToFixedPoint(formatted, 6)
		if err != nil {
			t.Fatalf("round trip parse %q: %v", formatted, err)
		}
		if parsed.Cmp(v) != 0 {
			t.Fatalf("round trip %s -> %q -> %s", v, formatted, parsed)
		}
	}
}

func TestFromFixedPointDropsTrailingZeros(t *testing.T) {
	v := big.NewInt(1500000)
	if got := FromFixedPoint(v, 6); got != "1.5" {
		t.Fatalf("FromFixedPoint = %q, want 1.5", got)
	}
	if got := FromFixedPoint(nil, 6); got != "0" {
		t.Fatalf("FromFixedPoint(nil) = %q, want 0", got)
	}
	if got := FromFixedPoint(big.NewInt(-2500000), 6); got != "-2.5" {
		t.Fatalf("FromFixedPoint(signed) = %q, want -2.5", got)
	}
}
