package oraclenode

import (
	"errors"
	"math/big"
	"testing"
)

func TestHikedPrice(t *testing.T) {
	base := big.NewInt(1000)
	cases := []struct {
		pct  int64
		want int64
	}{
		{0, 1000},
		{12, 1120},
		{24, 1240},
		{36, 1360},
	}
	for _, c := range cases {
		got := hikedPrice(base, c.pct)
		if got.Int64() != c.want {
			t.Errorf("hikedPrice(%d, %d%%) = %d, want %d", base.Int64(), c.pct, got.Int64(), c.want)
		}
	}
}

func TestIsUnderpriced(t *testing.T) {
	if !isUnderpriced(errors.New("replacement transaction underpriced")) {
		t.Error("expected underpriced match")
	}
	if isUnderpriced(errors.New("insufficient funds")) {
		t.Error("did not expect underpriced match")
	}
}

func TestGasHikeStepsMonotonic(t *testing.T) {
	for i := 1; i < len(gasHikeSteps); i++ {
		if gasHikeSteps[i] <= gasHikeSteps[i-1] {
			t.Fatalf("gasHikeSteps not strictly increasing at index %d: %v", i, gasHikeSteps)
		}
	}
}
