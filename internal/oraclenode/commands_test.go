package oraclenode

import (
	"math/big"
	"testing"
)

func TestApprovalShortfall(t *testing.T) {
	tests := []struct {
		name      string
		stake     int64
		allowance int64
		want      *big.Int
	}{
		{"no existing allowance", 100, 0, big.NewInt(100)},
		{"partial allowance", 100, 40, big.NewInt(60)},
		{"exact allowance", 100, 100, nil},
		{"excess allowance", 100, 150, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := approvalShortfall(big.NewInt(tt.stake), big.NewInt(tt.allowance))
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("approvalShortfall(%d, %d) = %v, want %v", tt.stake, tt.allowance, got, tt.want)
			}
			if got != nil && got.Cmp(tt.want) != 0 {
				t.Errorf("approvalShortfall(%d, %d) = %v, want %v", tt.stake, tt.allowance, got, tt.want)
			}
		})
	}
}
