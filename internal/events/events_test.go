package events

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/firstbatchxyz/dria-oracle-node/internal/contracts"
)

func TestDecideActionGating(t *testing.T) {
	generatorOnly := []contracts.OracleKind{contracts.KindGenerator}
	validatorOnly := []contracts.OracleKind{contracts.KindValidator}
	both := []contracts.OracleKind{contracts.KindGenerator, contracts.KindValidator}

	tests := []struct {
		name   string
		status contracts.TaskStatus
		kinds  []contracts.OracleKind
		want   action
	}{
		{"generator handles pending generation", contracts.StatusPendingGeneration, generatorOnly, actionGenerate},
		{"non-generator ignores pending generation", contracts.StatusPendingGeneration, validatorOnly, actionIgnore},
		{"validator handles pending validation", contracts.StatusPendingValidation, validatorOnly, actionValidate},
		{"non-validator ignores pending validation", contracts.StatusPendingValidation, generatorOnly, actionIgnore},
		{"both kinds still dispatches generation", contracts.StatusPendingGeneration, both, actionGenerate},
		{"both kinds still dispatches validation", contracts.StatusPendingValidation, both, actionValidate},
		{"completed always ignored", contracts.StatusCompleted, both, actionIgnore},
		{"none status logs and ignores", contracts.StatusNone, both, actionLogAndIgnore},
		{"none status ignored even with no kinds", contracts.StatusNone, nil, actionLogAndIgnore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decideAction(tt.status, tt.kinds)
			if got != tt.want {
				t.Errorf("decideAction(%v, %v) = %v, want %v", tt.status, tt.kinds, got, tt.want)
			}
		})
	}
}

func TestHasKind(t *testing.T) {
	kinds := []contracts.OracleKind{contracts.KindGenerator}
	if !hasKind(kinds, contracts.KindGenerator) {
		t.Error("expected KindGenerator to be present")
	}
	if hasKind(kinds, contracts.KindValidator) {
		t.Error("expected KindValidator to be absent")
	}
	if hasKind(nil, contracts.KindGenerator) {
		t.Error("expected nil kinds to contain nothing")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Initializing: "initializing",
		Backfilling:  "backfilling",
		Subscribed:   "subscribed",
		Reconnecting: "reconnecting",
		Stopped:      "stopped",
		State(99):    "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

// TestProcessInOrderDispatchesSequentially backfills four historical
// logs and asserts the dispatcher sees them in exactly chain order,
// one at a time, with no overlap and no duplicates — the guarantee
// backfill depends on.
func TestProcessInOrderDispatchesSequentially(t *testing.T) {
	logsCh := make(chan types.Log, 4)
	for i := uint(0); i < 4; i++ {
		logsCh <- types.Log{Index: i}
	}
	close(logsCh)

	var (
		mu      sync.Mutex
		inFlock bool
		seen    []uint
	)
	processInOrder(logsCh, func(rawLog types.Log) {
		mu.Lock()
		if inFlock {
			t.Error("dispatch invoked concurrently with another in-flight dispatch")
		}
		inFlock = true
		mu.Unlock()

		time.Sleep(time.Millisecond) // widen the window a concurrent bug would land in

		mu.Lock()
		seen = append(seen, rawLog.Index)
		inFlock = false
		mu.Unlock()
	})

	want := []uint{0, 1, 2, 3}
	if len(seen) != len(want) {
		t.Fatalf("dispatched %d logs, want %d", len(seen), len(want))
	}
	for i, idx := range want {
		if seen[i] != idx {
			t.Errorf("seen[%d] = %d, want %d (out of order)", i, seen[i], idx)
		}
	}
}

func TestToUint64Ptr(t *testing.T) {
	ptr := toUint64Ptr(big.NewInt(42))
	if ptr == nil || *ptr != 42 {
		t.Errorf("toUint64Ptr = %v, want pointer to 42", ptr)
	}
}
