package nonce

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

func TestMineDifficultyZeroShortCircuits(t *testing.T) {
	requester := common.HexToAddress("0x1111111111111111111111111111111111111111")
	responder := common.HexToAddress("0x2222222222222222222222222222222222222222")

	got, err := Mine(context.Background(), 0, requester, responder, []byte("input"), uint256.NewInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("got %s, want 0", got)
	}
}

func TestMineFindsValidNonceUnderTarget(t *testing.T) {
	requester := common.HexToAddress("0x1111111111111111111111111111111111111111")
	responder := common.HexToAddress("0x2222222222222222222222222222222222222222")
	input := []byte("task input")
	taskID := uint256.NewInt(42)

	const difficulty = 4 // small enough to converge quickly in a test
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	nonce, err := Mine(ctx, difficulty, requester, responder, input, taskID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target := targetFor(difficulty)
	taskIDBytes := taskID.Bytes32()
	nonceBytes := nonce.Bytes32()

	preimage := append([]byte{}, requester.Bytes()...)
	preimage = append(preimage, responder.Bytes()...)
	preimage = append(preimage, input...)
	preimage = append(preimage, taskIDBytes[:]...)
	preimage = append(preimage, nonceBytes[:]...)

	hash := crypto.Keccak256(preimage)
	var hashInt uint256.Int
	hashInt.SetBytes(hash)

	if !hashInt.Lt(target) {
		t.Errorf("mined nonce %s does not satisfy target", nonce)
	}
}

func TestMineIsDeterministic(t *testing.T) {
	requester := common.HexToAddress("0x1111111111111111111111111111111111111111")
	responder := common.HexToAddress("0x2222222222222222222222222222222222222222")
	input := []byte("same input")
	taskID := uint256.NewInt(7)

	n1, err := Mine(context.Background(), 4, requester, responder, input, taskID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n2, err := Mine(context.Background(), 4, requester, responder, input, taskID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n1.Cmp(n2) != 0 {
		t.Errorf("mining the same input twice gave different nonces: %s vs %s", n1, n2)
	}
}

func TestMineRespectsCancellation(t *testing.T) {
	requester := common.HexToAddress("0x1111111111111111111111111111111111111111")
	responder := common.HexToAddress("0x2222222222222222222222222222222222222222")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Mine(ctx, 250, requester, responder, []byte("x"), uint256.NewInt(1))
	if err == nil {
		t.Fatal("expected cancellation error for an already-cancelled context")
	}
}
