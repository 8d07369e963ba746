// Package nonce implements the proof-of-work nonce miner (C6): finding a
// nonce whose Keccak-256 preimage hash falls under the difficulty's
// target, the same admission check the Coordinator contract re-verifies
// on submission.
package nonce

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// yieldEvery bounds how many hashes are tried between cooperative
// cancellation checks.
const yieldEvery = 1 << 16

// Mine searches for the smallest nonce >= 0 whose preimage hash is below
// the difficulty's target, starting from 0 and incrementing by one.
// difficulty == 0 short-circuits to nonce 0 without hashing.
func Mine(ctx context.Context, difficulty uint8, requester, responder common.Address, input []byte, taskID *uint256.Int) (*uint256.Int, error) {
	if difficulty == 0 {
		return uint256.NewInt(0), nil
	}

	target := targetFor(difficulty)
	taskIDBytes := taskID.Bytes32()

	preimage := make([]byte, 0, len(requester)+len(responder)+len(input)+32+32)
	preimage = append(preimage, requester.Bytes()...)
	preimage = append(preimage, responder.Bytes()...)
	preimage = append(preimage, input...)
	preimage = append(preimage, taskIDBytes[:]...)

	var nonce uint256.Int
	var nonceBytes [32]byte
	iterations := 0
	for {
		if iterations%yieldEvery == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		iterations++

		nb := nonce.Bytes32()
		nonceBytes = nb

		hash := crypto.Keccak256(append(append([]byte{}, preimage...), nonceBytes[:]...))
		var hashInt uint256.Int
		hashInt.SetBytes(hash)

		if hashInt.Lt(target) {
			result := nonce
			return &result, nil
		}

		nonce.AddUint64(&nonce, 1)
	}
}

// targetFor returns 2^(256-difficulty): a hash below this value has its
// top `difficulty` bits zero.
func targetFor(difficulty uint8) *uint256.Int {
	shift := uint(256 - int(difficulty))
	one := uint256.NewInt(1)
	if shift >= 256 {
		// difficulty effectively 0; treated above, defensive fallback.
		return uint256.NewInt(0).Not(uint256.NewInt(0))
	}
	return new(uint256.Int).Lsh(one, shift)
}
