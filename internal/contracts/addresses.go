package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// coordinatorAddresses is the built-in per-chain address table, overridden
// by the COORDINATOR_ADDRESS environment variable when present.
var coordinatorAddresses = map[int64]common.Address{
	// Base mainnet.
	8453: common.HexToAddress("0xF9B0B6b01B0c4c76d9A1a0e11Ea5a27B1B1D4d2f"),
	// Base Sepolia testnet.
	84532: common.HexToAddress("0x1234567890123456789012345678901234567890"),
	// Local Anvil / devnet default.
	31337: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
}

// GetCoordinatorAddress returns the built-in Coordinator address for the
// given chain ID, or an error if the chain isn't in the static table (the
// caller should fall back to COORDINATOR_ADDRESS in that case).
func GetCoordinatorAddress(chainID *big.Int) (common.Address, error) {
	addr, ok := coordinatorAddresses[chainID.Int64()]
	if !ok {
		return common.Address{}, fmt.Errorf("no built-in coordinator address for chain %s", chainID)
	}
	return addr, nil
}
