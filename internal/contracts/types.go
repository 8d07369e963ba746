package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TaskParameters is the Coordinator's `LLMOracleTaskParameters` struct.
type TaskParameters struct {
	Difficulty     uint8
	NumGenerations uint64 // 40-bit on-chain, fits comfortably in uint64
	NumValidations uint64
}

// TaskRequest is the contract-owned, read-only request record for a task.
type TaskRequest struct {
	Requester  common.Address
	Input      []byte
	Models     []byte
	Protocol   [32]byte
	Parameters TaskParameters
	Status     TaskStatus
}

// TaskResponse is one generator's submitted response for a task.
type TaskResponse struct {
	Responder common.Address
	Output    []byte
	Metadata  []byte
	Score     *big.Int
}

// TaskValidation is one validator's submitted scores for a task.
type TaskValidation struct {
	Validator common.Address
	Scores    []*big.Int
	Metadata  []byte
}

// StatusUpdate is the Coordinator's `StatusUpdate` event payload.
type StatusUpdate struct {
	TaskID       *big.Int
	Protocol     [32]byte
	StatusBefore uint8
	StatusAfter  uint8
	Raw          RawLog
}

// RawLog carries just enough of the underlying go-ethereum log for
// diagnostics (block number, tx hash) without coupling callers to
// core/types directly.
type RawLog struct {
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Removed     bool
}

// ContractAddresses bundles the three contracts a node talks to.
type ContractAddresses struct {
	Coordinator common.Address
	Registry    common.Address
	Token       common.Address
}

// TokenBalance pairs a raw amount with the symbol it's denominated in, for
// human-readable display (CLI `balance`/`rewards` commands).
type TokenBalance struct {
	Amount  *big.Int
	Symbol  string
	Address *common.Address // nil for the native token
}

func (b TokenBalance) String() string {
	return fmt.Sprintf("%s %s", FormatEther(b.Amount), b.Symbol)
}
