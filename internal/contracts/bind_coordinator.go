package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// OracleCoordinator is a hand-written binding over the Coordinator
// contract, in the shape `abigen` would generate for this spec's ABI
// surface (see abi.go). It owns no connection state of its own; all of
// that lives in the bound *bind.BoundContract.
type OracleCoordinator struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewOracleCoordinator binds to a deployed Coordinator at addr using the
// given caller/transactor/filterer backend (normally an *ethclient.Client
// satisfies all three).
func NewOracleCoordinator(addr common.Address, backend bind.ContractBackend) *OracleCoordinator {
	return &OracleCoordinator{
		address:  addr,
		contract: bind.NewBoundContract(addr, CoordinatorABI, backend, backend, backend),
	}
}

func (c *OracleCoordinator) Address() common.Address { return c.address }

// requestsOutput mirrors the Coordinator's flat `requests(uint256)` return
// tuple; NumGenerations/NumValidations are uint40 on-chain, which the ABI
// package decodes as *big.Int; Requests narrows them to uint64 (spec §9
// numeric formats note).
type requestsOutput struct {
	Requester      common.Address
	Input          []byte
	Models         []byte
	Protocol       [32]byte
	Difficulty     uint8
	NumGenerations uint64
	NumValidations uint64
	Status         uint8
}

// Requests fetches the raw TaskRequest for a task and adapts it to the
// package's TaskRequest type.
func (c *OracleCoordinator) Requests(opts *bind.CallOpts, taskID *big.Int) (TaskRequest, error) {
	var raw []interface{}
	if err := c.contract.Call(opts, &raw, "requests", taskID); err != nil {
		return TaskRequest{}, err
	}
	out := new(requestsOutput)
	out.Requester = *abi.ConvertType(raw[0], new(common.Address)).(*common.Address)
	out.Input = *abi.ConvertType(raw[1], new([]byte)).(*[]byte)
	out.Models = *abi.ConvertType(raw[2], new([]byte)).(*[]byte)
	out.Protocol = *abi.ConvertType(raw[3], new([32]byte)).(*[32]byte)
	out.Difficulty = *abi.ConvertType(raw[4], new(uint8)).(*uint8)
	out.NumGenerations = (*abi.ConvertType(raw[5], new(*big.Int)).(**big.Int)).Uint64()
	out.NumValidations = (*abi.ConvertType(raw[6], new(*big.Int)).(**big.Int)).Uint64()
	out.Status = *abi.ConvertType(raw[7], new(uint8)).(*uint8)

	status, err := ParseTaskStatus(out.Status)
	if err != nil {
		return TaskRequest{}, err
	}

	return TaskRequest{
		Requester: out.Requester,
		Input:     out.Input,
		Models:    out.Models,
		Protocol:  out.Protocol,
		Parameters: TaskParameters{
			Difficulty:     out.Difficulty,
			NumGenerations: out.NumGenerations,
			NumValidations: out.NumValidations,
		},
		Status: status,
	}, nil
}

type taskResponseRaw struct {
	Responder common.Address
	Output    []byte
	Metadata  []byte
	Score     *big.Int
}

type taskValidationRaw struct {
	Validator common.Address
	Scores    []*big.Int
	Metadata  []byte
}

// GetResponses returns every generation response submitted for a task.
func (c *OracleCoordinator) GetResponses(opts *bind.CallOpts, taskID *big.Int) ([]TaskResponse, error) {
	var raw []interface{}
	if err := c.contract.Call(opts, &raw, "getResponses", taskID); err != nil {
		return nil, err
	}
	converted := *abi.ConvertType(raw[0], new([]taskResponseRaw)).(*[]taskResponseRaw)
	out := make([]TaskResponse, len(converted))
	for i, r := range converted {
		out[i] = TaskResponse{Responder: r.Responder, Output: r.Output, Metadata: r.Metadata, Score: r.Score}
	}
	return out, nil
}

// GetValidations returns every validation submitted for a task.
func (c *OracleCoordinator) GetValidations(opts *bind.CallOpts, taskID *big.Int) ([]TaskValidation, error) {
	var raw []interface{}
	if err := c.contract.Call(opts, &raw, "getValidations", taskID); err != nil {
		return nil, err
	}
	converted := *abi.ConvertType(raw[0], new([]taskValidationRaw)).(*[]taskValidationRaw)
	out := make([]TaskValidation, len(converted))
	for i, v := range converted {
		out[i] = TaskValidation{Validator: v.Validator, Scores: v.Scores, Metadata: v.Metadata}
	}
	return out, nil
}

// GetBestResponse returns the highest-scored generation response for a
// task, used to resolve chat-history references (spec §4.7 step 4).
func (c *OracleCoordinator) GetBestResponse(opts *bind.CallOpts, taskID *big.Int) (TaskResponse, error) {
	var raw []interface{}
	if err := c.contract.Call(opts, &raw, "getBestResponse", taskID); err != nil {
		return TaskResponse{}, err
	}
	r := *abi.ConvertType(raw[0], new(taskResponseRaw)).(*taskResponseRaw)
	return TaskResponse{Responder: r.Responder, Output: r.Output, Metadata: r.Metadata, Score: r.Score}, nil
}

// NextTaskID returns the Coordinator's running task counter.
func (c *OracleCoordinator) NextTaskID(opts *bind.CallOpts) (*big.Int, error) {
	var raw []interface{}
	if err := c.contract.Call(opts, &raw, "nextTaskId"); err != nil {
		return nil, err
	}
	return *abi.ConvertType(raw[0], new(*big.Int)).(**big.Int), nil
}

type getFeeOutput struct {
	TotalFee     *big.Int
	GeneratorFee *big.Int
	ValidatorFee *big.Int
}

// GetFee quotes the total/generator/validator fee for a given task
// parameter set.
func (c *OracleCoordinator) GetFee(opts *bind.CallOpts, params TaskParameters) (getFeeOutput, error) {
	var raw []interface{}
	solParams := struct {
		Difficulty     uint8
		NumGenerations uint64
		NumValidations uint64
	}{params.Difficulty, params.NumGenerations, params.NumValidations}
	if err := c.contract.Call(opts, &raw, "getFee", solParams); err != nil {
		return getFeeOutput{}, err
	}
	return getFeeOutput{
		TotalFee:     *abi.ConvertType(raw[0], new(*big.Int)).(**big.Int),
		GeneratorFee: *abi.ConvertType(raw[1], new(*big.Int)).(**big.Int),
		ValidatorFee: *abi.ConvertType(raw[2], new(*big.Int)).(**big.Int),
	}, nil
}

// FeeToken returns the ERC-20 token used to pay task fees.
func (c *OracleCoordinator) FeeToken(opts *bind.CallOpts) (common.Address, error) {
	var raw []interface{}
	if err := c.contract.Call(opts, &raw, "feeToken"); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(raw[0], new(common.Address)).(*common.Address), nil
}

// Registry returns the worker Registry contract address.
func (c *OracleCoordinator) Registry(opts *bind.CallOpts) (common.Address, error) {
	var raw []interface{}
	if err := c.contract.Call(opts, &raw, "registry"); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(raw[0], new(common.Address)).(*common.Address), nil
}

// Request posts a new task (used by the `request` CLI verb only; normal
// workers never call this in production).
func (c *OracleCoordinator) Request(opts *bind.TransactOpts, protocol [32]byte, input, models []byte, params TaskParameters) (*types.Transaction, error) {
	solParams := struct {
		Difficulty     uint8
		NumGenerations uint64
		NumValidations uint64
	}{params.Difficulty, params.NumGenerations, params.NumValidations}
	return c.contract.Transact(opts, "request", protocol, input, models, solParams)
}

// Respond submits a generation response with its mined nonce.
func (c *OracleCoordinator) Respond(opts *bind.TransactOpts, taskID, nonce *big.Int, output, metadata []byte) (*types.Transaction, error) {
	return c.contract.Transact(opts, "respond", taskID, nonce, output, metadata)
}

// Validate submits validation scores with their mined nonce.
func (c *OracleCoordinator) Validate(opts *bind.TransactOpts, taskID, nonce *big.Int, scores []*big.Int, metadata []byte) (*types.Transaction, error) {
	return c.contract.Transact(opts, "validate", taskID, nonce, scores, metadata)
}

// FilterStatusUpdateLogs opens a bounded backfill query over StatusUpdate
// events in [fromBlock, toBlock].
func (c *OracleCoordinator) FilterStatusUpdateLogs(opts *bind.FilterOpts) (chan types.Log, event.Subscription, error) {
	return c.contract.FilterLogs(opts, "StatusUpdate")
}

// WatchStatusUpdateLogs opens a live subscription over StatusUpdate events.
func (c *OracleCoordinator) WatchStatusUpdateLogs(opts *bind.WatchOpts) (chan types.Log, event.Subscription, error) {
	return c.contract.WatchLogs(opts, "StatusUpdate")
}

// UnpackStatusUpdate decodes a raw log into a typed StatusUpdate.
func (c *OracleCoordinator) UnpackStatusUpdate(l types.Log) (StatusUpdate, error) {
	var raw struct {
		TaskId       *big.Int
		Protocol     [32]byte
		StatusBefore uint8
		StatusAfter  uint8
	}
	if err := c.contract.UnpackLog(&raw, "StatusUpdate", l); err != nil {
		return StatusUpdate{}, err
	}
	return StatusUpdate{
		TaskID:       raw.TaskId,
		Protocol:     raw.Protocol,
		StatusBefore: raw.StatusBefore,
		StatusAfter:  raw.StatusAfter,
		Raw: RawLog{
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash,
			LogIndex:    l.Index,
			Removed:     l.Removed,
		},
	}, nil
}
