package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ERC20 is a hand-written binding over the fee token contract, covering
// only the surface the worker's balance/approval flow needs.
type ERC20 struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewERC20(addr common.Address, backend bind.ContractBackend) *ERC20 {
	return &ERC20{
		address:  addr,
		contract: bind.NewBoundContract(addr, TokenABI, backend, backend, backend),
	}
}

func (t *ERC20) Address() common.Address { return t.address }

func (t *ERC20) BalanceOf(opts *bind.CallOpts, account common.Address) (*big.Int, error) {
	var raw []interface{}
	if err := t.contract.Call(opts, &raw, "balanceOf", account); err != nil {
		return nil, err
	}
	return *abi.ConvertType(raw[0], new(*big.Int)).(**big.Int), nil
}

func (t *ERC20) Allowance(opts *bind.CallOpts, owner, spender common.Address) (*big.Int, error) {
	var raw []interface{}
	if err := t.contract.Call(opts, &raw, "allowance", owner, spender); err != nil {
		return nil, err
	}
	return *abi.ConvertType(raw[0], new(*big.Int)).(**big.Int), nil
}

func (t *ERC20) Approve(opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	return t.contract.Transact(opts, "approve", spender, amount)
}

func (t *ERC20) TransferFrom(opts *bind.TransactOpts, from, to common.Address, amount *big.Int) (*types.Transaction, error) {
	return t.contract.Transact(opts, "transferFrom", from, to, amount)
}

func (t *ERC20) Symbol(opts *bind.CallOpts) (string, error) {
	var raw []interface{}
	if err := t.contract.Call(opts, &raw, "symbol"); err != nil {
		return "", err
	}
	return *abi.ConvertType(raw[0], new(string)).(*string), nil
}
