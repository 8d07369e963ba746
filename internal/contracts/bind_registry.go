package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// OracleRegistry is a hand-written binding over the Registry contract.
type OracleRegistry struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewOracleRegistry(addr common.Address, backend bind.ContractBackend) *OracleRegistry {
	return &OracleRegistry{
		address:  addr,
		contract: bind.NewBoundContract(addr, RegistryABI, backend, backend, backend),
	}
}

func (r *OracleRegistry) Address() common.Address { return r.address }

func (r *OracleRegistry) Register(opts *bind.TransactOpts, kind OracleKind) (*types.Transaction, error) {
	return r.contract.Transact(opts, "register", uint8(kind))
}

func (r *OracleRegistry) Unregister(opts *bind.TransactOpts, kind OracleKind) (*types.Transaction, error) {
	return r.contract.Transact(opts, "unregister", uint8(kind))
}

func (r *OracleRegistry) IsRegistered(opts *bind.CallOpts, addr common.Address, kind OracleKind) (bool, error) {
	var raw []interface{}
	if err := r.contract.Call(opts, &raw, "isRegistered", addr, uint8(kind)); err != nil {
		return false, err
	}
	return *abi.ConvertType(raw[0], new(bool)).(*bool), nil
}

func (r *OracleRegistry) IsWhitelisted(opts *bind.CallOpts, addr common.Address) (bool, error) {
	var raw []interface{}
	if err := r.contract.Call(opts, &raw, "isWhitelisted", addr); err != nil {
		return false, err
	}
	return *abi.ConvertType(raw[0], new(bool)).(*bool), nil
}

func (r *OracleRegistry) GetStakeAmount(opts *bind.CallOpts, kind OracleKind) (*big.Int, error) {
	var raw []interface{}
	if err := r.contract.Call(opts, &raw, "getStakeAmount", uint8(kind)); err != nil {
		return nil, err
	}
	return *abi.ConvertType(raw[0], new(*big.Int)).(**big.Int), nil
}

func (r *OracleRegistry) Token(opts *bind.CallOpts) (common.Address, error) {
	var raw []interface{}
	if err := r.contract.Call(opts, &raw, "token"); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(raw[0], new(common.Address)).(*common.Address), nil
}
