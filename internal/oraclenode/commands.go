package oraclenode

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/firstbatchxyz/dria-oracle-node/internal/contracts"
)

// sendAndWait builds a gas-hiked transaction via fn, submits it, and
// blocks for its receipt. Every write command below is one of these.
func (n *Node) sendAndWait(ctx context.Context, fn func(*bind.TransactOpts) (*types.Transaction, error)) error {
	tx, err := n.SendWithGasHikes(ctx, func(ctx context.Context, gasPrice *big.Int) (*types.Transaction, error) {
		txOpts := *n.Signer
		txOpts.Context = ctx
		txOpts.GasPrice = gasPrice
		return fn(&txOpts)
	})
	if err != nil {
		return err
	}
	_, err = n.WaitMined(ctx, tx)
	return err
}

func (n *Node) approveAndWait(ctx context.Context, spender common.Address, amount *big.Int) error {
	return n.sendAndWait(ctx, func(txOpts *bind.TransactOpts) (*types.Transaction, error) {
		return n.Token.Approve(txOpts, spender, amount)
	})
}

// approvalShortfall returns how much additional allowance is needed to
// cover stake, or nil if the existing allowance already suffices.
func approvalShortfall(stake, allowance *big.Int) *big.Int {
	if allowance.Cmp(stake) >= 0 {
		return nil
	}
	return new(big.Int).Sub(stake, allowance)
}

// Register registers this node as kind, approving the Registry for
// whatever additional stake is required first. A no-op if already
// registered.
func (n *Node) Register(ctx context.Context, kind contracts.OracleKind) error {
	opts := &bind.CallOpts{Context: ctx}

	registered, err := n.Registry.IsRegistered(opts, n.Address, kind)
	if err != nil {
		return fmt.Errorf("oraclenode: check registration: %w", err)
	}
	if registered {
		log.Warn("already registered", "kind", kind)
		return nil
	}

	stake, err := n.Registry.GetStakeAmount(opts, kind)
	if err != nil {
		return fmt.Errorf("oraclenode: fetch stake amount: %w", err)
	}
	allowance, err := n.Token.Allowance(opts, n.Address, n.Registry.Address())
	if err != nil {
		return fmt.Errorf("oraclenode: fetch allowance: %w", err)
	}

	if difference := approvalShortfall(stake, allowance); difference != nil {
		balance, err := n.Token.BalanceOf(opts, n.Address)
		if err != nil {
			return fmt.Errorf("oraclenode: fetch token balance: %w", err)
		}
		if balance.Cmp(difference) < 0 {
			return fmt.Errorf("oraclenode: insufficient balance to approve (have %s, need %s)", contracts.FormatEther(balance), contracts.FormatEther(difference))
		}
		log.Info("approving tokens for registration", "kind", kind, "amount", contracts.FormatEther(difference))
		if err := n.approveAndWait(ctx, n.Registry.Address(), difference); err != nil {
			return fmt.Errorf("oraclenode: approving registry: %w", err)
		}
	} else {
		log.Info("already approved enough tokens", "kind", kind)
	}

	log.Info("registering", "kind", kind)
	if err := n.sendAndWait(ctx, func(txOpts *bind.TransactOpts) (*types.Transaction, error) {
		return n.Registry.Register(txOpts, kind)
	}); err != nil {
		return fmt.Errorf("oraclenode: registering: %w", err)
	}
	return nil
}

// Unregister unregisters this node from kind and reclaims the
// registry's allowance back. A no-op if not currently registered.
func (n *Node) Unregister(ctx context.Context, kind contracts.OracleKind) error {
	opts := &bind.CallOpts{Context: ctx}

	registered, err := n.Registry.IsRegistered(opts, n.Address, kind)
	if err != nil {
		return fmt.Errorf("oraclenode: check registration: %w", err)
	}
	if !registered {
		log.Warn("already not registered", "kind", kind)
		return nil
	}

	if err := n.sendAndWait(ctx, func(txOpts *bind.TransactOpts) (*types.Transaction, error) {
		return n.Registry.Unregister(txOpts, kind)
	}); err != nil {
		return fmt.Errorf("oraclenode: unregistering: %w", err)
	}

	allowance, err := n.Token.Allowance(opts, n.Registry.Address(), n.Address)
	if err != nil {
		return fmt.Errorf("oraclenode: fetch allowance: %w", err)
	}
	log.Info("transferring allowance back from registry", "amount", contracts.FormatEther(allowance))
	if err := n.sendAndWait(ctx, func(txOpts *bind.TransactOpts) (*types.Transaction, error) {
		return n.Token.TransferFrom(txOpts, n.Registry.Address(), n.Address, allowance)
	}); err != nil {
		return fmt.Errorf("oraclenode: reclaiming allowance: %w", err)
	}
	return nil
}

// Registrations reports this node's registration status for every
// known OracleKind.
func (n *Node) Registrations(ctx context.Context) (map[contracts.OracleKind]bool, error) {
	opts := &bind.CallOpts{Context: ctx}
	out := make(map[contracts.OracleKind]bool, len(contracts.AllKinds))
	for _, kind := range contracts.AllKinds {
		registered, err := n.Registry.IsRegistered(opts, n.Address, kind)
		if err != nil {
			return nil, fmt.Errorf("oraclenode: check registration for %s: %w", kind, err)
		}
		out[kind] = registered
	}
	return out, nil
}

// Balance returns this node's native and fee-token balances.
func (n *Node) Balance(ctx context.Context) (native, token contracts.TokenBalance, err error) {
	wei, err := n.Client.BalanceAt(ctx, n.Address, nil)
	if err != nil {
		return native, token, fmt.Errorf("oraclenode: fetch native balance: %w", err)
	}
	native = contracts.TokenBalance{Amount: wei, Symbol: "ETH"}

	amount, err := n.Token.BalanceOf(&bind.CallOpts{Context: ctx}, n.Address)
	if err != nil {
		return native, token, fmt.Errorf("oraclenode: fetch token balance: %w", err)
	}
	symbol, err := n.Token.Symbol(&bind.CallOpts{Context: ctx})
	if err != nil {
		return native, token, fmt.Errorf("oraclenode: fetch token symbol: %w", err)
	}
	token = contracts.TokenBalance{Amount: amount, Symbol: symbol, Address: &n.Addresses.Token}
	return native, token, nil
}

// Rewards returns the Coordinator's outstanding token allowance to this
// node: fees earned from completed tasks that have not yet been pulled
// via ClaimRewards.
func (n *Node) Rewards(ctx context.Context) (contracts.TokenBalance, error) {
	amount, err := n.Token.Allowance(&bind.CallOpts{Context: ctx}, n.Coordinator.Address(), n.Address)
	if err != nil {
		return contracts.TokenBalance{}, fmt.Errorf("oraclenode: fetch rewards allowance: %w", err)
	}
	symbol, err := n.Token.Symbol(&bind.CallOpts{Context: ctx})
	if err != nil {
		return contracts.TokenBalance{}, fmt.Errorf("oraclenode: fetch token symbol: %w", err)
	}
	return contracts.TokenBalance{Amount: amount, Symbol: symbol, Address: &n.Addresses.Token}, nil
}

// ClaimRewards pulls this node's entire outstanding Coordinator
// allowance into its own balance. A no-op if nothing is claimable.
func (n *Node) ClaimRewards(ctx context.Context) error {
	allowance, err := n.Token.Allowance(&bind.CallOpts{Context: ctx}, n.Coordinator.Address(), n.Address)
	if err != nil {
		return fmt.Errorf("oraclenode: fetch rewards allowance: %w", err)
	}
	if allowance.Sign() == 0 {
		log.Warn("no rewards to claim")
		return nil
	}
	if err := n.sendAndWait(ctx, func(txOpts *bind.TransactOpts) (*types.Transaction, error) {
		return n.Token.TransferFrom(txOpts, n.Coordinator.Address(), n.Address, allowance)
	}); err != nil {
		return fmt.Errorf("oraclenode: claiming rewards: %w", err)
	}
	log.Info("rewards claimed", "amount", contracts.FormatEther(allowance))
	return nil
}
