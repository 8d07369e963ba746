// Package oraclenode is the worker's chain client: it owns the RPC
// connection, the transaction signer, and the bound Coordinator/
// Registry/Token contracts, and exposes the read/write surface the
// generation, validation, and event-loop packages build on.
package oraclenode

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/workflow"
	"github.com/firstbatchxyz/dria-oracle-node/internal/config"
	"github.com/firstbatchxyz/dria-oracle-node/internal/contracts"
)

var (
	// ErrReceiptTimeout is returned when a submitted transaction's
	// receipt does not appear before the node's configured TxTimeout.
	ErrReceiptTimeout = errors.New("oraclenode: timed out waiting for transaction receipt")
	// ErrNoModelsConfigured is returned by Validate when a kind is
	// requested and no model at all is configured.
	ErrNoModelsConfigured = errors.New("oraclenode: no models configured")
	// ErrNotWhitelisted is returned by Validate when a Validator address
	// has not been whitelisted by the Registry.
	ErrNotWhitelisted = errors.New("oraclenode: validator is not whitelisted")
)

// Node bundles the chain connection, signer, and bound contracts a
// worker needs to read task state and submit responses.
type Node struct {
	Client      *ethclient.Client
	Signer      *bind.TransactOpts
	Address     common.Address
	ChainID     *big.Int
	TxTimeout   time.Duration
	Addresses   contracts.ContractAddresses
	Coordinator *contracts.OracleCoordinator
	Registry    *contracts.OracleRegistry
	Token       *contracts.ERC20

	rpcURL string
}

// Connect dials the RPC endpoint, derives the signer from cfg.SecretKey,
// resolves the Coordinator address (override or chain-ID lookup), and
// binds every contract the worker touches.
func Connect(ctx context.Context, cfg config.Config) (*Node, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("oraclenode: dial %s: %w", cfg.RPCURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("oraclenode: fetch chain id: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.SecretKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("oraclenode: parse secret key: %w", err)
	}
	signer, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("oraclenode: build signer: %w", err)
	}

	var coordinatorAddr common.Address
	if cfg.CoordinatorOverride != nil {
		coordinatorAddr = *cfg.CoordinatorOverride
	} else {
		coordinatorAddr, err = contracts.GetCoordinatorAddress(chainID)
		if err != nil {
			return nil, fmt.Errorf("oraclenode: resolve coordinator address: %w", err)
		}
	}

	coordinator := contracts.NewOracleCoordinator(coordinatorAddr, client)

	registryAddr, err := coordinator.Registry(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("oraclenode: fetch registry address: %w", err)
	}
	registry := contracts.NewOracleRegistry(registryAddr, client)

	tokenAddr, err := coordinator.FeeToken(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("oraclenode: fetch fee token address: %w", err)
	}
	token := contracts.NewERC20(tokenAddr, client)

	address := crypto.PubkeyToAddress(*privateKey.Public().(*ecdsa.PublicKey))

	return &Node{
		Client:      client,
		Signer:      signer,
		Address:     address,
		ChainID:     chainID,
		TxTimeout:   cfg.TxTimeout,
		Addresses:   contracts.ContractAddresses{Coordinator: coordinatorAddr, Registry: registryAddr, Token: tokenAddr},
		Coordinator: coordinator,
		Registry:    registry,
		Token:       token,
		rpcURL:      cfg.RPCURL,
	}, nil
}

// String renders a human-readable startup banner.
func (n *Node) String() string {
	return fmt.Sprintf(
		"oracle node %s\n  rpc:         %s\n  chain id:    %s\n  coordinator: %s\n  registry:    %s\n  token:       %s\n  tx timeout:  %s",
		n.Address, n.rpcURL, n.ChainID, n.Addresses.Coordinator, n.Addresses.Registry, n.Addresses.Token, n.TxTimeout,
	)
}

// Validate checks that this node is registered for every requested
// kind, whitelisted if acting as a Validator, and has at least one
// configured model, before the event loop starts (ported from the
// Rust node's prepare_oracle startup check).
func (n *Node) Validate(ctx context.Context, kinds []contracts.OracleKind, models workflow.Config) error {
	opts := &bind.CallOpts{Context: ctx}
	for _, kind := range kinds {
		registered, err := n.Registry.IsRegistered(opts, n.Address, kind)
		if err != nil {
			return fmt.Errorf("oraclenode: check registration for %s: %w", kind, err)
		}
		if !registered {
			return fmt.Errorf("oraclenode: not registered as %s", kind)
		}
		if kind == contracts.KindValidator {
			whitelisted, err := n.Registry.IsWhitelisted(opts, n.Address)
			if err != nil {
				return fmt.Errorf("oraclenode: check whitelist: %w", err)
			}
			if !whitelisted {
				return ErrNotWhitelisted
			}
		}
		if len(models.Models()) == 0 {
			return fmt.Errorf("%w for %s", ErrNoModelsConfigured, kind)
		}
	}
	log.Info("oracle node validated", "address", n.Address, "kinds", kinds)
	return nil
}

// WaitMined blocks until tx's receipt appears or n.TxTimeout elapses.
// Cancelling ctx does not cut the wait short.
func (n *Node) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.TxTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, n.Client, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: tx %s", ErrReceiptTimeout, tx.Hash())
		}
		return nil, contracts.DecodeError(err)
	}
	return receipt, nil
}
