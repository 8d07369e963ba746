package oraclenode

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/firstbatchxyz/dria-oracle-node/internal/contracts"
)

// ErrUnderpricedExhausted is returned when every step of the gas-hike
// ladder is rejected by the node as underpriced.
var ErrUnderpricedExhausted = errors.New("oraclenode: exhausted gas-hike ladder, still underpriced")

// gasHikeSteps are the percentage bumps applied to the network's
// suggested gas price on successive retries of an underpriced send.
var gasHikeSteps = []int64{0, 12, 24, 36}

const gasHikeSleep = 300 * time.Millisecond

// send is the shape of a single send attempt at a given gas price,
// letting SendWithGasHikes compose with Respond/Validate/Request.
type send func(ctx context.Context, gasPrice *big.Int) (*types.Transaction, error)

// SendWithGasHikes retries send over the gas-hike ladder, bumping the
// network's suggested price by each step's percentage until one attempt
// is accepted. Any error other than an "underpriced" rejection aborts
// immediately, decoded through contracts.DecodeError.
func (n *Node) SendWithGasHikes(ctx context.Context, fn send) (*types.Transaction, error) {
	base, err := n.Client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("oraclenode: suggest gas price: %w", err)
	}

	var lastErr error
	for i, pct := range gasHikeSteps {
		price := hikedPrice(base, pct)
		tx, err := fn(ctx, price)
		if err == nil {
			return tx, nil
		}
		if !isUnderpriced(err) {
			return nil, contracts.DecodeError(err)
		}
		lastErr = err
		log.Warn("transaction underpriced, hiking gas", "attempt", i+1, "pct", pct, "price", price)
		if i < len(gasHikeSteps)-1 {
			time.Sleep(gasHikeSleep)
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnderpricedExhausted, lastErr)
}

func hikedPrice(base *big.Int, pct int64) *big.Int {
	if pct == 0 {
		return new(big.Int).Set(base)
	}
	bump := new(big.Int).Mul(base, big.NewInt(pct))
	bump.Div(bump, big.NewInt(100))
	return new(big.Int).Add(base, bump)
}

func isUnderpriced(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "underpriced")
}
