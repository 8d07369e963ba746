package oraclenode

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/firstbatchxyz/dria-oracle-node/internal/contracts"
)

// RequestTask posts a new task to the Coordinator, approving whatever
// additional fee allowance is required first. Exists for testing and
// local experimentation; a production worker only ever responds to
// tasks, it never originates them.
func (n *Node) RequestTask(ctx context.Context, input []byte, models []byte, params contracts.TaskParameters, protocol [32]byte) (*types.Receipt, error) {
	opts := &bind.CallOpts{Context: ctx}

	fee, err := n.Coordinator.GetFee(opts, params)
	if err != nil {
		return nil, fmt.Errorf("oraclenode: quoting request fee: %w", err)
	}

	balance, err := n.Token.BalanceOf(opts, n.Address)
	if err != nil {
		return nil, fmt.Errorf("oraclenode: fetching token balance: %w", err)
	}
	if balance.Cmp(fee.TotalFee) < 0 {
		return nil, fmt.Errorf("oraclenode: insufficient balance to request task (have %s, need %s)", contracts.FormatEther(balance), contracts.FormatEther(fee.TotalFee))
	}

	allowance, err := n.Token.Allowance(opts, n.Address, n.Coordinator.Address())
	if err != nil {
		return nil, fmt.Errorf("oraclenode: fetching allowance: %w", err)
	}
	if difference := approvalShortfall(fee.TotalFee, allowance); difference != nil {
		log.Info("approving tokens for task request", "amount", contracts.FormatEther(difference))
		if err := n.approveAndWait(ctx, n.Coordinator.Address(), difference); err != nil {
			return nil, fmt.Errorf("oraclenode: approving coordinator: %w", err)
		}
	}

	tx, err := n.SendWithGasHikes(ctx, func(ctx context.Context, gasPrice *big.Int) (*types.Transaction, error) {
		txOpts := *n.Signer
		txOpts.Context = ctx
		txOpts.GasPrice = gasPrice
		return n.Coordinator.Request(&txOpts, protocol, input, models, params)
	})
	if err != nil {
		return nil, fmt.Errorf("oraclenode: submitting request: %w", err)
	}
	return n.WaitMined(ctx, tx)
}

// TaskView bundles a task's request, responses, and validations for
// display purposes (the `view` CLI verb).
type TaskView struct {
	Request     contracts.TaskRequest
	Responses   []contracts.TaskResponse
	Validations []contracts.TaskValidation
}

// ViewTask fetches everything known about a single task.
func (n *Node) ViewTask(ctx context.Context, taskID *big.Int) (TaskView, error) {
	opts := &bind.CallOpts{Context: ctx}

	request, err := n.Coordinator.Requests(opts, taskID)
	if err != nil {
		return TaskView{}, fmt.Errorf("oraclenode: fetching request: %w", err)
	}
	responses, err := n.Coordinator.GetResponses(opts, taskID)
	if err != nil {
		return TaskView{}, fmt.Errorf("oraclenode: fetching responses: %w", err)
	}
	validations, err := n.Coordinator.GetValidations(opts, taskID)
	if err != nil {
		return TaskView{}, fmt.Errorf("oraclenode: fetching validations: %w", err)
	}
	return TaskView{Request: request, Responses: responses, Validations: validations}, nil
}

// ViewTaskRange lists every StatusUpdate event in [from, to], for the
// `view --from --to` CLI form.
func (n *Node) ViewTaskRange(ctx context.Context, from, to *big.Int) ([]contracts.StatusUpdate, error) {
	logsCh, sub, err := n.Coordinator.FilterStatusUpdateLogs(&bind.FilterOpts{Start: from.Uint64(), End: toUint64PtrOrNil(to), Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("oraclenode: opening status update filter: %w", err)
	}
	defer sub.Unsubscribe()

	var updates []contracts.StatusUpdate
	for rawLog := range logsCh {
		update, err := n.Coordinator.UnpackStatusUpdate(rawLog)
		if err != nil {
			log.Error("could not decode status update log", "err", err)
			continue
		}
		updates = append(updates, update)
	}
	return updates, nil
}

func toUint64PtrOrNil(b *big.Int) *uint64 {
	if b == nil {
		return nil
	}
	v := b.Uint64()
	return &v
}
