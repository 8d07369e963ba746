// Package validation implements the Validation Handler (C8): scoring
// every generation response submitted for a task against its original
// input, then submitting the validation transaction.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/firstbatchxyz/dria-oracle-node/internal/compute"
	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/nonce"
	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/workflow"
	"github.com/firstbatchxyz/dria-oracle-node/internal/oraclenode"
	"github.com/firstbatchxyz/dria-oracle-node/internal/storage"
)

// ValidatorModel is the model every validation runs against, regardless
// of which models the generators used.
const ValidatorModel workflow.Model = "gpt-4o"

// Handle implements the validation flow for taskID. It returns
// (nil, nil) when this node is itself one of the task's generators
// (self-validation is never attempted), and an error if this node has
// already validated the task (the contract would revert anyway, but
// failing fast here avoids wasting a mined nonce).
func Handle(
	ctx context.Context,
	node *oraclenode.Node,
	blobs storage.Client,
	exec workflow.Executor,
	taskID *big.Int,
) (*types.Receipt, error) {
	log.Info("handling validation task", "task_id", taskID)

	opts := &bind.CallOpts{Context: ctx}

	responses, err := node.Coordinator.GetResponses(opts, taskID)
	if err != nil {
		return nil, fmt.Errorf("validation: fetching responses: %w", err)
	}
	for _, r := range responses {
		if r.Responder == node.Address {
			log.Debug("cannot validate own generation response", "task_id", taskID)
			return nil, nil
		}
	}

	validations, err := node.Coordinator.GetValidations(opts, taskID)
	if err != nil {
		return nil, fmt.Errorf("validation: fetching existing validations: %w", err)
	}
	for _, v := range validations {
		if v.Validator == node.Address {
			return nil, fmt.Errorf("validation: already validated task %s", taskID)
		}
	}

	request, err := node.Coordinator.Requests(opts, taskID)
	if err != nil {
		return nil, fmt.Errorf("validation: fetching task request: %w", err)
	}

	generations := make([]string, 0, len(responses))
	for _, r := range responses {
		metadataText, err := storage.Resolve(ctx, r.Metadata, blobs)
		if err != nil {
			return nil, fmt.Errorf("validation: resolving response metadata: %w", err)
		}
		generations = append(generations, metadataText)
	}
	instruction, err := storage.Resolve(ctx, request.Input, blobs)
	if err != nil {
		return nil, fmt.Errorf("validation: resolving task input: %w", err)
	}

	results, err := score(ctx, exec, instruction, generations)
	if err != nil {
		return nil, fmt.Errorf("validation: scoring generations: %w", err)
	}

	scores := make([]*big.Int, len(results))
	for i, r := range results {
		scores[i] = big.NewInt(int64(compute.FinalScoreToSolidity(r.FinalScore)))
	}

	metadata, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("validation: serializing validation results: %w", err)
	}
	if encoded, large, err := blobs.PutIfLarge(ctx, metadata); err != nil {
		return nil, fmt.Errorf("validation: offloading metadata: %w", err)
	} else if large {
		metadata = encoded
	}

	taskIDU256, overflow := uint256.FromBig(taskID)
	if overflow {
		return nil, fmt.Errorf("validation: task id %s overflows uint256", taskID)
	}
	minedNonce, err := nonce.Mine(ctx, request.Parameters.Difficulty, request.Requester, node.Address, request.Input, taskIDU256)
	if err != nil {
		return nil, fmt.Errorf("validation: mining nonce: %w", err)
	}

	tx, err := node.SendWithGasHikes(ctx, func(ctx context.Context, gasPrice *big.Int) (*types.Transaction, error) {
		txOpts := *node.Signer
		txOpts.Context = ctx
		txOpts.GasPrice = gasPrice
		return node.Coordinator.Validate(&txOpts, taskID, minedNonce.ToBig(), scores, metadata)
	})
	if err != nil {
		return nil, fmt.Errorf("validation: submitting validation: %w", err)
	}

	receipt, err := node.WaitMined(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("validation: waiting for receipt: %w", err)
	}
	log.Info("validation submitted", "task_id", taskID, "tx", tx.Hash())
	return receipt, nil
}

// score runs the fixed validation workflow against instruction and
// generations, fixing up the executor's doubly-JSON-encoded result
// shape (an array of JSON strings, each itself a ValidationResult).
func score(ctx context.Context, exec workflow.Executor, instruction string, generations []string) ([]compute.ValidationResult, error) {
	wf, fallback := workflow.BuildValidationWorkflow(instruction, generations)
	raw, err := workflow.RunWithRetries(ctx, exec, wf, ValidatorModel, fallback)
	if err != nil {
		return nil, err
	}

	var encodedResults []string
	if err := json.Unmarshal([]byte(raw), &encodedResults); err != nil {
		return nil, fmt.Errorf("parsing validation result envelope: %w", err)
	}

	results := make([]compute.ValidationResult, len(encodedResults))
	for i, s := range encodedResults {
		if err := json.Unmarshal([]byte(s), &results[i]); err != nil {
			return nil, fmt.Errorf("parsing validation result %d: %w", i, err)
		}
	}
	return results, nil
}
