// Package generation implements the Generation Handler (C7): resolving
// a task's input, running it through the configured LLM, post-processing
// the output, mining its proof-of-work nonce, and submitting the
// response transaction.
package generation

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
	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/input"
	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/nonce"
	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/postprocess"
	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/workflow"
	"github.com/firstbatchxyz/dria-oracle-node/internal/contracts"
	"github.com/firstbatchxyz/dria-oracle-node/internal/oraclenode"
	"github.com/firstbatchxyz/dria-oracle-node/internal/storage"
)

// Handle implements the generation flow for taskID. It returns
// (nil, nil) when this node has already responded; any other error
// aborts the attempt without submitting.
func Handle(
	ctx context.Context,
	node *oraclenode.Node,
	blobs storage.Client,
	procs postprocess.Registry,
	cfg workflow.Config,
	exec workflow.Executor,
	taskID *big.Int,
	protocol [32]byte,
) (*types.Receipt, error) {
	log.Info("handling generation task", "task_id", taskID)

	opts := &bind.CallOpts{Context: ctx}

	responses, err := node.Coordinator.GetResponses(opts, taskID)
	if err != nil {
		return nil, fmt.Errorf("generation: fetching existing responses: %w", err)
	}
	for _, r := range responses {
		if r.Responder == node.Address {
			log.Debug("already responded to generation task", "task_id", taskID)
			return nil, nil
		}
	}

	request, err := node.Coordinator.Requests(opts, taskID)
	if err != nil {
		return nil, fmt.Errorf("generation: fetching task request: %w", err)
	}
	if request.Status == contracts.StatusCompleted {
		log.Debug("task already completed, nothing to do", "task_id", taskID)
		return nil, nil
	}

	modelsString, err := contracts.BytesToString(request.Models)
	if err != nil {
		return nil, fmt.Errorf("generation: decoding models list: %w", err)
	}
	model, ok := cfg.MatchAny(modelsString)
	if !ok {
		log.Error("no matching model found, falling back to default", "requested", modelsString, "fallback", model)
	}

	protocolString, err := contracts.Bytes32ToString(protocol)
	if err != nil {
		return nil, fmt.Errorf("generation: decoding protocol tag: %w", err)
	}

	req, err := input.Resolve(ctx, request.Input, blobs)
	if err != nil {
		return nil, fmt.Errorf("generation: resolving input: %w", err)
	}

	output, err := execute(ctx, node, blobs, exec, model, req)
	if err != nil {
		return nil, fmt.Errorf("generation: executing request: %w", err)
	}

	proc := procs.Lookup(contracts.ProtocolPrefix(protocolString))
	out, metadata, offload, err := proc.PostProcess(output)
	if err != nil {
		return nil, fmt.Errorf("generation: post-processing output: %w", err)
	}

	if offload {
		if encoded, large, err := blobs.PutIfLarge(ctx, out); err != nil {
			return nil, fmt.Errorf("generation: offloading output: %w", err)
		} else if large {
			out = encoded
		}
	}
	if encoded, large, err := blobs.PutIfLarge(ctx, metadata); err != nil {
		return nil, fmt.Errorf("generation: offloading metadata: %w", err)
	} else if large {
		metadata = encoded
	}

	taskIDU256, overflow := uint256.FromBig(taskID)
	if overflow {
		return nil, fmt.Errorf("generation: task id %s overflows uint256", taskID)
	}
	minedNonce, err := nonce.Mine(ctx, request.Parameters.Difficulty, request.Requester, node.Address, request.Input, taskIDU256)
	if err != nil {
		return nil, fmt.Errorf("generation: mining nonce: %w", err)
	}

	tx, err := node.SendWithGasHikes(ctx, func(ctx context.Context, gasPrice *big.Int) (*types.Transaction, error) {
		txOpts := *node.Signer
		txOpts.Context = ctx
		txOpts.GasPrice = gasPrice
		return node.Coordinator.Respond(&txOpts, taskID, minedNonce.ToBig(), out, metadata)
	})
	if err != nil {
		return nil, fmt.Errorf("generation: submitting response: %w", err)
	}

	receipt, err := node.WaitMined(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("generation: waiting for receipt: %w", err)
	}
	log.Info("generation response submitted", "task_id", taskID, "tx", tx.Hash())
	return receipt, nil
}

// execute dispatches req to the right workflow shape and returns the raw
// LLM output string.
func execute(ctx context.Context, node *oraclenode.Node, blobs storage.Client, exec workflow.Executor, model workflow.Model, req compute.GenerationRequest) (string, error) {
	switch r := req.(type) {
	case compute.WorkflowRequest:
		return workflow.RunWithRetries(ctx, exec, r.Workflow, model, workflow.DefaultMaxTime)
	case compute.StringRequest:
		wf, fallback := workflow.BuildGenerationWorkflow(r.Prompt)
		return workflow.RunWithRetries(ctx, exec, wf, model, fallback)
	case compute.ChatHistoryRequest:
		return executeChatHistory(ctx, node, blobs, exec, model, r)
	default:
		return "", fmt.Errorf("generation: unknown request type %T", req)
	}
}

// executeChatHistory resolves a chat-history reference, runs one more
// turn of the conversation, and returns the serialized, updated history
// as the generation's output.
func executeChatHistory(ctx context.Context, node *oraclenode.Node, blobs storage.Client, exec workflow.Executor, model workflow.Model, r compute.ChatHistoryRequest) (string, error) {
	var history []compute.Message

	if r.HistoryID != 0 {
		historyID := new(big.Int).SetUint64(r.HistoryID)
		opts := &bind.CallOpts{Context: ctx}

		nextTaskID, err := node.Coordinator.NextTaskID(opts)
		if err != nil {
			return "", fmt.Errorf("fetching next task id: %w", err)
		}
		if historyID.Cmp(nextTaskID) >= 0 {
			return "", fmt.Errorf("history task %s does not exist yet (next task id %s)", historyID, nextTaskID)
		}

		best, err := node.Coordinator.GetBestResponse(opts, historyID)
		if err != nil {
			return "", fmt.Errorf("fetching best response for history task: %w", err)
		}
		historyText, err := storage.Resolve(ctx, best.Output, blobs)
		if err != nil {
			return "", fmt.Errorf("resolving history output: %w", err)
		}

		if err := json.Unmarshal([]byte(historyText), &history); err != nil {
			// fall back to reconstructing a two-message history from the
			// original task's input (the "double-assistant" shape: the
			// current turn's user content is never appended below, only
			// the fresh assistant reply is, so a resumed reply can end up
			// following another assistant message).
			historyRequest, err := node.Coordinator.Requests(opts, historyID)
			if err != nil {
				return "", fmt.Errorf("fetching original history task request: %w", err)
			}
			originalInput, err := storage.Resolve(ctx, historyRequest.Input, blobs)
			if err != nil {
				return "", fmt.Errorf("resolving original history input: %w", err)
			}
			history = []compute.Message{
				{Role: "user", Content: originalInput},
				{Role: "assistant", Content: historyText},
			}
		}
	}

	wf, fallback := workflow.BuildChatWorkflow(history, r.Content)
	output, err := workflow.RunWithRetries(ctx, exec, wf, model, fallback)
	if err != nil {
		return "", err
	}

	history = append(history, compute.Message{Role: "assistant", Content: output})
	serialized, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("serializing chat history: %w", err)
	}
	return string(serialized), nil
}
