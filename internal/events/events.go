// Package events implements the Event Loop / Dispatcher (C9): resolving
// which task kinds this node acts on, optionally backfilling a block
// range, then either stopping or subscribing live to StatusUpdate events
// and dispatching each to the generation or validation handler.
package events

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/postprocess"
	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/workflow"
	"github.com/firstbatchxyz/dria-oracle-node/internal/contracts"
	"github.com/firstbatchxyz/dria-oracle-node/internal/oraclenode"
	"github.com/firstbatchxyz/dria-oracle-node/internal/storage"

	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/generation"
	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/validation"
)

// State is one stage of the loop's lifecycle.
type State int

const (
	Initializing State = iota
	Backfilling
	Subscribed
	Reconnecting
	Stopped
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Backfilling:
		return "backfilling"
	case Subscribed:
		return "subscribed"
	case Reconnecting:
		return "reconnecting"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// reconnectBackoff is how long the loop waits before re-subscribing
// after a live subscription's stream ends unexpectedly.
const reconnectBackoff = 5 * time.Second

// ErrNoEffectiveKinds is returned when neither an explicit kind list nor
// on-chain registration probing yields any kind to act on.
var ErrNoEffectiveKinds = errors.New("events: no effective oracle kinds to serve")

// Options configures a Loop run.
type Options struct {
	// Kinds, when non-empty, is used as-is. When empty, the loop probes
	// the Registry for this node's own registrations.
	Kinds []contracts.OracleKind
	// FromBlock/ToBlock, when both non-nil, bound an optional backfill
	// pass over historical StatusUpdate logs before live subscription.
	FromBlock, ToBlock *big.Int
	// StopAfterBackfill skips live subscription once backfill completes.
	StopAfterBackfill bool
	// TaskID, when non-nil, processes a single task synchronously and
	// returns without entering backfill or live subscription at all.
	TaskID *big.Int
}

// Loop runs the event dispatcher state machine.
type Loop struct {
	Node   *oraclenode.Node
	Blobs  storage.Client
	Procs  postprocess.Registry
	Models workflow.Config
	Exec   workflow.Executor
	state  State
}

// New builds a Loop ready to Run.
func New(node *oraclenode.Node, blobs storage.Client, procs postprocess.Registry, models workflow.Config, exec workflow.Executor) *Loop {
	return &Loop{Node: node, Blobs: blobs, Procs: procs, Models: models, Exec: exec, state: Initializing}
}

// State returns the loop's current lifecycle state.
func (l *Loop) State() State { return l.state }

// Run resolves effective kinds, optionally processes a single task or a
// backfill range, then subscribes live until ctx is cancelled.
func (l *Loop) Run(ctx context.Context, opts Options) error {
	l.state = Initializing

	if opts.TaskID != nil {
		l.processTaskByID(ctx, opts.TaskID, opts.Kinds)
		l.state = Stopped
		return nil
	}

	kinds, err := l.effectiveKinds(ctx, opts.Kinds)
	if err != nil {
		return err
	}
	log.Info("event loop starting", "kinds", kinds)

	if opts.FromBlock != nil && opts.ToBlock != nil {
		l.state = Backfilling
		l.backfill(ctx, opts.FromBlock, opts.ToBlock, kinds)
		if opts.StopAfterBackfill {
			l.state = Stopped
			return nil
		}
	}

	return l.subscribeLive(ctx, kinds)
}

// effectiveKinds returns explicit when non-empty, otherwise probes the
// Registry for this node's own registrations.
func (l *Loop) effectiveKinds(ctx context.Context, explicit []contracts.OracleKind) ([]contracts.OracleKind, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}

	opts := &bind.CallOpts{Context: ctx}
	var kinds []contracts.OracleKind
	for _, kind := range contracts.AllKinds {
		registered, err := l.Node.Registry.IsRegistered(opts, l.Node.Address, kind)
		if err != nil {
			return nil, fmt.Errorf("events: probing registration for %s: %w", kind, err)
		}
		if registered {
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		return nil, ErrNoEffectiveKinds
	}
	return kinds, nil
}

// backfill processes every StatusUpdate event in [from, to] strictly in
// chain order, one at a time. A single event's processing error is
// logged and skipped; it never aborts the rest of the backfill.
func (l *Loop) backfill(ctx context.Context, from, to *big.Int, kinds []contracts.OracleKind) {
	log.Info("backfilling status updates", "from", from, "to", to)
	logsCh, sub, err := l.Node.Coordinator.FilterStatusUpdateLogs(&bind.FilterOpts{Start: from.Uint64(), End: toUint64Ptr(to), Context: ctx})
	if err != nil {
		log.Error("could not open backfill filter", "err", err)
		return
	}
	defer sub.Unsubscribe()

	processInOrder(logsCh, func(rawLog types.Log) {
		l.dispatchLog(ctx, rawLog, kinds)
	})
}

// processInOrder drains logsCh one log at a time, waiting for dispatch
// to return before pulling the next one. Backfill depends on this: the
// historical range must be handled in strict chain order, never
// reordered by concurrent dispatch.
func processInOrder(logsCh <-chan types.Log, dispatch func(types.Log)) {
	for rawLog := range logsCh {
		dispatch(rawLog)
	}
}

func toUint64Ptr(b *big.Int) *uint64 {
	v := b.Uint64()
	return &v
}

func (l *Loop) subscribeLive(ctx context.Context, kinds []contracts.OracleKind) error {
	for {
		l.state = Subscribed
		logsCh, sub, err := l.Node.Coordinator.WatchStatusUpdateLogs(&bind.WatchOpts{Context: ctx})
		if err != nil {
			return fmt.Errorf("events: opening live subscription: %w", err)
		}

		streamEnded := l.drainLive(ctx, logsCh, sub, kinds)
		sub.Unsubscribe()

		if ctx.Err() != nil {
			l.state = Stopped
			return ctx.Err()
		}
		if !streamEnded {
			l.state = Stopped
			return nil
		}

		l.state = Reconnecting
		log.Warn("live subscription ended, reconnecting", "backoff", reconnectBackoff)
		select {
		case <-ctx.Done():
			l.state = Stopped
			return ctx.Err()
		case <-time.After(reconnectBackoff):
		}
	}
}

// drainLive processes logs until ctx is cancelled, the subscription
// errors, or the log channel closes (stream ended, reported via the
// returned bool so the caller knows to reconnect).
func (l *Loop) drainLive(ctx context.Context, logsCh chan types.Log, sub interface{ Err() <-chan error }, kinds []contracts.OracleKind) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				return true
			}
			log.Error("subscription error", "err", err)
			return true
		case rawLog, ok := <-logsCh:
			if !ok {
				return true
			}
			l.dispatchLog(ctx, rawLog, kinds)
		}
	}
}

func (l *Loop) dispatchLog(ctx context.Context, rawLog types.Log, kinds []contracts.OracleKind) {
	update, err := l.Node.Coordinator.UnpackStatusUpdate(rawLog)
	if err != nil {
		log.Error("could not decode status update log", "err", err)
		return
	}
	l.dispatch(ctx, update, kinds)
}

func (l *Loop) processTaskByID(ctx context.Context, taskID *big.Int, kinds []contracts.OracleKind) {
	request, err := l.Node.Coordinator.Requests(&bind.CallOpts{Context: ctx}, taskID)
	if err != nil {
		log.Error("could not fetch task", "task_id", taskID, "err", err)
		return
	}
	l.dispatch(ctx, contracts.StatusUpdate{TaskID: taskID, Protocol: request.Protocol, StatusAfter: uint8(request.Status)}, kinds)
}

// action is the dispatch decision for one status update.
type action int

const (
	actionIgnore action = iota
	actionLogAndIgnore
	actionGenerate
	actionValidate
)

// decideAction implements the dispatch-by-statusAfter rule verbatim,
// including the None-status log-and-ignore branch. Split out from
// dispatch so the routing decision is testable without a chain backend.
func decideAction(status contracts.TaskStatus, kinds []contracts.OracleKind) action {
	switch status {
	case contracts.StatusPendingGeneration:
		if !hasKind(kinds, contracts.KindGenerator) {
			return actionIgnore
		}
		return actionGenerate
	case contracts.StatusPendingValidation:
		if !hasKind(kinds, contracts.KindValidator) {
			return actionIgnore
		}
		return actionValidate
	case contracts.StatusCompleted:
		return actionIgnore
	default: // contracts.StatusNone
		return actionLogAndIgnore
	}
}

func (l *Loop) dispatch(ctx context.Context, update contracts.StatusUpdate, kinds []contracts.OracleKind) {
	status, err := contracts.ParseTaskStatus(update.StatusAfter)
	if err != nil {
		log.Error("could not parse task status", "status", update.StatusAfter, "task_id", update.TaskID)
		return
	}

	var receipt *types.Receipt
	switch decideAction(status, kinds) {
	case actionIgnore:
		log.Debug("ignoring task", "task_id", update.TaskID, "status", status)
		return
	case actionLogAndIgnore:
		log.Error("none status received in an event", "task_id", update.TaskID)
		return
	case actionGenerate:
		receipt, err = generation.Handle(ctx, l.Node, l.Blobs, l.Procs, l.Models, l.Exec, update.TaskID, update.Protocol)
	case actionValidate:
		receipt, err = validation.Handle(ctx, l.Node, l.Blobs, l.Exec, update.TaskID)
	}

	if err != nil {
		log.Error("could not process task", "task_id", update.TaskID, "err", err)
		return
	}
	if receipt != nil {
		log.Info("task processed successfully", "task_id", update.TaskID, "tx", receipt.TxHash)
	} else {
		log.Debug("task ignored", "task_id", update.TaskID)
	}
}

func hasKind(kinds []contracts.OracleKind, kind contracts.OracleKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
