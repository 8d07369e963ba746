// Command oracle runs a Dria oracle worker node: it registers with the
// Registry contract, then either serves tasks from the Coordinator's
// event stream or runs one of the account-management/inspection verbs.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/postprocess"
	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/workflow"
	"github.com/firstbatchxyz/dria-oracle-node/internal/config"
	"github.com/firstbatchxyz/dria-oracle-node/internal/contracts"
	"github.com/firstbatchxyz/dria-oracle-node/internal/events"
	"github.com/firstbatchxyz/dria-oracle-node/internal/oraclenode"
	"github.com/firstbatchxyz/dria-oracle-node/internal/storage"
)

func main() {
	app := &cli.App{
		Name:  "oracle",
		Usage: "a Dria oracle worker node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "verbosity", Aliases: []string{"v"}, Value: "info", Usage: "log verbosity: crit, error, warn, info, debug, trace"},
		},
		Before: func(c *cli.Context) error {
			setupLogging(c.String("verbosity"))
			return nil
		},
		Commands: []*cli.Command{
			registerCommand,
			unregisterCommand,
			registrationsCommand,
			balanceCommand,
			rewardsCommand,
			claimCommand,
			serveCommand,
			viewCommand,
			requestCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("fatal error", "err", err)
	}
}

func setupLogging(verbosity string) {
	level := log.LevelInfo
	switch strings.ToLower(verbosity) {
	case "crit":
		level = log.LevelCrit
	case "error":
		level = log.LevelError
	case "warn":
		level = log.LevelWarn
	case "info":
		level = log.LevelInfo
	case "debug":
		level = log.LevelDebug
	case "trace":
		level = log.LevelTrace
	}

	glog := log.NewGlogHandler(log.NewTerminalHandlerWithLevel(os.Stderr, level, true))
	glog.Verbosity(level)
	log.SetDefault(log.NewLogger(glog))
}

// connect loads config from the environment and connects the node,
// shared by every command.
func connect(ctx context.Context) (*oraclenode.Node, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, fmt.Errorf("loading config: %w", err)
	}
	node, err := oraclenode.Connect(ctx, cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("connecting node: %w", err)
	}
	log.Info(node.String())
	return node, cfg, nil
}

func blobClient(cfg config.Config) storage.Client {
	if cfg.Blob.ReadOnly() {
		return storage.NewReadOnly(cfg.Blob.DownloadURL, "arweave", storage.WithByteLimit(cfg.Blob.ByteLimit))
	}
	return storage.New(cfg.Blob.UploadURL, cfg.Blob.DownloadURL, "arweave", storage.WithByteLimit(cfg.Blob.ByteLimit))
}

func parseKinds(args []string) ([]contracts.OracleKind, error) {
	kinds := make([]contracts.OracleKind, 0, len(args))
	for _, a := range args {
		kind, err := contracts.ParseOracleKind(a)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

var registerCommand = &cli.Command{
	Name:      "register",
	Usage:     "register as one or more oracle kinds",
	ArgsUsage: "<kind...>",
	Action: func(c *cli.Context) error {
		kinds, err := parseKinds(c.Args().Slice())
		if err != nil {
			return err
		}
		if len(kinds) == 0 {
			return cli.Exit("at least one oracle kind is required", 1)
		}
		node, _, err := connect(c.Context)
		if err != nil {
			return err
		}
		for _, kind := range kinds {
			if err := node.Register(c.Context, kind); err != nil {
				return err
			}
		}
		return nil
	},
}

var unregisterCommand = &cli.Command{
	Name:      "unregister",
	Usage:     "unregister one or more oracle kinds",
	ArgsUsage: "<kind...>",
	Action: func(c *cli.Context) error {
		kinds, err := parseKinds(c.Args().Slice())
		if err != nil {
			return err
		}
		if len(kinds) == 0 {
			return cli.Exit("at least one oracle kind is required", 1)
		}
		node, _, err := connect(c.Context)
		if err != nil {
			return err
		}
		for _, kind := range kinds {
			if err := node.Unregister(c.Context, kind); err != nil {
				return err
			}
		}
		return nil
	},
}

var registrationsCommand = &cli.Command{
	Name:  "registrations",
	Usage: "show registration status for every oracle kind",
	Action: func(c *cli.Context) error {
		node, _, err := connect(c.Context)
		if err != nil {
			return err
		}
		regs, err := node.Registrations(c.Context)
		if err != nil {
			return err
		}
		for _, kind := range contracts.AllKinds {
			log.Info(fmt.Sprintf("%s: %v", kind, regs[kind]))
		}
		return nil
	},
}

var balanceCommand = &cli.Command{
	Name:  "balance",
	Usage: "show native and fee-token balances",
	Action: func(c *cli.Context) error {
		node, _, err := connect(c.Context)
		if err != nil {
			return err
		}
		native, token, err := node.Balance(c.Context)
		if err != nil {
			return err
		}
		log.Info("your balances", "native", native.String(), "token", token.String())
		return nil
	},
}

var rewardsCommand = &cli.Command{
	Name:  "rewards",
	Usage: "show claimable coordinator rewards",
	Action: func(c *cli.Context) error {
		node, _, err := connect(c.Context)
		if err != nil {
			return err
		}
		rewards, err := node.Rewards(c.Context)
		if err != nil {
			return err
		}
		log.Info("claimable rewards", "amount", rewards.String())
		if rewards.Amount.Sign() == 0 {
			log.Warn("you have no claimable rewards")
		}
		return nil
	},
}

var claimCommand = &cli.Command{
	Name:  "claim",
	Usage: "claim outstanding coordinator rewards",
	Action: func(c *cli.Context) error {
		node, _, err := connect(c.Context)
		if err != nil {
			return err
		}
		return node.ClaimRewards(c.Context)
	},
}

var serveCommand = &cli.Command{
	Name:      "serve",
	Usage:     "serve generation/validation tasks from the coordinator's event stream",
	ArgsUsage: "[kind...]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Required: true, Usage: "comma-separated list of models to serve"},
		&cli.Uint64Flag{Name: "from", Usage: "block number to start backfilling from"},
		&cli.Uint64Flag{Name: "to", Usage: "block number to stop backfilling at"},
		&cli.BoolFlag{Name: "stop-after-backfill", Usage: "exit once the backfill range is processed"},
		&cli.StringFlag{Name: "task-id", Usage: "process a single task id and exit"},
		&cli.StringFlag{Name: "llm-url", Usage: "base URL of the OpenAI-compatible completions endpoint", Value: "http://localhost:8080/v1"},
	},
	Action: func(c *cli.Context) error {
		kinds, err := parseKinds(c.Args().Slice())
		if err != nil {
			return err
		}
		models := workflow.NewConfig(c.String("model"))

		node, cfg, err := connect(c.Context)
		if err != nil {
			return err
		}
		if err := node.Validate(c.Context, kinds, models); err != nil {
			return err
		}

		blobs := blobClient(cfg)
		procs := postprocess.NewRegistry(postprocess.Identity{}, postprocess.NewSwanPurchase())
		exec := workflow.NewHTTPExecutor(c.String("llm-url"))

		loop := events.New(node, blobs, procs, models, exec)

		opts := events.Options{Kinds: kinds, StopAfterBackfill: c.Bool("stop-after-backfill")}
		if c.IsSet("from") && c.IsSet("to") {
			opts.FromBlock = new(big.Int).SetUint64(c.Uint64("from"))
			opts.ToBlock = new(big.Int).SetUint64(c.Uint64("to"))
		}
		if taskIDStr := c.String("task-id"); taskIDStr != "" {
			taskID, ok := new(big.Int).SetString(taskIDStr, 10)
			if !ok {
				return cli.Exit(fmt.Sprintf("invalid task id %q", taskIDStr), 1)
			}
			opts.TaskID = taskID
		}

		ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := loop.Run(ctx, opts); err != nil && ctx.Err() == nil {
			return err
		}
		log.Info("oracle node stopped")
		return nil
	},
}

var viewCommand = &cli.Command{
	Name:  "view",
	Usage: "view a single task, or every status change in a block range",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "task-id", Usage: "task id to view"},
		&cli.Uint64Flag{Name: "from", Usage: "starting block number"},
		&cli.Uint64Flag{Name: "to", Usage: "ending block number"},
	},
	Action: func(c *cli.Context) error {
		node, _, err := connect(c.Context)
		if err != nil {
			return err
		}

		if taskIDStr := c.String("task-id"); taskIDStr != "" {
			taskID, ok := new(big.Int).SetString(taskIDStr, 10)
			if !ok {
				return cli.Exit(fmt.Sprintf("invalid task id %q", taskIDStr), 1)
			}
			view, err := node.ViewTask(c.Context, taskID)
			if err != nil {
				return err
			}
			printTaskView(taskID, view)
			return nil
		}

		from := new(big.Int).SetUint64(c.Uint64("from"))
		to := new(big.Int).SetUint64(c.Uint64("to"))
		updates, err := node.ViewTaskRange(c.Context, from, to)
		if err != nil {
			return err
		}
		for _, u := range updates {
			before, _ := contracts.ParseTaskStatus(u.StatusBefore)
			after, _ := contracts.ParseTaskStatus(u.StatusAfter)
			log.Info(fmt.Sprintf("task %s changed from %s to %s at block %d, tx %s", u.TaskID, before, after, u.Raw.BlockNumber, u.Raw.TxHash))
		}
		return nil
	},
}

func printTaskView(taskID *big.Int, view oraclenode.TaskView) {
	models, _ := contracts.BytesToString(view.Request.Models)
	input, _ := contracts.BytesToString(view.Request.Input)
	protocol, _ := contracts.Bytes32ToString(view.Request.Protocol)
	log.Info(fmt.Sprintf("task %s\nrequester: %s\nstatus:    %s\ninput:     %s\nmodels:    %s\nprotocol:  %s",
		taskID, view.Request.Requester, view.Request.Status, input, models, protocol))

	if len(view.Responses) == 0 {
		log.Info("no responses yet")
	}
	for i, r := range view.Responses {
		output, _ := contracts.BytesToString(r.Output)
		metadata, _ := contracts.BytesToString(r.Metadata)
		log.Info(fmt.Sprintf("response #%d\n  generator: %s\n  output:    %s\n  metadata:  %s", i, r.Responder, output, metadata))
	}

	if len(view.Validations) == 0 {
		log.Info("no validations yet")
	}
	for i, v := range view.Validations {
		metadata, _ := contracts.BytesToString(v.Metadata)
		log.Info(fmt.Sprintf("validation #%d\n  validator: %s\n  scores:    %v\n  metadata:  %s", i, v.Validator, v.Scores, metadata))
	}
}

var requestCommand = &cli.Command{
	Name:      "request",
	Usage:     "request a new task (for testing; production workers only respond)",
	ArgsUsage: "<input> <model...>",
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: "difficulty", Value: 2, Usage: "proof-of-work difficulty"},
		&cli.StringFlag{Name: "protocol", Value: "dria-oracle-node/1", Usage: "protocol tag for the request"},
		&cli.Uint64Flag{Name: "num-gens", Value: 1, Usage: "number of generations to request"},
		&cli.Uint64Flag{Name: "num-vals", Value: 1, Usage: "number of validations to request"},
	},
	Action: func(c *cli.Context) error {
		args := c.Args().Slice()
		if len(args) < 2 {
			return cli.Exit("request needs <input> and at least one <model>", 1)
		}
		inputText, models := args[0], args[1:]

		node, _, err := connect(c.Context)
		if err != nil {
			return err
		}

		protocol, err := contracts.StringToBytes32(c.String("protocol"))
		if err != nil {
			return fmt.Errorf("protocol tag too long: %w", err)
		}

		params := contracts.TaskParameters{
			Difficulty:     uint8(c.Uint64("difficulty")),
			NumGenerations: c.Uint64("num-gens"),
			NumValidations: c.Uint64("num-vals"),
		}

		receipt, err := node.RequestTask(c.Context, []byte(inputText), []byte(strings.Join(models, ",")), params, protocol)
		if err != nil {
			return err
		}
		log.Info("task requested successfully", "tx", receipt.TxHash)
		return nil
	},
}
