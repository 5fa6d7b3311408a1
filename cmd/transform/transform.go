package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/willbeason/crosssell/pkg/cli"
	"github.com/willbeason/crosssell/pkg/ingest"
	"github.com/willbeason/crosssell/pkg/store"
	"github.com/willbeason/crosssell/pkg/transformation"
)

func init() {
	cmd.Flags().String(cli.FlagSchema, "", "schema file (env CROSSSELL_SCHEMA, default config/schema.yaml)")
	cli.AddStoreFlags(cmd.Flags())
	cli.AddSeedFlag(cmd.Flags())
	cmd.Flags().Bool(cli.FlagBalanceTrain, true, "rebalance the train split (env CROSSSELL_BALANCE_TRAIN)")
	cmd.Flags().Bool(cli.FlagBalanceTest, true, "rebalance the test split (env CROSSSELL_BALANCE_TEST)")
	cli.AddVerboseFlag(cmd.Flags())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "transform TRAIN TEST",
	Short:   "Encodes, scales and rebalances the train and test tables and stores the result",
	Args:    cobra.ExactArgs(2),
	Version: "0.1.0",
	RunE:    runE,
}

func runE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	trainPath := args[0]
	testPath := args[1]

	cfg, err := cli.Config(cmd)
	if err != nil {
		return err
	}
	logger := cli.Logger(cmd)

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		err := st.Close()
		if err != nil {
			logger.Error("closing store", "error", err)
		}
	}()

	seed := cli.Seed(cfg)
	logger.Debug("configured", "schema", cfg.SchemaPath, "store", cfg.Store, "prefix", cfg.ArtifactPrefix, "seed", seed)

	runner := transformation.NewRunner(cfg.SchemaPath, ingest.NewReader(logger), st, seed, logger)
	runner.Prefix = cfg.ArtifactPrefix
	runner.Options = transformation.Options{
		BalanceTrain: cfg.BalanceTrain,
		BalanceTest:  cfg.BalanceTest,
	}

	bar := cli.NewBar("transform", int(transformation.Done))
	runner.OnStage = func(s transformation.Stage) {
		// Entering a stage completes the one before it.
		if s != transformation.LoadSchema {
			bar.Step()
		}
	}

	bundle, err := runner.Run(ctx, trainPath, testPath)
	if err != nil {
		return err
	}

	fmt.Println(bundle.RunID)
	return nil
}
