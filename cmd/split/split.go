package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/willbeason/crosssell/pkg/cli"
	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/ingest"
	"github.com/willbeason/crosssell/pkg/tables"
)

const FlagFormat = "format"

func init() {
	cmd.Flags().Float64(cli.FlagTestRatio, ingest.DefaultTestRatio, "share of rows held out for testing (env CROSSSELL_TEST_RATIO)")
	cmd.Flags().String(FlagFormat, "csv", "output format, csv or parquet")
	cli.AddSeedFlag(cmd.Flags())
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
	Use:     "split IN OUT_DIR",
	Short:   "Splits an ingested feature store into train and test tables",
	Args:    cobra.ExactArgs(2),
	Version: "0.1.0",
	RunE:    runE,
}

func runE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	inPath := args[0]
	outDir := args[1]

	cfg, err := cli.Config(cmd)
	if err != nil {
		return err
	}
	logger := cli.Logger(cmd)

	format, err := cmd.Flags().GetString(FlagFormat)
	if err != nil {
		return err
	}
	var ext string
	switch format {
	case "csv":
		ext = tables.CSVExt
	case "parquet":
		ext = tables.ParquetExt
	default:
		return fmt.Errorf("%w: unknown format %q", errs.ErrConfig, format)
	}

	err = os.MkdirAll(outDir, os.ModePerm)
	if err != nil {
		return fmt.Errorf("%w: creating output directory: %w", errs.ErrPersistence, err)
	}

	t, err := ingest.NewReader(logger).ReadTable(ctx, inPath)
	if err != nil {
		return err
	}

	seed := cli.Seed(cfg)
	train, test, err := ingest.Split(t, cfg.TestRatio, seed)
	if err != nil {
		return err
	}

	trainPath := filepath.Join(outDir, tables.TrainName+ext)
	err = ingest.WriteTable(trainPath, train)
	if err != nil {
		return err
	}
	testPath := filepath.Join(outDir, tables.TestName+ext)
	err = ingest.WriteTable(testPath, test)
	if err != nil {
		return err
	}

	logger.Info("split", "seed", seed, "train", train.Rows(), "test", test.Rows())
	fmt.Println(trainPath)
	fmt.Println(testPath)
	return nil
}
