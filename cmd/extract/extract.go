package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/willbeason/crosssell/pkg/cli"
	"github.com/willbeason/crosssell/pkg/ingest"
	"github.com/willbeason/crosssell/pkg/tables"
)

func init() {
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
	Use:     "extract IN OUT",
	Short:   "Converts a feature store export into a typed .csv or .parquet table",
	Long:    "IN is a .jsonl, .jsonl.gz, .csv or .parquet file, or a directory of .jsonl shards. Columns outside the insurance table are dropped.",
	Args:    cobra.ExactArgs(2),
	Version: "0.1.0",
	RunE:    runE,
}

func runE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	inPath := args[0]
	outPath := args[1]
	logger := cli.Logger(cmd)

	t, err := ingest.NewReader(logger).ReadTable(ctx, inPath)
	if err != nil {
		return err
	}

	conformed, dropped, err := ingest.Conform(t, tables.Insurance)
	if err != nil {
		return err
	}
	if len(dropped) > 0 {
		logger.Warn("dropping columns", "columns", dropped)
	}

	err = ingest.WriteTable(outPath, conformed)
	if err != nil {
		return err
	}

	logger.Info("extracted", "path", outPath, "rows", conformed.Rows())
	return nil
}
