package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/willbeason/crosssell/pkg/artifact"
	"github.com/willbeason/crosssell/pkg/cli"
	"github.com/willbeason/crosssell/pkg/ingest"
	"github.com/willbeason/crosssell/pkg/schema"
	"github.com/willbeason/crosssell/pkg/store"
	"github.com/willbeason/crosssell/pkg/transformation"
)

func init() {
	cmd.Flags().String(cli.FlagSchema, "", "schema file (env CROSSSELL_SCHEMA, default config/schema.yaml)")
	cli.AddStoreFlags(cmd.Flags())
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
	Use:     "features RAW OUT",
	Short:   "Prepares a raw table with a stored preprocessing pipeline and writes it as .csv or .parquet",
	Args:    cobra.ExactArgs(2),
	Version: "0.1.0",
	RunE:    runE,
}

func runE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rawPath := args[0]
	outPath := args[1]

	cfg, err := cli.Config(cmd)
	if err != nil {
		return err
	}
	logger := cli.Logger(cmd)

	s, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return err
	}

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

	pipeline, err := artifact.LoadPipeline(ctx, st, cfg.ArtifactPrefix)
	if err != nil {
		return err
	}

	raw, err := ingest.NewReader(logger).ReadTable(ctx, rawPath)
	if err != nil {
		return err
	}

	features, err := transformation.Features(s, pipeline, raw)
	if err != nil {
		return err
	}

	err = ingest.WriteTable(outPath, features)
	if err != nil {
		return err
	}

	logger.Info("wrote features", "path", outPath, "rows", features.Rows(), "columns", features.Width())
	return nil
}
