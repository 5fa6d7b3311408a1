package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/willbeason/crosssell/pkg/cli"
	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/evaluate"
	"github.com/willbeason/crosssell/pkg/registry"
	"github.com/willbeason/crosssell/pkg/store"
)

const (
	FlagF1        = "f1"
	FlagPrecision = "precision"
	FlagRecall    = "recall"
)

func init() {
	cmd.Flags().Float64(FlagF1, 0, "F1 score of the trained model on the test split")
	cmd.Flags().Float64(FlagPrecision, 0, "precision of the trained model")
	cmd.Flags().Float64(FlagRecall, 0, "recall of the trained model")
	_ = cmd.MarkFlagRequired(FlagF1)

	cmd.Flags().String(cli.FlagStore, "", "artifact store, file://DIR or sqlite://PATH (env CROSSSELL_STORE)")
	cmd.Flags().String(cli.FlagModelKey, "", "key the accepted model versions and entry are stored beside (env CROSSSELL_MODEL_KEY)")
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
	Use:     "push-model MODEL_FILE",
	Short:   "Registers a trained model if it scores better than the registered one",
	Args:    cobra.ExactArgs(1),
	Version: "0.1.0",
	RunE:    runE,
}

func runE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	modelPath := args[0]

	cfg, err := cli.Config(cmd)
	if err != nil {
		return err
	}
	logger := cli.Logger(cmd)

	var metrics evaluate.Metrics
	metrics.F1, err = cmd.Flags().GetFloat64(FlagF1)
	if err != nil {
		return err
	}
	metrics.Precision, err = cmd.Flags().GetFloat64(FlagPrecision)
	if err != nil {
		return err
	}
	metrics.Recall, err = cmd.Flags().GetFloat64(FlagRecall)
	if err != nil {
		return err
	}
	if metrics.F1 < 0 || metrics.F1 > 1 {
		return fmt.Errorf("%w: --%s must be in [0, 1], got %v", errs.ErrConfig, FlagF1, metrics.F1)
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

	decision, err := registry.New(st, cfg.ModelKey, logger).PushFile(ctx, modelPath, metrics)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
