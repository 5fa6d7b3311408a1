// Package cli holds the flag handling shared by the commands under cmd/.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"golang.org/x/term"

	"github.com/willbeason/crosssell/pkg/config"
	"github.com/willbeason/crosssell/pkg/errs"
)

const (
	FlagSchema       = "schema"
	FlagStore        = "store"
	FlagPrefix       = "prefix"
	FlagSeed         = "seed"
	FlagBalanceTrain = "balance-train"
	FlagBalanceTest  = "balance-test"
	FlagModelKey     = "model-key"
	FlagTestRatio    = "test-ratio"
	FlagVerbose      = "verbose"
)

// AddStoreFlags registers the flags selecting where artifacts live.
func AddStoreFlags(flags *pflag.FlagSet) {
	flags.String(FlagStore, "", "artifact store, file://DIR or sqlite://PATH (env "+config.EnvStore+")")
	flags.String(FlagPrefix, "", "artifact key prefix (env "+config.EnvArtifactPrefix+")")
}

// AddSeedFlag registers the random seed flag.
func AddSeedFlag(flags *pflag.FlagSet) {
	flags.Int64(FlagSeed, 0, "random seed (env "+config.EnvSeed+", default: current time)")
}

// AddVerboseFlag registers the flag enabling debug logging.
func AddVerboseFlag(flags *pflag.FlagSet) {
	flags.BoolP(FlagVerbose, "v", false, "log at debug level")
}

// Config loads the environment configuration and overrides it with every
// flag set on the command line.
func Config(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()

	var err error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		flags := cmd.Flags()
		switch f.Name {
		case FlagSchema:
			cfg.SchemaPath, err = flags.GetString(f.Name)
		case FlagStore:
			cfg.Store, err = flags.GetString(f.Name)
		case FlagPrefix:
			cfg.ArtifactPrefix, err = flags.GetString(f.Name)
		case FlagSeed:
			cfg.Seed, err = flags.GetInt64(f.Name)
			cfg.SeedSet = true
		case FlagBalanceTrain:
			cfg.BalanceTrain, err = flags.GetBool(f.Name)
		case FlagBalanceTest:
			cfg.BalanceTest, err = flags.GetBool(f.Name)
		case FlagModelKey:
			cfg.ModelKey, err = flags.GetString(f.Name)
		case FlagTestRatio:
			cfg.TestRatio, err = flags.GetFloat64(f.Name)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reading flags: %w", errs.ErrConfig, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Seed returns the configured seed, or the current time if none was set.
func Seed(cfg *config.Config) int64 {
	if cfg.SeedSet {
		return cfg.Seed
	}
	return time.Now().UnixNano()
}

// Logger returns a text logger on stderr. --verbose lowers the level to debug.
func Logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, err := cmd.Flags().GetBool(FlagVerbose); err == nil && verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Bar is a progress bar that advances one step per call to Step.
type Bar struct {
	bar   *mpb.Bar
	start time.Time
}

// NewBar draws a bar of total steps on stdout. It returns nil when stdout is
// not a terminal. A nil *Bar ignores Step.
func NewBar(name string, total int) *Bar {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return nil
	}

	p := mpb.New(mpb.WithWidth(width))
	bar := p.AddBar(int64(total),
		mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
		mpb.PrependDecorators(decor.Name(name)),
		mpb.PrependDecorators(decor.CountersNoUnit("%d/%d", decor.WCSyncSpace)),
		mpb.BarRemoveOnComplete())
	return &Bar{bar: bar, start: time.Now()}
}

func (b *Bar) Step() {
	if b == nil {
		return
	}
	b.bar.IncrBy(1, time.Since(b.start))
}
