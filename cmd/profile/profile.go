package main

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"github.com/willbeason/bondsmith"
	"github.com/willbeason/bondsmith/jsonio"
	"golang.org/x/term"

	"github.com/willbeason/crosssell/pkg/cli"
	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/ingest"
	"github.com/willbeason/crosssell/pkg/jsonl"
	"github.com/willbeason/crosssell/pkg/tables"
)

const IncEvery = 1 << 10

const FlagOut = "out"

func init() {
	cmd.Flags().String(FlagOut, "", "output file path (default: stdout)")
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
	Use:     "profile FILE|DIR",
	Short:   "Summarizes the keys and values of feature store .jsonl exports",
	Args:    cobra.ExactArgs(1),
	Version: "0.1.0",
	RunE:    runE,
}

func runE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	inPath := args[0]
	logger := cli.Logger(cmd)

	info, err := os.Stat(inPath)
	if err != nil {
		return fmt.Errorf("%w: stat %q: %w", errs.ErrData, inPath, err)
	}
	if !info.IsDir() && !strings.HasSuffix(inPath, tables.JSONLExt) && !strings.HasSuffix(inPath, tables.JSONLExt+tables.GzipExt) {
		return fmt.Errorf("%w: %q is neither a directory nor a %s file", errs.ErrConfig, inPath, tables.JSONLExt)
	}

	paths, _, err := ingest.Shards(inPath, info.IsDir())
	if err != nil {
		return fmt.Errorf("%w: listing %q: %w", errs.ErrData, inPath, err)
	}

	var p *mpb.Progress
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		p = mpb.New(mpb.WithWidth(width))
	}

	profile := jsonl.NewProfile(ingest.MongoIdField)
	for _, path := range paths {
		err = processJsonFile(ctx, p, path, profile)
		if err != nil {
			return err
		}
	}
	logger.Debug("profiled", "shards", len(paths), "documents", profile.Rows())

	outPath, err := cmd.Flags().GetString(FlagOut)
	if err != nil {
		return err
	}

	outFile := os.Stdout
	if outPath != "" {
		outFile, err = os.Create(outPath)
		if err != nil {
			return fmt.Errorf("%w: creating %q: %w", errs.ErrPersistence, outPath, err)
		}
		defer func() {
			err := outFile.Close()
			if err != nil {
				logger.Error("closing output", "error", err)
			}
		}()
	}

	_, err = fmt.Fprintf(outFile, "documents;%d\n", profile.Rows())
	if err != nil {
		return err
	}
	for _, line := range describe(profile) {
		_, err = fmt.Fprintln(outFile, line)
		if err != nil {
			return err
		}
	}

	return nil
}

func processJsonFile(ctx context.Context, p *mpb.Progress, inPath string, profile *jsonl.Profile) error {
	file, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("%w: opening %q: %w", errs.ErrData, inPath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%w: getting stat for %q: %w", errs.ErrData, inPath, err)
	}

	countReader := bondsmith.NewCountReader(file)
	var reader io.Reader = countReader
	if strings.HasSuffix(inPath, tables.GzipExt) {
		reader, err = gzip.NewReader(countReader)
		if err != nil {
			return fmt.Errorf("%w: starting gzip reader stream for %q: %w", errs.ErrData, inPath, err)
		}
	}

	entries := jsonio.NewReader(reader, func() *map[string]any {
		v := make(map[string]any)
		return &v
	})

	var bar *mpb.Bar
	if p != nil {
		bar = p.AddBar(stat.Size(),
			mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
			mpb.PrependDecorators(decor.Name(filepath.Base(inPath))),
			mpb.BarRemoveOnComplete(),
		)
	}

	i := 0
	lastSeen := 0
	start := time.Now()
	for entry, err := range entries.Read() {
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("%w: decoding %q: %w", errs.ErrData, inPath, err)
		}

		err = profile.Add(*entry)
		if err != nil {
			return fmt.Errorf("%w: processing %q: %w", errs.ErrData, inPath, err)
		}

		i++
		if i%IncEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if bar != nil {
				curProgress := int(countReader.Count())
				bar.IncrBy(curProgress-lastSeen, time.Since(start))
				lastSeen = curProgress
			}
		}
	}
	if bar != nil {
		bar.IncrBy(int(countReader.Count())-lastSeen, time.Since(start))
	}

	return nil
}

// describe appends the documented meaning of each known insurance column to
// its profile line.
func describe(profile *jsonl.Profile) []string {
	lines := profile.Lines()
	for i, key := range profile.Keys() {
		indices := tables.Insurance.FieldIndices(key)
		if len(indices) == 0 {
			continue
		}
		lines[i] += ";# " + tables.CommentOf(tables.Insurance.Field(indices[0]))
	}
	return lines
}
