// Package registry keeps the currently accepted model and the metrics it was
// accepted with.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/evaluate"
	"github.com/willbeason/crosssell/pkg/store"
)

// DefaultModelKey is where the accepted model is stored.
const DefaultModelKey = "models/model.bin"

// Entry describes the registered model.
type Entry struct {
	Version  uuid.UUID         `json:"version"`
	ModelKey string            `json:"model_key"`
	Pushed   time.Time         `json:"pushed"`
	Digest   string            `json:"blake3"`
	Size     int               `json:"size"`
	Metrics  evaluate.Metrics  `json:"metrics"`
	Decision evaluate.Decision `json:"decision"`
}

// Registry tracks one accepted model. Each accepted model is stored under its
// own version next to Key, and the Entry at Key+".json" names the current one.
type Registry struct {
	Store  store.Store
	Key    string
	Logger *slog.Logger
}

// New returns a Registry for key. A nil logger uses slog.Default().
func New(st store.Store, key string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultModelKey
	}
	return &Registry{Store: st, Key: key, Logger: logger}
}

func (r *Registry) entryKey() string {
	return path.Join(path.Dir(r.Key), path.Base(r.Key)+".json")
}

// modelKey is where version of the model is stored, e.g.
// "models/<version>/model.bin" for Key "models/model.bin".
func (r *Registry) modelKey(version uuid.UUID) string {
	return path.Join(path.Dir(r.Key), version.String(), path.Base(r.Key))
}

// Present reports whether a model has been registered.
func (r *Registry) Present(ctx context.Context) (bool, error) {
	return r.Store.Exists(ctx, r.entryKey())
}

// Entry returns the registered model's entry, or nil if none is registered.
func (r *Registry) Entry(ctx context.Context) (*Entry, error) {
	data, err := r.Store.Load(ctx, r.entryKey())
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var e Entry
	err = json.Unmarshal(data, &e)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding registry entry: %w", errs.ErrPersistence, err)
	}
	return &e, nil
}

// BestF1 returns the F1 score of the registered model, or nil if none is
// registered.
func (r *Registry) BestF1(ctx context.Context) (*float64, error) {
	e, err := r.Entry(ctx)
	if err != nil || e == nil {
		return nil, err
	}
	f1 := e.Metrics.F1
	return &f1, nil
}

// Evaluate compares trained against the registered model.
func (r *Registry) Evaluate(ctx context.Context, trained evaluate.Metrics) (evaluate.Decision, error) {
	best, err := r.BestF1(ctx)
	if err != nil {
		return evaluate.Decision{}, err
	}
	return evaluate.Decide(trained.F1, best), nil
}

// Push registers model if it beats the current one and reports the decision.
// A rejected model is not stored.
func (r *Registry) Push(ctx context.Context, model []byte, trained evaluate.Metrics) (evaluate.Decision, error) {
	decision, err := r.Evaluate(ctx, trained)
	if err != nil {
		return evaluate.Decision{}, err
	}
	if !decision.Accepted {
		r.logger().Info("model rejected", "f1", trained.F1, "difference", decision.Difference)
		return decision, nil
	}

	digest := blake3.Sum256(model)
	version := uuid.New()
	entry := Entry{
		Version:  version,
		ModelKey: r.modelKey(version),
		Pushed:   time.Now().UTC(),
		Digest:   fmt.Sprintf("%x", digest),
		Size:     len(model),
		Metrics:  trained,
		Decision: decision,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return evaluate.Decision{}, fmt.Errorf("%w: encoding registry entry: %w", errs.ErrPersistence, err)
	}

	// The entry is written last, so until it is the previous model stays current.
	err = r.Store.Save(ctx, entry.ModelKey, model)
	if err != nil {
		return evaluate.Decision{}, err
	}
	err = r.Store.Save(ctx, r.entryKey(), data)
	if err != nil {
		return evaluate.Decision{}, err
	}

	r.logger().Info("model pushed", "version", entry.Version.String(), "f1", trained.F1, "difference", decision.Difference)
	return decision, nil
}

// PushFile is Push for a model stored in a local file.
func (r *Registry) PushFile(ctx context.Context, modelPath string, trained evaluate.Metrics) (evaluate.Decision, error) {
	model, err := os.ReadFile(modelPath)
	if err != nil {
		return evaluate.Decision{}, fmt.Errorf("%w: reading model %q: %w", errs.ErrData, modelPath, err)
	}
	return r.Push(ctx, model, trained)
}

// Load returns the registered model and checks it against its entry.
func (r *Registry) Load(ctx context.Context) ([]byte, *Entry, error) {
	e, err := r.Entry(ctx)
	if err != nil {
		return nil, nil, err
	}
	if e == nil {
		return nil, nil, fmt.Errorf("%w: %w: no model registered under %q", errs.ErrPersistence, store.ErrNotFound, r.Key)
	}

	model, err := r.Store.Load(ctx, e.ModelKey)
	if err != nil {
		return nil, nil, err
	}
	if digest := blake3.Sum256(model); fmt.Sprintf("%x", digest) != e.Digest {
		return nil, nil, fmt.Errorf("%w: model under %q does not match registered version %s", errs.ErrPersistence, e.ModelKey, e.Version)
	}
	return model, e, nil
}

func (r *Registry) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
