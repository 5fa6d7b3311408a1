package config

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/willbeason/crosssell/pkg/artifact"
	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/ingest"
	"github.com/willbeason/crosssell/pkg/registry"
	"github.com/willbeason/crosssell/pkg/schema"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvSchema, EnvStore, EnvArtifactPrefix, EnvSeed,
		EnvBalanceTrain, EnvBalanceTest, EnvModelKey, EnvTestRatio,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	want := &Config{
		SchemaPath:     schema.DefaultPath,
		Store:          DefaultStore,
		ArtifactPrefix: artifact.DefaultPrefix,
		BalanceTrain:   true,
		BalanceTest:    true,
		ModelKey:       registry.DefaultModelKey,
		TestRatio:      ingest.DefaultTestRatio,
	}
	got := Load()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSchema, "/etc/crosssell/schema.yaml")
	t.Setenv(EnvStore, "sqlite:///var/lib/crosssell.db")
	t.Setenv(EnvSeed, "42")
	t.Setenv(EnvBalanceTest, "false")
	t.Setenv(EnvTestRatio, "0.2")
	// Unparseable, so the default is kept.
	t.Setenv(EnvBalanceTrain, "sometimes")

	got := Load()

	want := &Config{
		SchemaPath:     "/etc/crosssell/schema.yaml",
		Store:          "sqlite:///var/lib/crosssell.db",
		ArtifactPrefix: artifact.DefaultPrefix,
		Seed:           42,
		SeedSet:        true,
		BalanceTrain:   true,
		BalanceTest:    false,
		ModelKey:       registry.DefaultModelKey,
		TestRatio:      0.2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "no schema", modify: func(c *Config) { c.SchemaPath = "" }},
		{name: "no store", modify: func(c *Config) { c.Store = "" }},
		{name: "no prefix", modify: func(c *Config) { c.ArtifactPrefix = "" }},
		{name: "no model key", modify: func(c *Config) { c.ModelKey = "" }},
		{name: "ratio too large", modify: func(c *Config) { c.TestRatio = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			c := Load()
			tt.modify(c)
			if err := c.Validate(); !errors.Is(err, errs.ErrConfig) {
				t.Errorf("Validate() error = %v, want %v", err, errs.ErrConfig)
			}
		})
	}
}
