// Package config reads process configuration from the environment. Command
// line flags override these values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/willbeason/crosssell/pkg/artifact"
	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/ingest"
	"github.com/willbeason/crosssell/pkg/registry"
	"github.com/willbeason/crosssell/pkg/schema"
)

const (
	EnvSchema         = "CROSSSELL_SCHEMA"
	EnvStore          = "CROSSSELL_STORE"
	EnvArtifactPrefix = "CROSSSELL_ARTIFACT_PREFIX"
	EnvSeed           = "CROSSSELL_SEED"
	EnvBalanceTrain   = "CROSSSELL_BALANCE_TRAIN"
	EnvBalanceTest    = "CROSSSELL_BALANCE_TEST"
	EnvModelKey       = "CROSSSELL_MODEL_KEY"
	EnvTestRatio      = "CROSSSELL_TEST_RATIO"
)

// DefaultStore keeps artifacts in a local directory.
const DefaultStore = "file://artifacts"

// Config holds the settings shared by the commands.
type Config struct {
	SchemaPath     string
	Store          string
	ArtifactPrefix string

	// Seed drives every random choice. SeedSet is false when no seed was
	// configured, in which case callers pick one.
	Seed    int64
	SeedSet bool

	BalanceTrain bool
	BalanceTest  bool

	ModelKey  string
	TestRatio float64
}

// Load reads the configuration from environment variables. Unparseable
// values fall back to their defaults.
func Load() *Config {
	seed, seedSet := getEnvAsInt64(EnvSeed)
	return &Config{
		SchemaPath:     getEnv(EnvSchema, schema.DefaultPath),
		Store:          getEnv(EnvStore, DefaultStore),
		ArtifactPrefix: getEnv(EnvArtifactPrefix, artifact.DefaultPrefix),
		Seed:           seed,
		SeedSet:        seedSet,
		BalanceTrain:   getEnvAsBool(EnvBalanceTrain, true),
		BalanceTest:    getEnvAsBool(EnvBalanceTest, true),
		ModelKey:       getEnv(EnvModelKey, registry.DefaultModelKey),
		TestRatio:      getEnvAsFloat(EnvTestRatio, ingest.DefaultTestRatio),
	}
}

// Validate reports missing or out of range settings as configuration errors.
func (c *Config) Validate() error {
	if c.SchemaPath == "" {
		return fmt.Errorf("%w: %s is required", errs.ErrConfig, EnvSchema)
	}
	if c.Store == "" {
		return fmt.Errorf("%w: %s is required", errs.ErrConfig, EnvStore)
	}
	if c.ArtifactPrefix == "" {
		return fmt.Errorf("%w: %s is required", errs.ErrConfig, EnvArtifactPrefix)
	}
	if c.ModelKey == "" {
		return fmt.Errorf("%w: %s is required", errs.ErrConfig, EnvModelKey)
	}
	if !(c.TestRatio > 0 && c.TestRatio < 1) {
		return fmt.Errorf("%w: %s must be in (0, 1), got %v", errs.ErrConfig, EnvTestRatio, c.TestRatio)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string) (int64, bool) {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal, true
		}
	}
	return 0, false
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
