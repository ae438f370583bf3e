package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/san-kum/chaosfind/internal/dynamo"
)

const (
	EnvSeed        = "CHAOSFIND_SEED"
	EnvWorkers     = "CHAOSFIND_WORKERS"
	EnvOutput      = "CHAOSFIND_OUTPUT"
	EnvMaxAttempts = "CHAOSFIND_MAX_ATTEMPTS"
)

// LoadEnvFile sources KEY=VALUE pairs from path into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overrides fields from CHAOSFIND_* variables and revalidates.
func (c *SearchConfig) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *SearchConfig) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSeed); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &dynamo.ConfigError{Field: EnvSeed, Reason: "must be an integer"}
		}
		c.Seed = seed
	}
	if v, ok := lookup(EnvWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &dynamo.ConfigError{Field: EnvWorkers, Reason: "must be an integer"}
		}
		c.Workers = n
	}
	if v, ok := lookup(EnvMaxAttempts); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &dynamo.ConfigError{Field: EnvMaxAttempts, Reason: "must be an integer"}
		}
		c.MaxAttempts = n
	}
	if v, ok := lookup(EnvOutput); ok && v != "" {
		c.OutputPath = v
	}
	return c.Validate()
}
