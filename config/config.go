// Package config loads docstore settings from a JSONC file and the
// environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/tailscale/hujson"
	"go.uber.org/zap"

	"github.com/stevemurr/simple-doc-store/adapter"
	"github.com/stevemurr/simple-doc-store/store"
)

var errConfigInvalid = errors.New("invalid config")

// Config holds every setting of the docstore command.
type Config struct {
	Backend           string `json:"backend"`
	DataDir           string `json:"data_dir"`
	Codec             string `json:"codec"`
	Compress          bool   `json:"compress"`
	Prefix            string `json:"prefix"`
	Queued            bool   `json:"queued"`
	PreserveUnmatched bool   `json:"preserve_unmatched"`
	Verbose           bool   `json:"verbose"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Backend: "file",
		DataDir: "./data",
		Codec:   "json",
	}
}

// Load starts from Default, applies the file at path (if path is not
// empty) and then the DOCSTORE_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = parse(cfg, data); err != nil {
			return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
		}
	}
	return applyEnv(cfg, os.Getenv)
}

func parse(base Config, data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	if err := json.Unmarshal(standardized, &base); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return base, nil
}

func applyEnv(cfg Config, getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}
	envBool := func(key string, fallback bool) (bool, error) {
		v := getenv(key)
		if v == "" {
			return fallback, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%w: %s=%q: %w", errConfigInvalid, key, v, err)
		}
		return b, nil
	}

	cfg.Backend = env("DOCSTORE_BACKEND", cfg.Backend)
	cfg.DataDir = env("DOCSTORE_DATA_DIR", cfg.DataDir)
	cfg.Codec = env("DOCSTORE_CODEC", cfg.Codec)
	cfg.Prefix = env("DOCSTORE_PREFIX", cfg.Prefix)

	var err error
	if cfg.Compress, err = envBool("DOCSTORE_COMPRESS", cfg.Compress); err != nil {
		return Config{}, err
	}
	if cfg.Queued, err = envBool("DOCSTORE_QUEUED", cfg.Queued); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AdapterConfig returns the adapter settings of c.
func (c Config) AdapterConfig(logger *zap.Logger) adapter.Config {
	return adapter.Config{
		Backend:  c.Backend,
		DataDir:  c.DataDir,
		Codec:    c.Codec,
		Compress: c.Compress,
		Prefix:   c.Prefix,
		Logger:   logger,
	}
}

// StoreOptions returns the store options selected by c.
func (c Config) StoreOptions(logger *zap.Logger) []store.Option {
	opts := []store.Option{store.WithLogger(logger)}
	if c.Queued {
		opts = append(opts, store.WithQueued())
	}
	if c.PreserveUnmatched {
		opts = append(opts, store.WithPreserveUnmatched())
	}
	return opts
}
