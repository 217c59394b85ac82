package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stevemurr/simple-doc-store/adapter"
	"github.com/stevemurr/simple-doc-store/config"
	"github.com/stevemurr/simple-doc-store/query"
	"github.com/stevemurr/simple-doc-store/store"
	"github.com/stevemurr/simple-doc-store/update"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	cfg        config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{cfg: config.Default()}

	cmd := &cobra.Command{
		Use:           "docstore",
		Short:         "Inspect and edit a simple-doc-store data directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a JSONC config file")
	flags.StringVar(&opts.cfg.Backend, "backend", opts.cfg.Backend, "storage backend (file, sqlite, kv, memory)")
	flags.StringVar(&opts.cfg.DataDir, "data-dir", opts.cfg.DataDir, "data directory")
	flags.StringVar(&opts.cfg.Codec, "codec", opts.cfg.Codec, "file codec (json, bson, yaml)")
	flags.BoolVar(&opts.cfg.Compress, "compress", false, "zstd-compress collection files")
	flags.StringVar(&opts.cfg.Prefix, "prefix", "", "key prefix for the sqlite and kv backends")
	flags.BoolVar(&opts.cfg.Queued, "queued", false, "run operations through the sequential executor")
	flags.BoolVar(&opts.cfg.PreserveUnmatched, "preserve-unmatched", false, "keep documents not matched by update")
	flags.BoolVarP(&opts.cfg.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(newCollectionsCommand(opts))
	cmd.AddCommand(newFindCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newUpdateCommand(opts))
	cmd.AddCommand(newRemoveCommand(opts))
	cmd.AddCommand(newDropCommand(opts))

	return cmd
}

// resolve merges the config file and environment with explicitly set flags.
func (o *rootOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = o.cfg.Backend
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.cfg.DataDir
	}
	if flags.Changed("codec") {
		cfg.Codec = o.cfg.Codec
	}
	if flags.Changed("compress") {
		cfg.Compress = o.cfg.Compress
	}
	if flags.Changed("prefix") {
		cfg.Prefix = o.cfg.Prefix
	}
	if flags.Changed("queued") {
		cfg.Queued = o.cfg.Queued
	}
	if flags.Changed("preserve-unmatched") {
		cfg.PreserveUnmatched = o.cfg.PreserveUnmatched
	}
	if flags.Changed("verbose") {
		cfg.Verbose = o.cfg.Verbose
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		z := zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stderr"}
		return z.Build()
	}
	z := zap.NewProductionConfig()
	z.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return z.Build()
}

// withStore opens the configured store, runs fn and releases everything.
func (o *rootOptions) withStore(cmd *cobra.Command, fn func(s *store.Store) error) error {
	cfg, err := o.resolve(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	a, err := adapter.New(cfg.AdapterConfig(logger))
	if err != nil {
		return fmt.Errorf("failed to create adapter (backend=%s): %w", cfg.Backend, err)
	}
	if c, ok := a.(io.Closer); ok {
		defer c.Close()
	}

	s := store.New(a, cfg.StoreOptions(logger)...)
	defer s.Close()

	logger.Sugar().Debugw("store ready", "backend", cfg.Backend, "data", cfg.DataDir, "mode", s.Mode().String())
	return fn(s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseExpr(arg string) (query.Expr, error) {
	if arg == "" {
		return query.Expr{}, nil
	}
	var e query.Expr
	if err := json.Unmarshal([]byte(arg), &e); err != nil {
		return nil, fmt.Errorf("invalid JSON object %q: %w", arg, err)
	}
	return e, nil
}

// parseUpdater accepts one JSON object or an array of objects.
func parseUpdater(arg string) (update.Updater, error) {
	var list []query.Expr
	if err := json.Unmarshal([]byte(arg), &list); err == nil {
		return update.With(list...), nil
	}
	e, err := parseExpr(arg)
	if err != nil {
		return update.Updater{}, err
	}
	return update.With(e), nil
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}
