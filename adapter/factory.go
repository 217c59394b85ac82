package adapter

import (
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string
	DataDir  string
	Codec    string // file backend only
	Compress bool   // file backend only
	Prefix   string // sqlite and kv backends
	Logger   *zap.Logger
}

// New creates an Adapter based on cfg.Backend.
//
// Supported backends:
//
//	"file"   - one file per collection in DataDir (default; alias "json")
//	"sqlite" - SQLite database at DataDir/docstore.db, keys under Prefix
//	"kv"     - in-memory key-value store, keys under Prefix
//	"memory" - in-memory collections (ephemeral, for testing)
func New(cfg Config) (Adapter, error) {
	switch cfg.Backend {
	case "file", "json", "":
		codec, err := CodecByName(cfg.Codec)
		if err != nil {
			return nil, err
		}
		opts := []FileOption{WithCodec(codec), WithFileLogger(cfg.Logger)}
		if cfg.Compress {
			opts = append(opts, WithCompression())
		}
		return NewFileAdapter(cfg.DataDir, opts...)
	case "sqlite":
		kv, err := NewSqliteKV(filepath.Join(cfg.DataDir, "docstore.db"))
		if err != nil {
			return nil, err
		}
		return NewKVAdapter(kv, cfg.Prefix), nil
	case "kv":
		return NewKVAdapter(NewMemoryKV(), cfg.Prefix), nil
	case "memory":
		return NewMemoryAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown adapter backend: %q (supported: file, sqlite, kv, memory)", cfg.Backend)
	}
}
