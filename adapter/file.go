package adapter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

const compressedExt = ".zst"

// FileAdapter stores each collection as a separate file in one directory.
// Every save rewrites the whole file atomically.
//
// Layout (JSON codec, no compression):
//
//	data_dir/
//	  notes.json      # "notes" collection
//	  tasks.json      # "tasks" collection
type FileAdapter struct {
	mu     sync.RWMutex
	dir    string
	codec  Codec
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger *zap.SugaredLogger
}

// FileOption configures a FileAdapter.
type FileOption func(*FileAdapter) error

// WithCodec selects the serialization format. The default is JSON.
func WithCodec(c Codec) FileOption {
	return func(a *FileAdapter) error {
		if c == nil {
			return fmt.Errorf("nil codec")
		}
		a.codec = c
		return nil
	}
}

// WithCompression compresses collection files with zstd.
func WithCompression() FileOption {
	return func(a *FileAdapter) error {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			enc.Close()
			return fmt.Errorf("create zstd decoder: %w", err)
		}
		a.enc, a.dec = enc, dec
		return nil
	}
}

// WithFileLogger sets the logger.
func WithFileLogger(l *zap.Logger) FileOption {
	return func(a *FileAdapter) error {
		if l != nil {
			a.logger = l.Sugar()
		}
		return nil
	}
}

func NewFileAdapter(dir string, opts ...FileOption) (*FileAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	a := &FileAdapter{
		dir:    dir,
		codec:  JSON,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Close releases the compression state, if any.
func (a *FileAdapter) Close() error {
	if a.enc != nil {
		a.dec.Close()
		return a.enc.Close()
	}
	return nil
}

func (a *FileAdapter) ext() string {
	if a.enc != nil {
		return a.codec.Ext() + compressedExt
	}
	return a.codec.Ext()
}

func (a *FileAdapter) collectionPath(collection string) (string, error) {
	if err := ValidateName(collection); err != nil {
		return "", fmt.Errorf("%q: %w", collection, err)
	}
	return filepath.Join(a.dir, collection+a.ext()), nil
}

func (a *FileAdapter) ListCollections() ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	ext := a.ext()
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ext))
	}
	slices.Sort(names)
	return names, nil
}

func (a *FileAdapter) Load(collection string) ([]map[string]any, error) {
	path, err := a.collectionPath(collection)
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []map[string]any{}, nil
		}
		return nil, err
	}
	if a.dec != nil {
		if data, err = a.dec.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
	}
	docs, err := a.codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	a.logger.Debugw("loaded collection", "collection", collection, "docs", len(docs))
	return docs, nil
}

func (a *FileAdapter) Save(collection string, docs []map[string]any) error {
	path, err := a.collectionPath(collection)
	if err != nil {
		return err
	}
	data, err := a.codec.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	if a.enc != nil {
		data = a.enc.EncodeAll(data, nil)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	a.logger.Debugw("saved collection", "collection", collection, "docs", len(docs), "bytes", len(data))
	return nil
}

func (a *FileAdapter) Delete(collection string) error {
	path, err := a.collectionPath(collection)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
