package store

import (
	"go.uber.org/zap"

	"github.com/stevemurr/simple-doc-store/executor"
	"github.com/stevemurr/simple-doc-store/idgen"
)

// Mode selects how a Store reaches its adapter.
type Mode int

const (
	// Inline runs every operation on the calling goroutine.
	Inline Mode = iota
	// Queued runs every operation as one task of a sequential executor,
	// so operations issued concurrently on the same Store never
	// interleave their load and save.
	Queued
)

func (m Mode) String() string {
	switch m {
	case Inline:
		return "inline"
	case Queued:
		return "queued"
	default:
		return "unknown"
	}
}

// Option configures a Store.
type Option func(*Store)

// WithQueued selects Queued mode. The Store must be closed to stop its
// worker, and funcs passed to its operations must not use the Store.
func WithQueued() Option {
	return func(s *Store) { s.mode = Queued }
}

// WithMode selects the execution mode.
func WithMode(m Mode) Option {
	return func(s *Store) { s.mode = m }
}

// WithLogger sets the logger for the store and its executor.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.zl = l
		}
	}
}

// WithIDGenerator replaces idgen.Generate for Add and UpdateOneOrAdd.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Store) {
		if g != nil {
			s.genID = g
		}
	}
}

// WithPreserveUnmatched makes Update and UpdateOne persist documents that
// do not match the query. By default those documents are dropped from the
// collection.
func WithPreserveUnmatched() Option {
	return func(s *Store) { s.preserveUnmatched = true }
}

// WithExecutorOptions passes options to the executor used in Queued mode.
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Store) { s.execOpts = append(s.execOpts, opts...) }
}
