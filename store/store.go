// Package store is an embeddable document store over a pluggable adapter.
//
// Every operation loads the whole collection from the adapter, computes
// the new state from that snapshot and the call's arguments, and saves the
// result back when the operation writes. Nothing is cached between calls.
package store

import (
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/stevemurr/simple-doc-store/adapter"
	"github.com/stevemurr/simple-doc-store/executor"
	"github.com/stevemurr/simple-doc-store/idgen"
	"github.com/stevemurr/simple-doc-store/query"
	"github.com/stevemurr/simple-doc-store/update"
)

// IDField is the field holding a document's identity.
const IDField = "_id"

type (
	Document = query.Document
	Context  = query.Context
)

// FindOptions controls read order and truncation of Find.
type FindOptions struct {
	// Reverse walks the collection from the last document to the first.
	Reverse bool
	// Max limits the number of results; zero or negative means no limit.
	Max int
}

// Store runs queries and updates against one adapter.
type Store struct {
	adapter           adapter.Adapter
	mode              Mode
	exec              *executor.Executor
	execOpts          []executor.Option
	genID             idgen.Generator
	preserveUnmatched bool
	zl                *zap.Logger
	logger            *zap.SugaredLogger
}

// New creates a Store. The mode is fixed for the lifetime of the Store.
//
// A Queued Store runs a worker goroutine until Close is called. Predicate
// and updater funcs run on that worker and must not call back into the
// same Store; such a call waits behind the running operation forever.
func New(a adapter.Adapter, opts ...Option) *Store {
	s := &Store{
		adapter: a,
		genID:   idgen.Generate,
		zl:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.zl.Sugar().With("mode", s.mode.String())
	if s.mode == Queued {
		execOpts := append([]executor.Option{executor.WithLogger(s.zl)}, s.execOpts...)
		s.exec = executor.New(execOpts...)
	}
	return s
}

// Mode returns the execution mode.
func (s *Store) Mode() Mode {
	return s.mode
}

// Close waits for queued operations to finish and stops the executor.
// It does not close the adapter. In Inline mode it does nothing.
func (s *Store) Close() {
	if s.exec != nil {
		s.exec.Close()
	}
}

// run is the only place where the execution mode matters.
func run[T any](s *Store, fn func() (T, error)) (T, error) {
	if s.mode == Queued {
		return executor.Do(s.exec, fn)
	}
	return fn()
}

// load runs then on the current snapshot of collection. then gets its
// own slice; documents are shared with the adapter and must be cloned
// before they are changed.
func load[T any](s *Store, collection string, then func(docs []Document) (T, error)) (T, error) {
	return run(s, func() (T, error) {
		docs, err := s.adapter.Load(collection)
		if err != nil {
			var zero T
			return zero, err
		}
		return then(slices.Clone(docs))
	})
}

// save persists docs as the new snapshot of collection. It must only be
// called from inside load.
func (s *Store) save(collection string, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	return s.adapter.Save(collection, docs)
}

// GetCollections returns the names of all collections.
func (s *Store) GetCollections() ([]string, error) {
	return run(s, s.adapter.ListCollections)
}

// IssetCollection reports whether collection exists in the adapter.
func (s *Store) IssetCollection(collection string) (bool, error) {
	return run(s, func() (bool, error) {
		names, err := s.adapter.ListCollections()
		if err != nil {
			return false, err
		}
		return slices.Contains(names, collection), nil
	})
}

// Add appends doc to collection and returns the stored document. With
// generateID set, a document without an _id gets a new one.
func (s *Store) Add(collection string, doc Document, generateID bool) (Document, error) {
	doc = s.prepare(doc, generateID)
	return load(s, collection, func(docs []Document) (Document, error) {
		if err := s.save(collection, append(docs, doc)); err != nil {
			return nil, err
		}
		s.logger.Debugw("add", "collection", collection, "id", doc[IDField])
		return doc, nil
	})
}

// prepare copies doc and assigns an identity if requested and missing.
func (s *Store) prepare(doc Document, generateID bool) Document {
	out := maps.Clone(doc)
	if out == nil {
		out = Document{}
	}
	if generateID {
		if id, ok := out[IDField]; !ok || id == nil || id == "" {
			out[IDField] = s.genID()
		}
	}
	return out
}

// Find returns the projected documents of collection matching q. The
// snapshot is reversed first when opts.Reverse is set, then filtered,
// projected, and finally truncated to opts.Max.
func (s *Store) Find(collection string, q query.Query, ctx Context, opts FindOptions, proj query.Projection) ([]Document, error) {
	return load(s, collection, func(docs []Document) ([]Document, error) {
		if opts.Reverse {
			slices.Reverse(docs)
		}
		out := []Document{}
		for _, d := range docs {
			ok, err := q.Match(d, ctx)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, query.Project(d, proj))
			}
		}
		if opts.Max > 0 && len(out) > opts.Max {
			out = out[:opts.Max]
		}
		s.logger.Debugw("find", "collection", collection, "scanned", len(docs), "returned", len(out))
		return out, nil
	})
}

// FindOne returns the first matching document of collection, projected,
// or nil if nothing matches.
func (s *Store) FindOne(collection string, q query.Query, ctx Context, proj query.Projection) (Document, error) {
	return load(s, collection, func(docs []Document) (Document, error) {
		i, err := firstMatch(docs, q, ctx)
		if err != nil || i < 0 {
			return nil, err
		}
		return query.Project(docs[i], proj), nil
	})
}

func firstMatch(docs []Document, q query.Query, ctx Context) (int, error) {
	for i, d := range docs {
		ok, err := q.Match(d, ctx)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

// Update applies u to every document matching q.
//
// Unless the Store was created WithPreserveUnmatched, the collection is
// saved with the matching documents only: documents that do not match q
// are dropped.
func (s *Store) Update(collection string, q query.Query, u update.Updater, ctx Context) (bool, error) {
	return s.update(false, collection, q, u, ctx)
}

// UpdateOne applies u to the first document matching q. Later matches are
// saved unchanged; non-matching documents are treated as in Update.
func (s *Store) UpdateOne(collection string, q query.Query, u update.Updater, ctx Context) (bool, error) {
	return s.update(true, collection, q, u, ctx)
}

func (s *Store) update(one bool, collection string, q query.Query, u update.Updater, ctx Context) (bool, error) {
	return load(s, collection, func(docs []Document) (bool, error) {
		kept := make([]Document, 0, len(docs))
		updated := 0
		for _, d := range docs {
			ok, err := q.Match(d, ctx)
			if err != nil {
				return false, err
			}
			if !ok {
				if s.preserveUnmatched {
					kept = append(kept, d)
				}
				continue
			}
			if !one || updated == 0 {
				d = maps.Clone(d)
				if err := u.Apply(d, ctx); err != nil {
					return false, err
				}
				updated++
			}
			kept = append(kept, d)
		}
		if err := s.save(collection, kept); err != nil {
			return false, err
		}
		s.logger.Debugw("update", "collection", collection, "one", one, "updated", updated, "kept", len(kept))
		return true, nil
	})
}

// Remove deletes every document matching q.
func (s *Store) Remove(collection string, q query.Query, ctx Context) (bool, error) {
	return s.remove(false, collection, q, ctx)
}

// RemoveOne deletes the first document matching q.
func (s *Store) RemoveOne(collection string, q query.Query, ctx Context) (bool, error) {
	return s.remove(true, collection, q, ctx)
}

func (s *Store) remove(one bool, collection string, q query.Query, ctx Context) (bool, error) {
	return load(s, collection, func(docs []Document) (bool, error) {
		kept := make([]Document, 0, len(docs))
		removed := 0
		for _, d := range docs {
			if one && removed > 0 {
				kept = append(kept, d)
				continue
			}
			ok, err := q.Match(d, ctx)
			if err != nil {
				return false, err
			}
			if ok {
				removed++
				continue
			}
			kept = append(kept, d)
		}
		if err := s.save(collection, kept); err != nil {
			return false, err
		}
		s.logger.Debugw("remove", "collection", collection, "one", one, "removed", removed)
		return true, nil
	})
}

// UpdateOneOrAdd applies u to the first document matching q. When nothing
// matches, it adds a document built from the plain fields of q, then u,
// then extra (later sources win; operator maps such as {"$set": {...}}
// contribute their fields). Function queries and updaters contribute no
// fields.
func (s *Store) UpdateOneOrAdd(collection string, q query.Query, u update.Updater, extra Document, ctx Context, generateID bool) (bool, error) {
	return load(s, collection, func(docs []Document) (bool, error) {
		i, err := firstMatch(docs, q, ctx)
		if err != nil {
			return false, err
		}
		if i >= 0 {
			docs[i] = maps.Clone(docs[i])
			if err := u.Apply(docs[i], ctx); err != nil {
				return false, err
			}
			if err := s.save(collection, docs); err != nil {
				return false, err
			}
			s.logger.Debugw("upsert updated", "collection", collection, "index", i)
			return true, nil
		}

		sources := append([]map[string]any{q.Expr()}, u.Exprs()...)
		sources = append(sources, extra)
		doc := s.prepare(update.MergeFields(sources...), generateID)
		if err := s.save(collection, append(docs, doc)); err != nil {
			return false, err
		}
		s.logger.Debugw("upsert added", "collection", collection, "id", doc[IDField])
		return true, nil
	})
}

// RemoveCollection deletes collection from the adapter.
func (s *Store) RemoveCollection(collection string) error {
	_, err := run(s, func() (struct{}, error) {
		return struct{}{}, s.adapter.Delete(collection)
	})
	if err == nil {
		s.logger.Debugw("remove collection", "collection", collection)
	}
	return err
}
