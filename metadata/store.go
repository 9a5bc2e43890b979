package metadata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/tablegate"
)

// Store caches artifacts per process. Concurrent requests for the same
// table share one load. When a tablegate.Cache is configured, artifacts are
// shared through it in msgpack form before falling back to the Loader.
type Store struct {
	loader    Loader
	cache     tablegate.Cache
	ttl       time.Duration
	namespace string
	logger    *slog.Logger

	mu     sync.RWMutex
	tables map[string]*Table
	group  singleflight.Group
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCache shares artifacts through cache. A zero ttl never expires.
func WithCache(cache tablegate.Cache, ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.cache = cache
		s.ttl = ttl
	}
}

// WithNamespace prefixes the keys used in the shared cache.
func WithNamespace(ns string) StoreOption {
	return func(s *Store) {
		s.namespace = ns
	}
}

// WithStoreLogger sets the store's logger. Default discards.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns a Store reading through loader.
func NewStore(loader Loader, opts ...StoreOption) *Store {
	s := &Store{
		loader: loader,
		logger: slog.New(slog.DiscardHandler),
		tables: make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the artifact of the named table.
func (s *Store) Table(ctx context.Context, name string) (*Table, error) {
	if t, ok := s.cached(name); ok {
		return t, nil
	}
	v, err, _ := s.group.Do(name, func() (any, error) {
		if t, ok := s.cached(name); ok {
			return t, nil
		}
		t, err := s.load(ctx, name)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.tables[name] = t
		s.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

func (s *Store) cached(name string) (*Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	return t, ok
}

func (s *Store) key(name string) string {
	return tablegate.CacheKey{Namespace: s.namespace, Table: name}.String()
}

func (s *Store) load(ctx context.Context, name string) (*Table, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, s.key(name))
		switch {
		case err != nil:
			s.logger.Warn("metadata cache get failed", "table", name, "error", err)
		case data != nil:
			t, err := Decode(data, Msgpack)
			if err == nil && t.Name == name {
				return t, nil
			}
			s.logger.Warn("metadata cache entry ignored", "table", name, "error", err)
		}
	}
	t, err := s.loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("metadata loaded", "table", name, "columns", len(t.Columns))
	if s.cache != nil {
		data, err := marshal(t)
		if err == nil {
			err = s.cache.Set(ctx, s.key(name), data, s.ttl)
		}
		if err != nil {
			s.logger.Warn("metadata cache set failed", "table", name, "error", err)
		}
	}
	return t, nil
}

// Invalidate drops the cached artifact of the named table, both locally and
// in the shared cache.
func (s *Store) Invalidate(ctx context.Context, name string) error {
	s.mu.Lock()
	delete(s.tables, name)
	s.mu.Unlock()
	s.group.Forget(name)
	if s.cache != nil {
		return s.cache.Delete(ctx, s.key(name))
	}
	return nil
}

// Reset drops every locally cached artifact.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.tables)
}
