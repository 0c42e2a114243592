// Package kvstore provides a namespaced key-value store that falls back to
// process memory when the persistent backend is unavailable.
package kvstore

import (
	"log/slog"
	"strings"
	"sync"
)

const (
	DefaultNamespace = "notion-widget"
	probeKey         = "__notion_widget_test__"

	KeyLastConfig      = "last-config"
	KeyDebugTouchTimer = "debug-touch-timer"
)

// Backend is a persistent key-value store. Keys passed in are already namespaced.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// Store is safe for concurrent use. Once the backend fails the store keeps
// serving from memory for the rest of its lifetime; values already written
// to the backend are not copied over.
type Store struct {
	mu        sync.Mutex
	namespace string
	backend   Backend
	memory    map[string]string
	logger    *slog.Logger
}

type Option func(*Store)

func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New probes backend with a sentinel write and delete. A nil backend or a
// failed probe yields a memory-only store.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		namespace: DefaultNamespace,
		memory:    make(map[string]string),
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if backend == nil {
		return s
	}
	if err := backend.Set(probeKey, "ok"); err != nil {
		s.logger.Warn("persistent store unavailable, falling back to memory store", slog.String("error", err.Error()))
		return s
	}
	if err := backend.Delete(probeKey); err != nil {
		s.logger.Warn("persistent store unavailable, falling back to memory store", slog.String("error", err.Error()))
		return s
	}
	s.backend = backend
	return s
}

// NewMemory returns a store that never touches persistent storage.
func NewMemory(opts ...Option) *Store {
	return New(nil, opts...)
}

// Degraded reports whether the store is serving from memory only.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend == nil
}

func (s *Store) key(k string) string {
	return s.namespace + ":" + k
}

// degrade must be called with s.mu held.
func (s *Store) degrade(op string, err error) {
	s.logger.Warn("persistent store "+op+" failed, switching to memory store", slog.String("error", err.Error()))
	s.backend = nil
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)
	if s.backend != nil {
		v, ok, err := s.backend.Get(k)
		if err == nil {
			return v, ok
		}
		s.degrade("get", err)
	}
	v, ok := s.memory[k]
	return v, ok
}

func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)
	if s.backend != nil {
		err := s.backend.Set(k, value)
		if err == nil {
			return
		}
		s.degrade("set", err)
	}
	s.memory[k] = value
}

func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)
	if s.backend != nil {
		if err := s.backend.Delete(k); err != nil {
			s.degrade("remove", err)
		}
	}
	delete(s.memory, k)
}

// Clear removes every key of this store's namespace and nothing else.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := s.namespace + ":"
	if s.backend != nil {
		if err := s.clearBackend(prefix); err != nil {
			s.degrade("clear", err)
		}
	}
	for k := range s.memory {
		if strings.HasPrefix(k, prefix) {
			delete(s.memory, k)
		}
	}
}

func (s *Store) clearBackend(prefix string) error {
	keys, err := s.backend.Keys(prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.backend.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
