package state

import (
	"log/slog"
	"path/filepath"
	"sync"
)

// Manager hands out one Store per project path. Stores are cached so
// repeated tool calls against the same project share a loaded state, while
// different projects never interfere.
type Manager struct {
	catalogs CatalogSource
	opts     StoreOptions
	logger   *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a store manager. The options are applied to every
// project store it creates.
func NewManager(catalogs CatalogSource, opts StoreOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		catalogs: catalogs,
		opts:     opts,
		logger:   logger,
		stores:   make(map[string]*Store),
	}
}

// Store returns the store for the project rooted at projectPath, creating it
// on first use. Paths are normalized so "." and an absolute spelling of the
// same directory share a store.
func (m *Manager) Store(projectPath string) *Store {
	key := projectPath
	if abs, err := filepath.Abs(projectPath); err == nil {
		key = abs
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[key]; ok {
		return s
	}
	s := NewStore(key, m.catalogs, m.opts)
	m.stores[key] = s
	return s
}
