// Package framework loads compliance framework catalogs and answers control
// lookups. Catalog documents are JSON files consumed read-only; a
// frameworks.yaml registry in the same directory declares the frameworks the
// manager knows about. Catalogs are treated as immutable per run and cached
// per framework id for the lifetime of the manager.
package framework

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	sdk "github.com/compliance-oracle/sdk"
)

// RegistryEntry declares one framework the manager knows about.
type RegistryEntry struct {
	// ID is the framework identifier (e.g., "nist-csf-2.0").
	ID string `yaml:"id"`

	// Name is the human-readable framework name.
	Name string `yaml:"name"`

	// Version is the framework version string.
	Version string `yaml:"version"`

	// Description summarizes the framework.
	Description string `yaml:"description,omitempty"`

	// SourceURL points at the upstream publication.
	SourceURL string `yaml:"source_url,omitempty"`

	// File is the catalog document filename within the frameworks directory.
	// Defaults to "<id>.json".
	File string `yaml:"file,omitempty"`

	// Deprecated marks the framework as deprecated in listings.
	Deprecated bool `yaml:"deprecated,omitempty"`

	// ReferenceTokens are substrings by which other frameworks' informative
	// references cite this framework (e.g., "800-53", "SP 800-53"). Used by
	// the mapping store when synthesizing mappings from reference text.
	ReferenceTokens []string `yaml:"reference_tokens,omitempty"`
}

type registryFile struct {
	Frameworks []RegistryEntry `yaml:"frameworks"`
}

// Manager loads and queries framework catalogs from a data directory.
//
// Thread-safety: all methods are safe for concurrent use. Concurrent first
// loads of the same catalog may parse the document more than once but
// converge to equivalent cached content.
type Manager struct {
	dir    string
	logger *slog.Logger

	mu       sync.RWMutex
	registry []RegistryEntry
	regOnce  sync.Once
	regErr   error
	cache    map[string]*catalog
}

// NewManager creates a catalog manager over the given frameworks directory.
// If logger is nil, slog.Default() is used.
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:    dir,
		logger: logger,
		cache:  make(map[string]*catalog),
	}
}

// loadRegistry parses frameworks.yaml once. A missing registry file leaves
// the manager with zero known frameworks; an unparseable one is a hard error.
func (m *Manager) loadRegistry() ([]RegistryEntry, error) {
	m.regOnce.Do(func() {
		path := filepath.Join(m.dir, "frameworks.yaml")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				m.logger.Warn("framework registry not found", "path", path)
				return
			}
			m.regErr = fmt.Errorf("reading framework registry: %w", err)
			return
		}

		var rf registryFile
		if err := yaml.Unmarshal(data, &rf); err != nil {
			m.regErr = sdk.NewMalformedError("framework.loadRegistry",
				fmt.Errorf("%w: %v", sdk.ErrMalformedDocument, err))
			return
		}

		m.mu.Lock()
		m.registry = rf.Frameworks
		m.mu.Unlock()
	})

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry, m.regErr
}

// entry returns the registry entry for a framework id.
func (m *Manager) entry(frameworkID string) (RegistryEntry, bool) {
	entries, err := m.loadRegistry()
	if err != nil {
		return RegistryEntry{}, false
	}
	for _, e := range entries {
		if e.ID == frameworkID {
			return e, true
		}
	}
	return RegistryEntry{}, false
}

// ReferenceTokens returns the reference tokens configured for a framework,
// used to gate reference-text mapping synthesis.
func (m *Manager) ReferenceTokens(frameworkID string) []string {
	e, ok := m.entry(frameworkID)
	if !ok {
		return nil
	}
	return e.ReferenceTokens
}

// load returns the cached catalog for a framework, loading it on first use.
// Returns (nil, nil) when the framework is unregistered or its document is
// absent; returns an error only for unreadable or malformed documents.
func (m *Manager) load(frameworkID string) (*catalog, error) {
	m.mu.RLock()
	c, ok := m.cache[frameworkID]
	m.mu.RUnlock()
	if ok {
		return c, nil
	}

	e, ok := m.entry(frameworkID)
	if !ok {
		if _, err := m.loadRegistry(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	file := e.File
	if file == "" {
		file = e.ID + ".json"
	}
	path := filepath.Join(m.dir, file)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	c, err = decodeCatalog(data, frameworkID)
	if err != nil {
		// Fail loudly rather than masking corruption as "zero controls".
		return nil, sdk.NewMalformedError("framework.load",
			fmt.Errorf("%w: %v", sdk.ErrMalformedDocument, err)).
			WithContext(map[string]any{"framework_id": frameworkID, "path": path})
	}

	m.mu.Lock()
	if existing, ok := m.cache[frameworkID]; ok {
		c = existing
	} else {
		m.cache[frameworkID] = c
	}
	m.mu.Unlock()

	m.logger.Debug("catalog loaded",
		"framework_id", frameworkID,
		"controls", len(c.controls))

	return c, nil
}

// ListFrameworks lists every registered framework. Status is derived from
// document presence on each call: installed catalogs are active (unless the
// registry marks them deprecated), uninstalled ones are planned.
func (m *Manager) ListFrameworks(ctx context.Context) ([]Info, error) {
	entries, err := m.loadRegistry()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		info := Info{
			ID:          e.ID,
			Name:        e.Name,
			Version:     e.Version,
			Description: e.Description,
			SourceURL:   e.SourceURL,
			Status:      StatusPlanned,
		}

		c, err := m.load(e.ID)
		if err != nil {
			return nil, err
		}
		if c != nil {
			info.Status = StatusActive
			if e.Deprecated {
				info.Status = StatusDeprecated
			}
			info.ControlCount = len(c.controls)
		}

		infos = append(infos, info)
	}

	return infos, nil
}

// ListOptions filter a control listing.
type ListOptions struct {
	// FunctionID keeps only controls under the given function (e.g., "PR").
	FunctionID string

	// CategoryID keeps only controls under the given category (e.g., "PR.AC").
	CategoryID string

	// Filter keeps only controls matching a compiled CEL expression.
	Filter *Filter
}

// ListControls lists a framework's controls with optional filtering.
// An unknown framework or absent catalog yields an empty slice, not an
// error; malformed documents fail loudly.
func (m *Manager) ListControls(ctx context.Context, frameworkID string, opts ListOptions) ([]Control, error) {
	c, err := m.load(frameworkID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	controls := make([]Control, 0, len(c.controls))
	for _, ctrl := range c.controls {
		if opts.FunctionID != "" && ctrl.FunctionID != opts.FunctionID {
			continue
		}
		if opts.CategoryID != "" && ctrl.CategoryID != opts.CategoryID {
			continue
		}
		if opts.Filter != nil {
			ok, err := opts.Filter.Match(ctrl)
			if err != nil {
				return nil, sdk.NewValidationError("framework.ListControls", err)
			}
			if !ok {
				continue
			}
		}
		controls = append(controls, ctrl)
	}

	return controls, nil
}

// GetControlDetails resolves one control with catalog-local context: the
// other controls of its category and the informative-reference strings that
// appear to cite other registered frameworks.
// Returns ErrControlNotFound (or ErrFrameworkNotFound) wrapped in a NotFound
// error when absent.
func (m *Manager) GetControlDetails(ctx context.Context, frameworkID, controlID string) (*ControlDetails, error) {
	c, err := m.load(frameworkID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, sdk.NewNotFoundError("framework.GetControlDetails", sdk.ErrFrameworkNotFound).
			WithContext(map[string]any{"framework_id": frameworkID})
	}

	ctrl, ok := c.control(controlID)
	if !ok {
		return nil, sdk.NewNotFoundError("framework.GetControlDetails", sdk.ErrControlNotFound).
			WithContext(map[string]any{"framework_id": frameworkID, "control_id": controlID})
	}

	details := &ControlDetails{
		Control:         ctrl,
		RelatedControls: []string{},
		Mappings:        make(map[string][]string),
	}

	// Related = siblings in the same category.
	if ctrl.CategoryID != "" {
		for _, other := range c.controls {
			if other.CategoryID == ctrl.CategoryID && other.ID != ctrl.ID {
				details.RelatedControls = append(details.RelatedControls, other.ID)
			}
		}
	}

	// Cheap reference heuristic: bucket reference strings under any
	// registered framework whose tokens they mention. The mapping store is
	// the authoritative source for typed mappings.
	entries, _ := m.loadRegistry()
	for _, ref := range ctrl.InformativeReferences {
		for _, e := range entries {
			if e.ID == frameworkID {
				continue
			}
			if containsAny(ref, e.ReferenceTokens) {
				details.Mappings[e.ID] = append(details.Mappings[e.ID], ref)
			}
		}
	}

	return details, nil
}

// GetControl resolves a bare control without detail context.
func (m *Manager) GetControl(ctx context.Context, frameworkID, controlID string) (*Control, error) {
	c, err := m.load(frameworkID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, sdk.NewNotFoundError("framework.GetControl", sdk.ErrFrameworkNotFound).
			WithContext(map[string]any{"framework_id": frameworkID})
	}
	ctrl, ok := c.control(controlID)
	if !ok {
		return nil, sdk.NewNotFoundError("framework.GetControl", sdk.ErrControlNotFound).
			WithContext(map[string]any{"framework_id": frameworkID, "control_id": controlID})
	}
	return &ctrl, nil
}

// Functions lists a framework's top-level functions (or families).
func (m *Manager) Functions(ctx context.Context, frameworkID string) ([]Function, error) {
	c, err := m.load(frameworkID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	return append([]Function(nil), c.functions...), nil
}

// Categories lists a framework's categories, optionally filtered by function.
func (m *Manager) Categories(ctx context.Context, frameworkID, functionID string) ([]Category, error) {
	c, err := m.load(frameworkID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	cats := make([]Category, 0, len(c.categories))
	for _, cat := range c.categories {
		if functionID != "" && cat.FunctionID != functionID {
			continue
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

// containsAny reports whether s mentions any of the tokens. Tokens are
// matched verbatim since NIST publication names are cited literally.
func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if tok != "" && strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
