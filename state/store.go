package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sdk "github.com/compliance-oracle/sdk"
	"github.com/compliance-oracle/sdk/framework"
)

// CatalogSource is the slice of the framework manager the store needs for
// summary and gap computation.
type CatalogSource interface {
	ListControls(ctx context.Context, frameworkID string, opts framework.ListOptions) ([]framework.Control, error)
}

// Store manages the compliance state of one project. A missing state file is
// not an error; first access starts from an empty state. Every mutation
// persists the full state synchronously before returning.
type Store struct {
	projectPath string
	projectName string
	statePath   string
	catalogs    CatalogSource
	locker      Locker
	logger      *slog.Logger

	mu    sync.Mutex
	state *ComplianceState
}

// StoreOptions configure a project store.
type StoreOptions struct {
	// ProjectName labels new state documents.
	ProjectName string

	// StateDirName is the hidden directory holding the state file.
	// Defaults to ".compliance-oracle".
	StateDirName string

	// Locker fences cross-process writers. Defaults to NopLocker.
	Locker Locker

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

const stateFileName = "state.json"

// NewStore creates a store for the project rooted at projectPath.
func NewStore(projectPath string, catalogs CatalogSource, opts StoreOptions) *Store {
	dirName := opts.StateDirName
	if dirName == "" {
		dirName = ".compliance-oracle"
	}
	locker := opts.Locker
	if locker == nil {
		locker = NopLocker{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		projectPath: projectPath,
		projectName: opts.ProjectName,
		statePath:   filepath.Join(projectPath, dirName, stateFileName),
		catalogs:    catalogs,
		locker:      locker,
		logger:      logger,
	}
}

// load reads the state file on first use. Callers must hold s.mu.
func (s *Store) load() (*ComplianceState, error) {
	if s.state != nil {
		return s.state, nil
	}

	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = newComplianceState(s.projectName)
			return s.state, nil
		}
		return nil, fmt.Errorf("reading state file %s: %w", s.statePath, err)
	}

	var st ComplianceState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, sdk.NewMalformedError("state.load",
			fmt.Errorf("%w: %v", sdk.ErrMalformedDocument, err)).
			WithContext(map[string]any{"path": s.statePath})
	}
	if st.Controls == nil {
		st.Controls = make(map[string]ControlDocumentation)
	}

	s.state = &st
	return s.state, nil
}

// save rewrites the state file wholesale. Callers must hold s.mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.statePath), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	s.state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(s.statePath, data, 0o644); err != nil {
		return fmt.Errorf("writing state file %s: %w", s.statePath, err)
	}
	return nil
}

// State returns a snapshot of the project's compliance state.
func (s *Store) State(ctx context.Context) (*ComplianceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}

	snapshot := *st
	snapshot.Controls = make(map[string]ControlDocumentation, len(st.Controls))
	for k, v := range st.Controls {
		snapshot.Controls[k] = v
	}
	return &snapshot, nil
}

// DocumentControl upserts a control's documentation record. When the
// incoming record carries no evidence and a record already exists for the
// same key, the existing evidence is preserved: an update must not wipe
// prior evidence merely by omission.
func (s *Store) DocumentControl(ctx context.Context, doc ControlDocumentation) error {
	if err := doc.Validate(); err != nil {
		return sdk.NewValidationError("state.DocumentControl", err)
	}

	unlock, err := s.locker.Lock(ctx, s.projectPath)
	if err != nil {
		return sdk.NewUnavailableError("state.DocumentControl", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			s.logger.Warn("failed to release state lock", "error", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}

	key := doc.Key()
	if existing, ok := st.Controls[key]; ok && len(doc.Evidence) == 0 {
		doc.Evidence = existing.Evidence
	}
	if doc.Evidence == nil {
		doc.Evidence = []Evidence{}
	}
	doc.LastUpdated = time.Now().UTC()
	st.Controls[key] = doc

	if err := s.save(); err != nil {
		return err
	}

	s.logger.Info("control documented",
		"framework_id", doc.FrameworkID,
		"control_id", doc.ControlID,
		"status", doc.Status)
	return nil
}

// LinkEvidence attaches evidence to an already-documented control. Linking
// to an undocumented control fails with ErrNotDocumented and leaves state
// unchanged.
func (s *Store) LinkEvidence(ctx context.Context, frameworkID, controlID string, ev Evidence) error {
	if err := ev.Validate(); err != nil {
		return sdk.NewValidationError("state.LinkEvidence", err)
	}

	unlock, err := s.locker.Lock(ctx, s.projectPath)
	if err != nil {
		return sdk.NewUnavailableError("state.LinkEvidence", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			s.logger.Warn("failed to release state lock", "error", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}

	key := frameworkID + ":" + controlID
	doc, ok := st.Controls[key]
	if !ok {
		return sdk.NewValidationError("state.LinkEvidence", sdk.ErrNotDocumented).
			WithContext(map[string]any{"framework_id": frameworkID, "control_id": controlID})
	}

	doc.Evidence = append(doc.Evidence, ev)
	doc.LastUpdated = time.Now().UTC()
	st.Controls[key] = doc

	return s.save()
}

// Documentation returns the record for one control, or nil when the control
// is not documented.
func (s *Store) Documentation(ctx context.Context, frameworkID, controlID string) (*ControlDocumentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	doc, ok := st.Controls[frameworkID+":"+controlID]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

// Documented returns every record for one framework.
func (s *Store) Documented(ctx context.Context, frameworkID string) ([]ControlDocumentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}

	prefix := frameworkID + ":"
	var docs []ControlDocumentation
	for key, doc := range st.Controls {
		if strings.HasPrefix(key, prefix) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// ImplementedSet returns the control ids of one framework whose documented
// status counts as handled for coverage projection: implemented and
// not-applicable both qualify.
func (s *Store) ImplementedSet(ctx context.Context, frameworkID string) (map[string]bool, error) {
	docs, err := s.Documented(ctx, frameworkID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	for _, doc := range docs {
		if doc.Status == StatusImplemented || doc.Status == StatusNotApplicable {
			set[doc.ControlID] = true
		}
	}
	return set, nil
}

// Summary aggregates documentation counts against the framework's catalog.
// Returns nil when the framework has zero catalog controls. Catalog controls
// with no documentation record count as not addressed, as do records
// explicitly marked not_addressed, so the five counts always sum to the
// total. Records for controls no longer in the catalog are ignored; counting
// them could push the derived not-addressed remainder negative.
func (s *Store) Summary(ctx context.Context, frameworkID string) (*Summary, error) {
	controls, err := s.catalogs.ListControls(ctx, frameworkID, framework.ListOptions{})
	if err != nil {
		return nil, err
	}
	total := len(controls)
	if total == 0 {
		return nil, nil
	}

	docs, err := s.Documented(ctx, frameworkID)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, total)
	for _, c := range controls {
		known[c.ID] = true
	}

	counts := make(map[ControlStatus]int)
	for _, doc := range docs {
		if !known[doc.ControlID] {
			continue
		}
		counts[doc.Status]++
	}

	implemented := counts[StatusImplemented]
	partial := counts[StatusPartial]
	planned := counts[StatusPlanned]
	notApplicable := counts[StatusNotApplicable]
	notAddressed := total - implemented - partial - planned - notApplicable

	applicable := total - notApplicable
	completion := 100.0
	if applicable > 0 {
		completion = (float64(implemented)*100 + float64(partial)*50) / float64(applicable)
	}
	completion = math.Min(100, completion)

	return &Summary{
		FrameworkID:          frameworkID,
		TotalControls:        total,
		Implemented:          implemented,
		Partial:              partial,
		Planned:              planned,
		NotApplicable:        notApplicable,
		NotAddressed:         notAddressed,
		CompletionPercentage: completion,
	}, nil
}

// Remove deletes a control's documentation record. Returns false when the
// control was not documented.
func (s *Store) Remove(ctx context.Context, frameworkID, controlID string) (bool, error) {
	unlock, err := s.locker.Lock(ctx, s.projectPath)
	if err != nil {
		return false, sdk.NewUnavailableError("state.Remove", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			s.logger.Warn("failed to release state lock", "error", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return false, err
	}

	key := frameworkID + ":" + controlID
	if _, ok := st.Controls[key]; !ok {
		return false, nil
	}
	delete(st.Controls, key)

	if err := s.save(); err != nil {
		return false, err
	}
	return true, nil
}

// Clear resets the project's state to empty and persists the reset.
func (s *Store) Clear(ctx context.Context) error {
	unlock, err := s.locker.Lock(ctx, s.projectPath)
	if err != nil {
		return sdk.NewUnavailableError("state.Clear", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			s.logger.Warn("failed to release state lock", "error", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = newComplianceState(s.projectName)
	return s.save()
}

// undocumented lists catalog controls with no documentation record at all.
func (s *Store) undocumented(ctx context.Context, frameworkID string) ([]framework.Control, error) {
	controls, err := s.catalogs.ListControls(ctx, frameworkID, framework.ListOptions{})
	if err != nil {
		return nil, err
	}

	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}

	var gaps []framework.Control
	for _, ctrl := range controls {
		if _, ok := st.Controls[frameworkID+":"+ctrl.ID]; !ok {
			gaps = append(gaps, ctrl)
		}
	}
	return gaps, nil
}
