package state

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdk "github.com/compliance-oracle/sdk"
	"github.com/compliance-oracle/sdk/framework"
)

// fakeCatalogs serves a fixed control set for summary and export tests.
type fakeCatalogs struct {
	controls map[string][]framework.Control
}

func (f *fakeCatalogs) ListControls(ctx context.Context, frameworkID string, opts framework.ListOptions) ([]framework.Control, error) {
	return f.controls[frameworkID], nil
}

func newFakeCatalogs() *fakeCatalogs {
	return &fakeCatalogs{controls: map[string][]framework.Control{
		"nist-csf-2.0": {
			{ID: "PR.AC-01", Name: "Identities are managed", FunctionName: "PROTECT", CategoryName: "Access Control"},
			{ID: "PR.AC-03", Name: "Remote access is managed", FunctionName: "PROTECT", CategoryName: "Access Control"},
			{ID: "DE.CM-01", Name: "Networks are monitored", FunctionName: "DETECT", CategoryName: "Continuous Monitoring"},
			{ID: "DE.CM-03", Name: "Personnel activity is monitored", FunctionName: "DETECT", CategoryName: "Continuous Monitoring"},
		},
	}}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), newFakeCatalogs(), StoreOptions{ProjectName: "acme"})
}

func testDoc(controlID string, status ControlStatus, evidence ...Evidence) ControlDocumentation {
	return ControlDocumentation{
		ControlID:             controlID,
		FrameworkID:           "nist-csf-2.0",
		Status:                status,
		ImplementationSummary: "handled via SSO",
		Evidence:              evidence,
	}
}

func TestDocumentControl_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	catalogs := newFakeCatalogs()
	s := NewStore(dir, catalogs, StoreOptions{ProjectName: "acme"})
	ctx := context.Background()

	doc := testDoc("PR.AC-01", StatusImplemented,
		Evidence{Type: EvidenceConfig, Path: "sso/okta.yaml", Description: "SSO config"},
		Evidence{Type: EvidenceCode, Path: "auth/middleware.go", LineRange: []int{10, 42}, Description: "auth middleware"},
	)
	require.NoError(t, s.DocumentControl(ctx, doc))

	// A fresh store over the same directory must see the identical record,
	// including evidence order.
	reloaded := NewStore(dir, catalogs, StoreOptions{})
	got, err := reloaded.Documentation(ctx, "nist-csf-2.0", "PR.AC-01")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, doc.ControlID, got.ControlID)
	assert.Equal(t, doc.Status, got.Status)
	assert.Equal(t, doc.ImplementationSummary, got.ImplementationSummary)
	require.Len(t, got.Evidence, 2)
	assert.Equal(t, "sso/okta.yaml", got.Evidence[0].Path)
	assert.Equal(t, []int{10, 42}, got.Evidence[1].LineRange)
	assert.False(t, got.LastUpdated.IsZero())
}

func TestDocumentControl_PreservesEvidenceOnEmptyUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusPartial,
		Evidence{Type: EvidenceDocument, Path: "docs/access.md", Description: "policy"},
	)))

	// Second write with no evidence must not erase the prior evidence.
	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented)))

	got, err := s.Documentation(ctx, "nist-csf-2.0", "PR.AC-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusImplemented, got.Status)
	require.Len(t, got.Evidence, 1)
	assert.Equal(t, "docs/access.md", got.Evidence[0].Path)
}

func TestDocumentControl_Invalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		doc  ControlDocumentation
	}{
		{"missing framework", ControlDocumentation{ControlID: "PR.AC-01", Status: StatusImplemented}},
		{"missing control", ControlDocumentation{FrameworkID: "nist-csf-2.0", Status: StatusImplemented}},
		{"bad status", testDoc("PR.AC-01", "unknown")},
		{"bad evidence", testDoc("PR.AC-01", StatusImplemented, Evidence{Type: "tape", Path: "x"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.DocumentControl(ctx, tt.doc)
			assert.Error(t, err)
		})
	}
}

func TestLinkEvidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented)))
	require.NoError(t, s.LinkEvidence(ctx, "nist-csf-2.0", "PR.AC-01",
		Evidence{Type: EvidenceURL, Path: "https://wiki/sso", Description: "runbook"}))

	got, err := s.Documentation(ctx, "nist-csf-2.0", "PR.AC-01")
	require.NoError(t, err)
	require.Len(t, got.Evidence, 1)
	assert.Equal(t, EvidenceURL, got.Evidence[0].Type)
}

func TestLinkEvidence_NotDocumented(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.LinkEvidence(ctx, "nist-csf-2.0", "DE.CM-01",
		Evidence{Type: EvidenceCode, Path: "monitor.go", Description: "netflow"})
	require.True(t, errors.Is(err, sdk.ErrNotDocumented))

	// State must be untouched: no record, no state file content for the key.
	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Controls)
}

func TestSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented)))
	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-03", StatusPartial)))
	require.NoError(t, s.DocumentControl(ctx, testDoc("DE.CM-01", StatusNotApplicable)))

	summary, err := s.Summary(ctx, "nist-csf-2.0")
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 4, summary.TotalControls)
	assert.Equal(t, 1, summary.Implemented)
	assert.Equal(t, 1, summary.Partial)
	assert.Equal(t, 1, summary.NotApplicable)
	assert.Equal(t, 1, summary.NotAddressed)

	// applicable = 4 - 1 = 3; completion = (100 + 50) / 3 = 50.0
	assert.InDelta(t, 50.0, summary.CompletionPercentage, 0.001)

	total := summary.Implemented + summary.Partial + summary.Planned +
		summary.NotApplicable + summary.NotAddressed
	assert.Equal(t, summary.TotalControls, total)
}

func TestSummary_ExplicitNotAddressedKeepsInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented)))
	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-03", StatusNotAddressed)))

	summary, err := s.Summary(ctx, "nist-csf-2.0")
	require.NoError(t, err)
	require.NotNil(t, summary)

	// One explicit not_addressed record plus two undocumented controls.
	assert.Equal(t, 3, summary.NotAddressed)
	total := summary.Implemented + summary.Partial + summary.Planned +
		summary.NotApplicable + summary.NotAddressed
	assert.Equal(t, summary.TotalControls, total)
}

func TestSummary_IgnoresRecordsOutsideCatalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented)))
	// Left over from an older catalog revision; the control no longer exists.
	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.XX-99", StatusImplemented)))

	summary, err := s.Summary(ctx, "nist-csf-2.0")
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 1, summary.Implemented)
	assert.Equal(t, 3, summary.NotAddressed)
	assert.GreaterOrEqual(t, summary.NotAddressed, 0)
	total := summary.Implemented + summary.Partial + summary.Planned +
		summary.NotApplicable + summary.NotAddressed
	assert.Equal(t, summary.TotalControls, total)
}

func TestSummary_AllNotApplicable(t *testing.T) {
	catalogs := &fakeCatalogs{controls: map[string][]framework.Control{
		"tiny": {{ID: "T-1"}, {ID: "T-2"}},
	}}
	s := NewStore(t.TempDir(), catalogs, StoreOptions{})
	ctx := context.Background()

	for _, id := range []string{"T-1", "T-2"} {
		require.NoError(t, s.DocumentControl(ctx, ControlDocumentation{
			ControlID: id, FrameworkID: "tiny", Status: StatusNotApplicable,
		}))
	}

	summary, err := s.Summary(ctx, "tiny")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.InDelta(t, 100.0, summary.CompletionPercentage, 0.001)
}

func TestSummary_UnknownFramework(t *testing.T) {
	s := newTestStore(t)

	summary, err := s.Summary(context.Background(), "no-such-framework")
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented)))

	removed, err := s.Remove(ctx, "nist-csf-2.0", "PR.AC-01")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(ctx, "nist-csf-2.0", "PR.AC-01")
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := s.Documentation(ctx, "nist-csf-2.0", "PR.AC-01")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, newFakeCatalogs(), StoreOptions{ProjectName: "acme"})
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented)))
	require.NoError(t, s.Clear(ctx))

	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Controls)
	assert.Equal(t, "acme", st.ProjectName)

	// The cleared state is persisted, not just in memory.
	reloaded := NewStore(dir, newFakeCatalogs(), StoreOptions{})
	st, err = reloaded.State(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Controls)
}

func TestLoad_MissingFileStartsEmpty(t *testing.T) {
	s := newTestStore(t)

	st, err := s.State(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.Controls)
	assert.Equal(t, stateVersion, st.Version)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	stateDir := filepath.Join(dir, ".compliance-oracle")
	require.NoError(t, os.MkdirAll(stateDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stateDir, "state.json"), []byte("{broken"), 0o644))

	s := NewStore(dir, newFakeCatalogs(), StoreOptions{})
	_, err := s.State(context.Background())
	require.True(t, errors.Is(err, sdk.ErrMalformedDocument))
}

func TestStateFileShape(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, newFakeCatalogs(), StoreOptions{ProjectName: "acme"})
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented)))

	data, err := os.ReadFile(filepath.Join(dir, ".compliance-oracle", "state.json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "1.0", raw["version"])
	assert.Contains(t, raw["controls"], "nist-csf-2.0:PR.AC-01")
}

func TestManager_CachesPerProject(t *testing.T) {
	m := NewManager(newFakeCatalogs(), StoreOptions{})

	a := m.Store(t.TempDir())
	b := m.Store(t.TempDir())
	assert.NotSame(t, a, b)

	again := m.Store(a.projectPath)
	assert.Same(t, a, again)
}

func TestExport_Markdown(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented,
		Evidence{Type: EvidenceConfig, Path: "sso/okta.yaml", LineRange: []int{1, 5}, Description: "SSO config"},
	)))
	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-03", StatusPlanned)))

	out, err := s.Export(ctx, ExportMarkdown, "nist-csf-2.0", ExportOptions{
		IncludeEvidence: true,
		IncludeGaps:     true,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "# Compliance Documentation: nist-csf-2.0")
	assert.Contains(t, out, "### Implemented")
	assert.Contains(t, out, "### Planned")
	assert.Contains(t, out, "#### PR.AC-01")
	assert.Contains(t, out, "- [config] `sso/okta.yaml` (lines 1-5): SSO config")
	assert.Contains(t, out, "## Gaps (Not Addressed)")
	assert.Contains(t, out, "**DE.CM-01**")

	// Sections follow the fixed status order.
	assert.Less(t, strings.Index(out, "### Implemented"), strings.Index(out, "### Planned"))
}

func TestExport_MarkdownWithoutEvidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented,
		Evidence{Type: EvidenceConfig, Path: "sso/okta.yaml", Description: "SSO config"},
	)))

	out, err := s.Export(ctx, ExportMarkdown, "nist-csf-2.0", ExportOptions{})
	require.NoError(t, err)
	assert.NotContains(t, out, "**Evidence**")
	assert.NotContains(t, out, "## Gaps")
}

func TestExport_JSON(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DocumentControl(ctx, testDoc("PR.AC-01", StatusImplemented,
		Evidence{Type: EvidenceCode, Path: "auth.go", Description: "auth"},
	)))

	out, err := s.Export(ctx, ExportJSON, "nist-csf-2.0", ExportOptions{
		IncludeEvidence: true,
		IncludeGaps:     true,
	})
	require.NoError(t, err)

	var export jsonExport
	require.NoError(t, json.Unmarshal([]byte(out), &export))
	assert.NotEmpty(t, export.ExportID)
	assert.Equal(t, "nist-csf-2.0", export.FrameworkID)
	require.NotNil(t, export.Summary)
	require.Len(t, export.Controls, 1)
	assert.Len(t, export.Controls[0].Evidence, 1)
	assert.Len(t, export.Gaps, 3)
}

func TestExport_InvalidFormat(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Export(context.Background(), "pdf", "nist-csf-2.0", ExportOptions{})
	assert.Error(t, err)
}

func TestEvidenceValidate(t *testing.T) {
	tests := []struct {
		name    string
		ev      Evidence
		wantErr bool
	}{
		{"valid", Evidence{Type: EvidenceCode, Path: "a.go", Description: "d"}, false},
		{"valid with range", Evidence{Type: EvidenceCode, Path: "a.go", LineRange: []int{1, 9}, Description: "d"}, false},
		{"bad type", Evidence{Type: "tape", Path: "a.go"}, true},
		{"missing path", Evidence{Type: EvidenceCode}, true},
		{"short range", Evidence{Type: EvidenceCode, Path: "a.go", LineRange: []int{3}}, true},
		{"inverted range", Evidence{Type: EvidenceCode, Path: "a.go", LineRange: []int{9, 1}}, true},
		{"zero start", Evidence{Type: EvidenceCode, Path: "a.go", LineRange: []int{0, 4}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ev.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
