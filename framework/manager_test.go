package framework

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	sdk "github.com/compliance-oracle/sdk"
)

const testRegistry = `frameworks:
  - id: nist-csf-2.0
    name: NIST Cybersecurity Framework
    version: "2.0"
    source_url: https://www.nist.gov/cyberframework
    reference_tokens: ["CSF"]
  - id: nist-800-53-r5
    name: NIST SP 800-53
    version: rev5
    reference_tokens: ["800-53", "SP 800-53"]
  - id: iso-27001-2022
    name: ISO/IEC 27001
    version: "2022"
`

// newTestManager writes a registry plus the given catalog documents into a
// temp frameworks directory.
func newTestManager(t *testing.T, docs map[string]string) *Manager {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "frameworks.yaml"), []byte(testRegistry), 0o644); err != nil {
		t.Fatal(err)
	}
	for name, body := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewManager(dir, nil)
}

func TestListFrameworks_StatusDerivation(t *testing.T) {
	m := newTestManager(t, map[string]string{
		"nist-csf-2.0.json": nestedDoc,
	})

	infos, err := m.ListFrameworks(context.Background())
	if err != nil {
		t.Fatalf("ListFrameworks() error = %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("frameworks = %d, want 3", len(infos))
	}

	byID := make(map[string]Info, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}

	if got := byID["nist-csf-2.0"]; got.Status != StatusActive || got.ControlCount != 2 {
		t.Errorf("installed framework = %+v", got)
	}
	if got := byID["nist-800-53-r5"]; got.Status != StatusPlanned || got.ControlCount != 0 {
		t.Errorf("uninstalled framework = %+v", got)
	}
	if got := byID["iso-27001-2022"]; got.Status != StatusPlanned {
		t.Errorf("uninstalled framework status = %s", got.Status)
	}
}

func TestListFrameworks_MissingRegistry(t *testing.T) {
	m := NewManager(t.TempDir(), nil)

	infos, err := m.ListFrameworks(context.Background())
	if err != nil {
		t.Fatalf("ListFrameworks() error = %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("frameworks = %d, want 0", len(infos))
	}
}

func TestListControls(t *testing.T) {
	m := newTestManager(t, map[string]string{
		"nist-csf-2.0.json": nestedDoc,
	})
	ctx := context.Background()

	controls, err := m.ListControls(ctx, "nist-csf-2.0", ListOptions{})
	if err != nil {
		t.Fatalf("ListControls() error = %v", err)
	}
	if len(controls) != 2 {
		t.Fatalf("controls = %d, want 2", len(controls))
	}

	controls, err = m.ListControls(ctx, "nist-csf-2.0", ListOptions{CategoryID: "PR.AC"})
	if err != nil {
		t.Fatal(err)
	}
	if len(controls) != 2 {
		t.Errorf("category-filtered controls = %d, want 2", len(controls))
	}

	controls, err = m.ListControls(ctx, "nist-csf-2.0", ListOptions{FunctionID: "DE"})
	if err != nil {
		t.Fatal(err)
	}
	if len(controls) != 0 {
		t.Errorf("non-matching function filter = %d controls, want 0", len(controls))
	}
}

func TestListControls_UnknownFramework(t *testing.T) {
	m := newTestManager(t, nil)

	controls, err := m.ListControls(context.Background(), "no-such-framework", ListOptions{})
	if err != nil {
		t.Fatalf("ListControls() error = %v", err)
	}
	if len(controls) != 0 {
		t.Errorf("controls = %d, want 0", len(controls))
	}
}

func TestListControls_UninstalledFramework(t *testing.T) {
	m := newTestManager(t, nil)

	// Registered but no document on disk.
	controls, err := m.ListControls(context.Background(), "iso-27001-2022", ListOptions{})
	if err != nil {
		t.Fatalf("ListControls() error = %v", err)
	}
	if len(controls) != 0 {
		t.Errorf("controls = %d, want 0", len(controls))
	}
}

func TestListControls_MalformedDocument(t *testing.T) {
	m := newTestManager(t, map[string]string{
		"nist-csf-2.0.json": `{"functions": [`,
	})

	_, err := m.ListControls(context.Background(), "nist-csf-2.0", ListOptions{})
	if !errors.Is(err, sdk.ErrMalformedDocument) {
		t.Errorf("error = %v, want ErrMalformedDocument", err)
	}
}

func TestListControls_CELFilter(t *testing.T) {
	m := newTestManager(t, map[string]string{
		"nist-csf-2.0.json": nestedDoc,
	})

	filter, err := CompileFilter(`id == "PR.AC-01"`)
	if err != nil {
		t.Fatalf("CompileFilter() error = %v", err)
	}

	controls, err := m.ListControls(context.Background(), "nist-csf-2.0", ListOptions{Filter: filter})
	if err != nil {
		t.Fatalf("ListControls() error = %v", err)
	}
	if len(controls) != 1 || controls[0].ID != "PR.AC-01" {
		t.Errorf("filtered controls = %+v", controls)
	}
}

func TestGetControlDetails(t *testing.T) {
	m := newTestManager(t, map[string]string{
		"nist-csf-2.0.json": nestedDoc,
	})

	details, err := m.GetControlDetails(context.Background(), "nist-csf-2.0", "PR.AC-01")
	if err != nil {
		t.Fatalf("GetControlDetails() error = %v", err)
	}

	if details.ID != "PR.AC-01" {
		t.Errorf("id = %s", details.ID)
	}
	if len(details.RelatedControls) != 1 || details.RelatedControls[0] != "PR.AC-03" {
		t.Errorf("related = %v, want [PR.AC-03]", details.RelatedControls)
	}

	// The informative reference cites SP 800-53, which the registry declares
	// reference tokens for.
	refs := details.Mappings["nist-800-53-r5"]
	if len(refs) != 1 {
		t.Errorf("mapped references = %v", refs)
	}
	if _, ok := details.Mappings["iso-27001-2022"]; ok {
		t.Error("tokenless framework should not receive reference buckets")
	}
}

func TestGetControlDetails_NotFound(t *testing.T) {
	m := newTestManager(t, map[string]string{
		"nist-csf-2.0.json": nestedDoc,
	})
	ctx := context.Background()

	_, err := m.GetControlDetails(ctx, "no-such-framework", "PR.AC-01")
	if !errors.Is(err, sdk.ErrFrameworkNotFound) {
		t.Errorf("unknown framework error = %v, want ErrFrameworkNotFound", err)
	}

	_, err = m.GetControlDetails(ctx, "nist-csf-2.0", "ZZ.ZZ-99")
	if !errors.Is(err, sdk.ErrControlNotFound) {
		t.Errorf("unknown control error = %v, want ErrControlNotFound", err)
	}
}

func TestFunctionsAndCategories(t *testing.T) {
	m := newTestManager(t, map[string]string{
		"nist-csf-2.0.json": nestedDoc,
	})
	ctx := context.Background()

	fns, err := m.Functions(ctx, "nist-csf-2.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(fns) != 1 || fns[0].ID != "PR" {
		t.Errorf("functions = %+v", fns)
	}

	cats, err := m.Categories(ctx, "nist-csf-2.0", "PR")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0].ID != "PR.AC" {
		t.Errorf("categories = %+v", cats)
	}

	cats, err = m.Categories(ctx, "nist-csf-2.0", "DE")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 0 {
		t.Errorf("non-matching function categories = %+v", cats)
	}
}

func TestReferenceTokens(t *testing.T) {
	m := newTestManager(t, nil)

	toks := m.ReferenceTokens("nist-800-53-r5")
	if len(toks) != 2 {
		t.Errorf("tokens = %v", toks)
	}
	if toks := m.ReferenceTokens("no-such-framework"); toks != nil {
		t.Errorf("unknown framework tokens = %v, want nil", toks)
	}
}
