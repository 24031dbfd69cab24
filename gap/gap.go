// Package gap projects a project's compliance in one framework onto another
// through crosswalk mappings. Relationship strength dominates the
// classification: an implemented equivalent or broader source is strong
// evidence of full coverage, a narrower source is structurally partial, and
// a related-only mapping is too weak to claim any coverage at all.
package gap

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/compliance-oracle/sdk/framework"
	"github.com/compliance-oracle/sdk/mapping"
	"github.com/compliance-oracle/sdk/state"
)

// CatalogSource lists a framework's controls.
type CatalogSource interface {
	ListControls(ctx context.Context, frameworkID string, opts framework.ListOptions) ([]framework.Control, error)
}

// MappingSource resolves directed mappings between framework pairs.
type MappingSource interface {
	Mappings(ctx context.Context, sourceFw, targetFw string) ([]mapping.Mapping, error)
}

// StateSource hands out per-project compliance stores.
type StateSource interface {
	Store(projectPath string) *state.Store
}

// Request describes one gap analysis run.
type Request struct {
	// CurrentFramework is the framework the project is assessed against.
	CurrentFramework string

	// TargetFramework is the framework to project coverage into.
	TargetFramework string

	// UseDocumentedState restricts the implemented set to controls documented
	// as implemented or not-applicable. When false, full compliance with the
	// current framework is assumed (hypothetical mode).
	UseDocumentedState bool

	// ProjectPath locates the project state, used only in documented mode.
	ProjectPath string
}

// CoveredControl is a target control fully satisfied by mapped sources.
type CoveredControl struct {
	ControlID           string   `json:"control_id"`
	ControlName         string   `json:"control_name"`
	CoveredBy           []string `json:"covered_by"`
	RelationshipSummary string   `json:"relationship_summary"`
}

// PartialControl is a target control with incomplete mapped coverage.
type PartialControl struct {
	ControlID           string   `json:"control_id"`
	ControlName         string   `json:"control_name"`
	CoveredBy           []string `json:"covered_by"`
	MissingCoverage     []string `json:"missing_coverage"`
	RelationshipSummary string   `json:"relationship_summary"`
}

// GapControl is a target control with no claimable coverage.
type GapControl struct {
	ControlID   string   `json:"control_id"`
	ControlName string   `json:"control_name"`
	Description string   `json:"description"`
	Reason      string   `json:"reason"`
	MappedFrom  []string `json:"mapped_from,omitempty"`
}

// Summary aggregates one analysis run.
type Summary struct {
	TotalTargetControls int     `json:"total_target_controls"`
	FullyCovered        int     `json:"fully_covered"`
	PartiallyCovered    int     `json:"partially_covered"`
	Gaps                int     `json:"gaps"`
	CoveragePercentage  float64 `json:"coverage_percentage"`
}

// Result is the outcome of a gap analysis. It is always well-formed: unknown
// framework ids degrade to empty control and mapping sets, so every bucket
// is present, possibly empty.
type Result struct {
	CurrentFramework string           `json:"current_framework"`
	TargetFramework  string           `json:"target_framework"`
	FullyCovered     []CoveredControl `json:"fully_covered"`
	PartiallyCovered []PartialControl `json:"partially_covered"`
	Gaps             []GapControl     `json:"gaps"`
	Summary          Summary          `json:"summary"`
}

// Engine runs gap analyses.
type Engine struct {
	catalogs CatalogSource
	mappings MappingSource
	states   StateSource
	logger   *slog.Logger
}

// NewEngine creates a gap analysis engine. If logger is nil, slog.Default()
// is used.
func NewEngine(catalogs CatalogSource, mappings MappingSource, states StateSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalogs: catalogs, mappings: mappings, states: states, logger: logger}
}

// Analyze classifies every target-framework control as fully covered,
// partially covered, or a gap.
//
// Classification precedence per target control, first matching rule wins:
//
//  1. no mappings at all: gap
//  2. equivalent/broader mappings with all sources implemented: fully
//     covered; with some implemented: partially covered; with none, fall
//     through
//  3. narrower mappings with any source implemented: partially covered
//     (narrower evidence never yields full coverage)
//  4. only related mappings remain: gap flagged for direct assessment
//  5. otherwise: gap listing the unimplemented mapped sources
func (e *Engine) Analyze(ctx context.Context, req Request) (*Result, error) {
	mappings, err := e.mappings.Mappings(ctx, req.CurrentFramework, req.TargetFramework)
	if err != nil {
		return nil, err
	}

	targetControls, err := e.catalogs.ListControls(ctx, req.TargetFramework, framework.ListOptions{})
	if err != nil {
		return nil, err
	}

	implemented, err := e.implementedSet(ctx, req)
	if err != nil {
		return nil, err
	}

	byTarget := make(map[string][]mapping.Mapping)
	for _, m := range mappings {
		byTarget[m.TargetControlID] = append(byTarget[m.TargetControlID], m)
	}

	result := &Result{
		CurrentFramework: req.CurrentFramework,
		TargetFramework:  req.TargetFramework,
		FullyCovered:     []CoveredControl{},
		PartiallyCovered: []PartialControl{},
		Gaps:             []GapControl{},
	}

	for _, target := range targetControls {
		e.classify(target, byTarget[target.ID], implemented, result)
	}

	total := len(targetControls)
	coverage := 0.0
	if total > 0 {
		coverage = float64(len(result.FullyCovered))
		coverage += 0.5 * float64(len(result.PartiallyCovered))
		coverage = math.Round(coverage/float64(total)*1000) / 10
	}

	result.Summary = Summary{
		TotalTargetControls: total,
		FullyCovered:        len(result.FullyCovered),
		PartiallyCovered:    len(result.PartiallyCovered),
		Gaps:                len(result.Gaps),
		CoveragePercentage:  coverage,
	}

	e.logger.Info("gap analysis complete",
		"current_framework", req.CurrentFramework,
		"target_framework", req.TargetFramework,
		"documented_mode", req.UseDocumentedState,
		"coverage_pct", coverage)

	return result, nil
}

// implementedSet resolves the current framework's handled controls.
func (e *Engine) implementedSet(ctx context.Context, req Request) (map[string]bool, error) {
	if req.UseDocumentedState {
		project := req.ProjectPath
		if project == "" {
			project = "."
		}
		return e.states.Store(project).ImplementedSet(ctx, req.CurrentFramework)
	}

	controls, err := e.catalogs.ListControls(ctx, req.CurrentFramework, framework.ListOptions{})
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(controls))
	for _, c := range controls {
		set[c.ID] = true
	}
	return set, nil
}

// classify buckets one target control.
func (e *Engine) classify(target framework.Control, mappings []mapping.Mapping, implemented map[string]bool, result *Result) {
	if len(mappings) == 0 {
		result.Gaps = append(result.Gaps, GapControl{
			ControlID:   target.ID,
			ControlName: target.Name,
			Description: target.Description,
			Reason:      "No mapping from current framework",
		})
		return
	}

	var eqBroader, narrower, related []mapping.Mapping
	allSources := make(map[string]bool)
	for _, m := range mappings {
		allSources[m.SourceControlID] = true
		switch m.Relationship {
		case mapping.RelationshipEquivalent, mapping.RelationshipBroader:
			eqBroader = append(eqBroader, m)
		case mapping.RelationshipNarrower:
			narrower = append(narrower, m)
		case mapping.RelationshipRelated:
			related = append(related, m)
		}
	}

	if len(eqBroader) > 0 {
		covered, missing := splitByImplemented(sourceSet(eqBroader), implemented)
		switch {
		case len(covered) > 0 && len(missing) == 0:
			result.FullyCovered = append(result.FullyCovered, CoveredControl{
				ControlID:           target.ID,
				ControlName:         target.Name,
				CoveredBy:           covered,
				RelationshipSummary: "equivalent/broader mappings fully implemented",
			})
			return
		case len(covered) > 0:
			result.PartiallyCovered = append(result.PartiallyCovered, PartialControl{
				ControlID:           target.ID,
				ControlName:         target.Name,
				CoveredBy:           covered,
				MissingCoverage:     missing,
				RelationshipSummary: "some equivalent/broader mappings implemented",
			})
			return
		}
	}

	if len(narrower) > 0 {
		covered, missing := splitByImplemented(sourceSet(narrower), implemented)
		if len(covered) > 0 {
			result.PartiallyCovered = append(result.PartiallyCovered, PartialControl{
				ControlID:           target.ID,
				ControlName:         target.Name,
				CoveredBy:           covered,
				MissingCoverage:     missing,
				RelationshipSummary: "source controls are narrower than target; partial coverage inferred",
			})
			return
		}
	}

	if len(related) > 0 {
		result.Gaps = append(result.Gaps, GapControl{
			ControlID:   target.ID,
			ControlName: target.Name,
			Description: target.Description,
			Reason:      "Only related mappings exist; needs direct assessment in target framework",
			MappedFrom:  sortedKeys(sourceSet(related)),
		})
		return
	}

	result.Gaps = append(result.Gaps, GapControl{
		ControlID:   target.ID,
		ControlName: target.Name,
		Description: target.Description,
		Reason:      "Mapped controls not implemented",
		MappedFrom:  sortedKeys(allSources),
	})
}

func sourceSet(mappings []mapping.Mapping) map[string]bool {
	set := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		set[m.SourceControlID] = true
	}
	return set
}

func splitByImplemented(sources, implemented map[string]bool) (covered, missing []string) {
	for id := range sources {
		if implemented[id] {
			covered = append(covered, id)
		} else {
			missing = append(missing, id)
		}
	}
	sort.Strings(covered)
	sort.Strings(missing)
	return covered, missing
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
