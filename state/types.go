// Package state persists per-project compliance documentation. Each project
// keeps one JSON state file under a hidden directory in its root; every
// mutation rewrites the file wholesale before returning, so callers may
// assume durability on success.
package state

import (
	"fmt"
	"time"
)

// ControlStatus is the implementation status recorded for a control.
type ControlStatus string

const (
	// StatusImplemented means the control is fully in place.
	StatusImplemented ControlStatus = "implemented"

	// StatusPartial means the control is partially in place.
	StatusPartial ControlStatus = "partial"

	// StatusPlanned means implementation is planned but not started.
	StatusPlanned ControlStatus = "planned"

	// StatusNotApplicable means the control does not apply to the project.
	// Not-applicable controls are excluded from completion math.
	StatusNotApplicable ControlStatus = "not_applicable"

	// StatusNotAddressed means the control has been looked at and explicitly
	// marked as unhandled. Undocumented controls land in this bucket too.
	StatusNotAddressed ControlStatus = "not_addressed"
)

// IsValid returns true if the status is valid.
func (s ControlStatus) IsValid() bool {
	switch s {
	case StatusImplemented, StatusPartial, StatusPlanned, StatusNotApplicable, StatusNotAddressed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s ControlStatus) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the status.
func (s ControlStatus) DisplayName() string {
	switch s {
	case StatusImplemented:
		return "Implemented"
	case StatusPartial:
		return "Partial"
	case StatusPlanned:
		return "Planned"
	case StatusNotApplicable:
		return "Not Applicable"
	case StatusNotAddressed:
		return "Not Addressed"
	default:
		return string(s)
	}
}

// AllControlStatuses returns every control status.
func AllControlStatuses() []ControlStatus {
	return []ControlStatus{
		StatusImplemented,
		StatusPartial,
		StatusPlanned,
		StatusNotApplicable,
		StatusNotAddressed,
	}
}

// ParseControlStatus parses a status string.
func ParseControlStatus(s string) (ControlStatus, error) {
	st := ControlStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid control status: %s", s)
	}
	return st, nil
}

// EvidenceType categorizes a piece of linked evidence.
type EvidenceType string

const (
	EvidenceConfig     EvidenceType = "config"
	EvidenceCode       EvidenceType = "code"
	EvidenceDocument   EvidenceType = "document"
	EvidenceURL        EvidenceType = "url"
	EvidenceScreenshot EvidenceType = "screenshot"
	EvidenceOther      EvidenceType = "other"
)

// IsValid returns true if the evidence type is valid.
func (e EvidenceType) IsValid() bool {
	switch e {
	case EvidenceConfig, EvidenceCode, EvidenceDocument, EvidenceURL, EvidenceScreenshot, EvidenceOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the evidence type.
func (e EvidenceType) String() string {
	return string(e)
}

// AllEvidenceTypes returns every evidence type.
func AllEvidenceTypes() []EvidenceType {
	return []EvidenceType{
		EvidenceConfig,
		EvidenceCode,
		EvidenceDocument,
		EvidenceURL,
		EvidenceScreenshot,
		EvidenceOther,
	}
}

// Evidence is one artifact backing a control's documented status.
type Evidence struct {
	// Type categorizes the artifact.
	Type EvidenceType `json:"type"`

	// Path is a file path or URL locating the artifact.
	Path string `json:"path"`

	// LineRange optionally narrows a file artifact to [start, end] lines.
	LineRange []int `json:"line_range,omitempty"`

	// Description explains what the artifact demonstrates.
	Description string `json:"description"`
}

// Validate checks evidence fields before they are persisted.
func (e Evidence) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("invalid evidence type: %s", e.Type)
	}
	if e.Path == "" {
		return fmt.Errorf("evidence path is required")
	}
	if e.LineRange != nil {
		if len(e.LineRange) != 2 {
			return fmt.Errorf("line range must be [start, end], got %v", e.LineRange)
		}
		if e.LineRange[0] < 1 || e.LineRange[1] < e.LineRange[0] {
			return fmt.Errorf("invalid line range %v", e.LineRange)
		}
	}
	return nil
}

// DerivedSource records one cross-framework mapping that contributed to a
// derived status.
type DerivedSource struct {
	FrameworkID  string `json:"framework_id"`
	ControlID    string `json:"control_id"`
	Relationship string `json:"relationship"`
}

// ControlDocumentation is the persisted record for a single control.
type ControlDocumentation struct {
	// ControlID and FrameworkID identify the control.
	ControlID   string `json:"control_id"`
	FrameworkID string `json:"framework_id"`

	// Status is the directly assessed implementation status.
	Status ControlStatus `json:"status"`

	// DerivedStatus, when set, is a status projected from crosswalk mappings
	// rather than direct assessment. DerivedSources lists the mappings that
	// contributed to it.
	DerivedStatus  *ControlStatus  `json:"derived_status,omitempty"`
	DerivedSources []DerivedSource `json:"derived_sources,omitempty"`

	// ImplementationSummary describes how the control is met.
	ImplementationSummary string `json:"implementation_summary,omitempty"`

	// Evidence backs the status claim.
	Evidence []Evidence `json:"evidence"`

	// Owner is the person or team responsible for the control.
	Owner string `json:"owner,omitempty"`

	// Notes holds free-form annotations.
	Notes string `json:"notes,omitempty"`

	// LastUpdated is set on every write.
	LastUpdated time.Time `json:"last_updated"`
}

// Key returns the state-map key for this record.
func (d ControlDocumentation) Key() string {
	return d.FrameworkID + ":" + d.ControlID
}

// Validate checks the record before it is persisted.
func (d ControlDocumentation) Validate() error {
	if d.FrameworkID == "" {
		return fmt.Errorf("framework id is required")
	}
	if d.ControlID == "" {
		return fmt.Errorf("control id is required")
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("invalid control status: %s", d.Status)
	}
	if d.DerivedStatus != nil && !d.DerivedStatus.IsValid() {
		return fmt.Errorf("invalid derived status: %s", *d.DerivedStatus)
	}
	for i, ev := range d.Evidence {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("evidence[%d]: %w", i, err)
		}
	}
	return nil
}

// ComplianceState is the full persisted state for one project.
type ComplianceState struct {
	// Version is the state document schema version.
	Version string `json:"version"`

	// ProjectName labels the project, informational only.
	ProjectName string `json:"project_name,omitempty"`

	// CreatedAt and UpdatedAt bracket the document's lifetime.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Controls holds documentation records keyed by "framework_id:control_id".
	Controls map[string]ControlDocumentation `json:"controls"`
}

// stateVersion is the current state document schema version.
const stateVersion = "1.0"

func newComplianceState(projectName string) *ComplianceState {
	now := time.Now().UTC()
	return &ComplianceState{
		Version:     stateVersion,
		ProjectName: projectName,
		CreatedAt:   now,
		UpdatedAt:   now,
		Controls:    make(map[string]ControlDocumentation),
	}
}

// Summary aggregates a project's documentation for one framework.
// The five status counts always sum to TotalControls.
type Summary struct {
	FrameworkID          string  `json:"framework_id"`
	TotalControls        int     `json:"total_controls"`
	Implemented          int     `json:"implemented"`
	Partial              int     `json:"partial"`
	Planned              int     `json:"planned"`
	NotApplicable        int     `json:"not_applicable"`
	NotAddressed         int     `json:"not_addressed"`
	CompletionPercentage float64 `json:"completion_percentage"`
}
