package framework

// Status represents the lifecycle status of a framework in the registry.
type Status string

const (
	// StatusActive means the framework's catalog document is installed.
	StatusActive Status = "active"

	// StatusPlanned means the framework is registered but its catalog
	// document is not installed yet.
	StatusPlanned Status = "planned"

	// StatusDeprecated means the framework remains browsable but should not
	// be used for new assessments.
	StatusDeprecated Status = "deprecated"
)

// IsValid returns true if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPlanned, StatusDeprecated:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Info describes a framework known to the registry. It is derived on each
// listing from the registry entry and the presence of the catalog document;
// it is never persisted.
type Info struct {
	// ID is the unique framework identifier (e.g., "nist-csf-2.0").
	ID string `json:"id"`

	// Name is the human-readable framework name.
	Name string `json:"name"`

	// Version is the framework version string.
	Version string `json:"version"`

	// Status is the lifecycle status derived from document presence.
	Status Status `json:"status"`

	// Description summarizes the framework's purpose.
	Description string `json:"description,omitempty"`

	// SourceURL points at the authoritative upstream publication.
	SourceURL string `json:"source_url,omitempty"`

	// ControlCount is the number of controls in the installed catalog,
	// zero when the catalog is not installed.
	ControlCount int `json:"control_count"`
}

// Function is a top-level grouping in a framework (e.g., PROTECT, DETECT).
// For family-organized frameworks the family doubles as the function.
type Function struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Category is a grouping within a function (e.g., PR.AC - Access Control).
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	FunctionID  string `json:"function_id"`
}

// Control is a single auditable requirement within a framework.
// Controls are immutable once loaded from a catalog document.
type Control struct {
	// ID is the control identifier, unique within its framework
	// (e.g., "PR.AC-01", "AC-2(1)").
	ID string `json:"id"`

	// Name is the control title.
	Name string `json:"name"`

	// Description states what the control requires.
	Description string `json:"description"`

	// FrameworkID is the owning framework.
	FrameworkID string `json:"framework_id"`

	// FunctionID and FunctionName identify the parent function (or family).
	FunctionID   string `json:"function_id"`
	FunctionName string `json:"function_name"`

	// CategoryID and CategoryName identify the parent category. For
	// family-organized frameworks these mirror the function fields.
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`

	// ImplementationExamples are illustrative implementation notes.
	ImplementationExamples []string `json:"implementation_examples,omitempty"`

	// InformativeReferences are free-text citations which may embed other
	// frameworks' control identifiers.
	InformativeReferences []string `json:"informative_references,omitempty"`

	// Keywords aid discovery.
	Keywords []string `json:"keywords,omitempty"`
}

// ControlDetails augments Control with cheap, catalog-local context.
type ControlDetails struct {
	Control

	// RelatedControls lists other controls sharing the same category.
	RelatedControls []string `json:"related_controls"`

	// Mappings holds informative-reference strings believed to cite another
	// framework, keyed by that framework's id. This is a text heuristic,
	// not the authoritative mapping store.
	Mappings map[string][]string `json:"mappings"`
}
