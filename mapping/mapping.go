// Package mapping loads and synthesizes cross-framework control mappings.
// Explicit mapping documents are the authoritative source; when no document
// exists for an ordered framework pair, mappings are synthesized from the
// source controls' informative-reference text. Synthesis is heuristic and
// isolated here so downstream consumers never need to know a mapping's origin.
package mapping

import (
	"fmt"
)

// Relationship describes how a source control relates to a target control.
// The tiers carry coverage strength: equivalent and broader mappings are
// strong evidence, narrower mappings are structurally partial, and related
// mappings carry no coverage signal at all.
type Relationship string

const (
	// RelationshipEquivalent means the controls impose the same requirement.
	RelationshipEquivalent Relationship = "equivalent"

	// RelationshipBroader means the source control subsumes the target.
	RelationshipBroader Relationship = "broader"

	// RelationshipNarrower means the source control covers only part of the
	// target. A narrower source can never fully satisfy its target.
	RelationshipNarrower Relationship = "narrower"

	// RelationshipRelated means the controls are topically connected with no
	// claim of coverage. All synthesized mappings carry this tier.
	RelationshipRelated Relationship = "related"
)

// IsValid returns true if the relationship is valid.
func (r Relationship) IsValid() bool {
	switch r {
	case RelationshipEquivalent, RelationshipBroader, RelationshipNarrower, RelationshipRelated:
		return true
	default:
		return false
	}
}

// String returns the string representation of the relationship.
func (r Relationship) String() string {
	return string(r)
}

// AllRelationships returns every relationship tier.
func AllRelationships() []Relationship {
	return []Relationship{
		RelationshipEquivalent,
		RelationshipBroader,
		RelationshipNarrower,
		RelationshipRelated,
	}
}

// ParseRelationship normalizes a relationship string from a mapping document.
// Published crosswalks use varying vocabulary; "subset" and "superset" are
// accepted as synonyms, and anything unrecognized degrades to the weakest
// tier rather than failing the whole document.
func ParseRelationship(s string) Relationship {
	switch s {
	case "equivalent":
		return RelationshipEquivalent
	case "subset", "narrower":
		return RelationshipNarrower
	case "superset", "broader":
		return RelationshipBroader
	default:
		return RelationshipRelated
	}
}

// Mapping is one directed control mapping between two frameworks.
type Mapping struct {
	// SourceFrameworkID and SourceControlID identify the mapped-from control.
	SourceFrameworkID string `json:"source_framework_id"`
	SourceControlID   string `json:"source_control_id"`

	// TargetFrameworkID and TargetControlID identify the mapped-to control.
	TargetFrameworkID string `json:"target_framework_id"`
	TargetControlID   string `json:"target_control_id"`

	// Relationship is the coverage tier of this mapping.
	Relationship Relationship `json:"relationship"`
}

// Validate checks that the mapping has all required fields.
func (m Mapping) Validate() error {
	if m.SourceFrameworkID == "" {
		return fmt.Errorf("mapping missing source framework id")
	}
	if m.SourceControlID == "" {
		return fmt.Errorf("mapping missing source control id")
	}
	if m.TargetFrameworkID == "" {
		return fmt.Errorf("mapping missing target framework id")
	}
	if m.TargetControlID == "" {
		return fmt.Errorf("mapping missing target control id")
	}
	if !m.Relationship.IsValid() {
		return fmt.Errorf("mapping has invalid relationship %q", m.Relationship)
	}
	return nil
}
