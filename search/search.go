// Package search provides semantic discovery over indexed framework
// controls. The core treats search as a capability: any provider satisfying
// monotonic similarity ordering works, and relevance scores are normalized
// into [0, 1].
package search

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/compliance-oracle/sdk/framework"
)

// Result is one search hit. RelevanceScore is in [0, 1], higher is more
// relevant.
type Result struct {
	ControlID      string  `json:"control_id"`
	ControlName    string  `json:"control_name"`
	Description    string  `json:"description"`
	FrameworkID    string  `json:"framework_id"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Provider indexes controls and answers similarity queries.
type Provider interface {
	// Index indexes every control of a framework, upserting previously
	// indexed ones. Returns the number of controls indexed.
	Index(ctx context.Context, frameworkID string) (int, error)

	// Search returns up to limit results ordered by descending relevance.
	// An empty frameworkID searches across every indexed framework.
	Search(ctx context.Context, query, frameworkID string, limit int) ([]Result, error)

	// IsIndexed reports whether a framework has any indexed controls.
	IsIndexed(ctx context.Context, frameworkID string) (bool, error)

	// Clear removes indexed controls, all of them when frameworkID is empty.
	// Returns the number removed.
	Clear(ctx context.Context, frameworkID string) (int, error)
}

// Embedder turns text into a dense vector. Implementations wrap whatever
// embedding model the deployment uses.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// maxIndexedReferences caps how many reference strings feed the embedding,
// long controls cite dozens and the tail adds noise.
const maxIndexedReferences = 5

// DocumentText builds the text that represents a control in the index:
// identity, description, hierarchy, implementation examples, a capped
// reference list, and keywords.
func DocumentText(ctrl framework.Control) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Control: %s - %s\n", ctrl.ID, ctrl.Name)
	fmt.Fprintf(&b, "Description: %s\n", ctrl.Description)
	fmt.Fprintf(&b, "Function: %s\n", ctrl.FunctionName)
	fmt.Fprintf(&b, "Category: %s", ctrl.CategoryName)

	if len(ctrl.ImplementationExamples) > 0 {
		b.WriteString("\nImplementation Examples:")
		for _, example := range ctrl.ImplementationExamples {
			b.WriteString("\n- " + example)
		}
	}

	if len(ctrl.InformativeReferences) > 0 {
		b.WriteString("\nReferences:")
		refs := ctrl.InformativeReferences
		if len(refs) > maxIndexedReferences {
			refs = refs[:maxIndexedReferences]
		}
		for _, ref := range refs {
			b.WriteString("\n- " + ref)
		}
	}

	if len(ctrl.Keywords) > 0 {
		b.WriteString("\nKeywords: " + strings.Join(ctrl.Keywords, ", "))
	}

	return b.String()
}

// clampScore normalizes a cosine similarity in [-1, 1] to a relevance score
// in [0, 1].
func clampScore(similarity float64) float64 {
	score := (similarity + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// cosine computes the cosine similarity of two vectors. Mismatched lengths
// or zero vectors yield 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
