package search

import (
	"context"

	"github.com/compliance-oracle/sdk/framework"
)

// ContextCatalogSource resolves controls and their catalog hierarchy.
type ContextCatalogSource interface {
	GetControlDetails(ctx context.Context, frameworkID, controlID string) (*framework.ControlDetails, error)
	ListControls(ctx context.Context, frameworkID string, opts framework.ListOptions) ([]framework.Control, error)
}

// HierarchyNode is one level of a control's catalog hierarchy.
type HierarchyNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SiblingControl is a control sharing the subject's category.
type SiblingControl struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RelatedControl is a semantically similar control.
type RelatedControl struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ControlContext bundles a control with its hierarchy, category siblings,
// and semantically related controls.
type ControlContext struct {
	Control   framework.ControlDetails `json:"control"`
	Hierarchy struct {
		FrameworkID string        `json:"framework_id"`
		Function    HierarchyNode `json:"function"`
		Category    HierarchyNode `json:"category"`
	} `json:"hierarchy"`
	Siblings []SiblingControl `json:"siblings,omitempty"`
	Related  []RelatedControl `json:"related,omitempty"`
}

// ContextOptions toggle the optional context sections.
type ContextOptions struct {
	IncludeSiblings bool
	IncludeRelated  bool
}

// maxRelated caps the related-control list.
const maxRelated = 5

// ContextBuilder assembles control contexts from the catalog and the search
// provider.
type ContextBuilder struct {
	catalogs ContextCatalogSource
	provider Provider
}

// NewContextBuilder creates a context builder. The provider may be nil, in
// which case related controls are omitted.
func NewContextBuilder(catalogs ContextCatalogSource, provider Provider) *ContextBuilder {
	return &ContextBuilder{catalogs: catalogs, provider: provider}
}

// Build resolves the full context for one control. A missing control
// propagates the catalog's not-found error.
func (b *ContextBuilder) Build(ctx context.Context, frameworkID, controlID string, opts ContextOptions) (*ControlContext, error) {
	details, err := b.catalogs.GetControlDetails(ctx, frameworkID, controlID)
	if err != nil {
		return nil, err
	}

	cc := &ControlContext{Control: *details}
	cc.Hierarchy.FrameworkID = frameworkID
	cc.Hierarchy.Function = HierarchyNode{ID: details.FunctionID, Name: details.FunctionName}
	cc.Hierarchy.Category = HierarchyNode{ID: details.CategoryID, Name: details.CategoryName}

	if opts.IncludeSiblings {
		siblings, err := b.catalogs.ListControls(ctx, frameworkID, framework.ListOptions{
			CategoryID: details.CategoryID,
		})
		if err != nil {
			return nil, err
		}
		cc.Siblings = []SiblingControl{}
		for _, s := range siblings {
			if s.ID != controlID {
				cc.Siblings = append(cc.Siblings, SiblingControl{ID: s.ID, Name: s.Name})
			}
		}
	}

	if opts.IncludeRelated && b.provider != nil {
		// Query with the control's own description, over-fetching one since
		// the control itself usually ranks first.
		similar, err := b.provider.Search(ctx, details.Description, frameworkID, maxRelated+1)
		if err != nil {
			return nil, err
		}
		cc.Related = []RelatedControl{}
		for _, r := range similar {
			if r.ControlID == controlID {
				continue
			}
			cc.Related = append(cc.Related, RelatedControl{
				ID:    r.ControlID,
				Name:  r.ControlName,
				Score: r.RelevanceScore,
			})
			if len(cc.Related) == maxRelated {
				break
			}
		}
	}

	return cc, nil
}
