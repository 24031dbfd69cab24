package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	sdk "github.com/compliance-oracle/sdk"
)

// ExportFormat selects the export rendering.
type ExportFormat string

const (
	ExportMarkdown ExportFormat = "markdown"
	ExportJSON     ExportFormat = "json"
)

// IsValid returns true if the format is valid.
func (f ExportFormat) IsValid() bool {
	return f == ExportMarkdown || f == ExportJSON
}

// ExportOptions configure an export.
type ExportOptions struct {
	// IncludeEvidence includes each record's evidence list.
	IncludeEvidence bool

	// IncludeGaps appends the catalog controls with no record at all.
	IncludeGaps bool
}

// gapEntry is one undocumented control in an export.
type gapEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Function string `json:"function"`
	Category string `json:"category"`
}

// jsonExport is the JSON export envelope.
type jsonExport struct {
	ExportID    string                 `json:"export_id"`
	ExportDate  time.Time              `json:"export_date"`
	FrameworkID string                 `json:"framework_id"`
	Summary     *Summary               `json:"summary"`
	Controls    []ControlDocumentation `json:"controls"`
	Gaps        []gapEntry             `json:"gaps,omitempty"`
}

// Export renders the project's documentation for one framework. Each export
// carries a unique snapshot id so downstream audit trails can reference it.
func (s *Store) Export(ctx context.Context, format ExportFormat, frameworkID string, opts ExportOptions) (string, error) {
	if !format.IsValid() {
		return "", sdk.NewValidationError("state.Export",
			fmt.Errorf("unsupported export format: %s", format))
	}

	summary, err := s.Summary(ctx, frameworkID)
	if err != nil {
		return "", err
	}

	docs, err := s.Documented(ctx, frameworkID)
	if err != nil {
		return "", err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ControlID < docs[j].ControlID })

	var gaps []gapEntry
	if opts.IncludeGaps {
		missing, err := s.undocumented(ctx, frameworkID)
		if err != nil {
			return "", err
		}
		for _, ctrl := range missing {
			gaps = append(gaps, gapEntry{
				ID:       ctrl.ID,
				Name:     ctrl.Name,
				Function: ctrl.FunctionName,
				Category: ctrl.CategoryName,
			})
		}
	}

	if format == ExportJSON {
		return renderJSON(frameworkID, summary, docs, gaps, opts)
	}
	return renderMarkdown(frameworkID, summary, docs, gaps, opts), nil
}

func renderJSON(frameworkID string, summary *Summary, docs []ControlDocumentation, gaps []gapEntry, opts ExportOptions) (string, error) {
	if !opts.IncludeEvidence {
		for i := range docs {
			docs[i].Evidence = nil
		}
	}

	out := jsonExport{
		ExportID:    uuid.NewString(),
		ExportDate:  time.Now().UTC(),
		FrameworkID: frameworkID,
		Summary:     summary,
		Controls:    docs,
		Gaps:        gaps,
	}
	if out.Controls == nil {
		out.Controls = []ControlDocumentation{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export: %w", err)
	}
	return string(data), nil
}

// statusSectionOrder fixes the markdown section ordering.
var statusSectionOrder = []ControlStatus{
	StatusImplemented,
	StatusPartial,
	StatusPlanned,
	StatusNotApplicable,
	StatusNotAddressed,
}

func renderMarkdown(frameworkID string, summary *Summary, docs []ControlDocumentation, gaps []gapEntry, opts ExportOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Compliance Documentation: %s\n\n", frameworkID)
	fmt.Fprintf(&b, "*Generated: %s*\n\n", time.Now().UTC().Format(time.RFC3339))

	if summary != nil {
		b.WriteString("## Summary\n\n")
		fmt.Fprintf(&b, "- **Total Controls**: %d\n", summary.TotalControls)
		fmt.Fprintf(&b, "- **Implemented**: %d\n", summary.Implemented)
		fmt.Fprintf(&b, "- **Partial**: %d\n", summary.Partial)
		fmt.Fprintf(&b, "- **Planned**: %d\n", summary.Planned)
		fmt.Fprintf(&b, "- **Not Applicable**: %d\n", summary.NotApplicable)
		fmt.Fprintf(&b, "- **Not Addressed**: %d\n", summary.NotAddressed)
		fmt.Fprintf(&b, "- **Completion**: %.1f%%\n\n", summary.CompletionPercentage)
	}

	b.WriteString("## Documented Controls\n\n")

	byStatus := make(map[ControlStatus][]ControlDocumentation)
	for _, doc := range docs {
		byStatus[doc.Status] = append(byStatus[doc.Status], doc)
	}

	for _, status := range statusSectionOrder {
		section, ok := byStatus[status]
		if !ok {
			continue
		}

		fmt.Fprintf(&b, "### %s\n\n", status.DisplayName())
		for _, doc := range section {
			fmt.Fprintf(&b, "#### %s\n\n", doc.ControlID)

			if doc.ImplementationSummary != "" {
				b.WriteString(doc.ImplementationSummary + "\n\n")
			}
			if doc.Owner != "" {
				fmt.Fprintf(&b, "**Owner**: %s\n", doc.Owner)
			}
			if doc.Notes != "" {
				fmt.Fprintf(&b, "\n*Notes: %s*\n", doc.Notes)
			}

			if opts.IncludeEvidence && len(doc.Evidence) > 0 {
				b.WriteString("\n**Evidence**:\n\n")
				for _, ev := range doc.Evidence {
					lineInfo := ""
					if len(ev.LineRange) == 2 {
						lineInfo = fmt.Sprintf(" (lines %d-%d)", ev.LineRange[0], ev.LineRange[1])
					}
					fmt.Fprintf(&b, "- [%s] `%s`%s: %s\n", ev.Type, ev.Path, lineInfo, ev.Description)
				}
			}

			b.WriteString("\n")
		}
	}

	if opts.IncludeGaps && len(gaps) > 0 {
		b.WriteString("## Gaps (Not Addressed)\n\n")
		for _, gap := range gaps {
			fmt.Fprintf(&b, "- **%s**: %s\n", gap.ID, gap.Name)
		}
		b.WriteString("\n")
	}

	return b.String()
}
