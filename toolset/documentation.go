package toolset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sdk "github.com/compliance-oracle/sdk"
	"github.com/compliance-oracle/sdk/schema"
	"github.com/compliance-oracle/sdk/state"
	"github.com/compliance-oracle/sdk/tool"
)

func statusValues() []any {
	statuses := state.AllControlStatuses()
	values := make([]any, len(statuses))
	for i, s := range statuses {
		values[i] = s.String()
	}
	return values
}

func evidenceTypeValues() []any {
	types := state.AllEvidenceTypes()
	values := make([]any, len(types))
	for i, t := range types {
		values[i] = t.String()
	}
	return values
}

func documentComplianceTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("document_compliance").
		SetDescription("Record that a control is satisfied (or partially satisfied) in the project's compliance state.").
		SetTags([]string{"documentation", "state"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"control_id":             schema.StringWithDesc("Control identifier (e.g., 'PR.DS-02')"),
			"status":                 schema.EnumWithDesc("Implementation status", statusValues()...),
			"framework":              schema.StringWithDesc("Framework ID").WithDefault(defaultFramework),
			"implementation_summary": schema.StringWithDesc("Brief description of how the control is satisfied"),
			"owner":                  schema.StringWithDesc("Team or person responsible"),
			"notes":                  schema.StringWithDesc("Additional notes or context"),
			"project_path":           schema.StringWithDesc("Path to project root").WithDefault(defaultProjectPath),
		}, "control_id", "status")).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"success":    schema.Bool(),
			"control_id": schema.String(),
			"status":     schema.String(),
			"message":    schema.String(),
		}, "success", "control_id", "status", "message")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			status, err := state.ParseControlStatus(input["status"].(string))
			if err != nil {
				return nil, sdk.NewValidationError("toolset.document_compliance", err)
			}
			controlID := input["control_id"].(string)
			frameworkID := stringArg(input, "framework", defaultFramework)

			store := deps.States.Store(stringArg(input, "project_path", defaultProjectPath))
			err = store.DocumentControl(ctx, state.ControlDocumentation{
				ControlID:             controlID,
				FrameworkID:           frameworkID,
				Status:                status,
				ImplementationSummary: stringArg(input, "implementation_summary", ""),
				Owner:                 stringArg(input, "owner", ""),
				Notes:                 stringArg(input, "notes", ""),
			})
			if err != nil {
				return nil, err
			}

			return map[string]any{
				"success":    true,
				"control_id": controlID,
				"framework":  frameworkID,
				"status":     status.String(),
				"message":    fmt.Sprintf("Control %s documented as %s", controlID, status),
			}, nil
		}))
}

func linkEvidenceTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("link_evidence").
		SetDescription("Add evidence to an already-documented control. Fails if the control has not been documented yet.").
		SetTags([]string{"documentation", "state"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"control_id":    schema.StringWithDesc("Control identifier (e.g., 'PR.DS-02')"),
			"evidence_type": schema.EnumWithDesc("Type of evidence", evidenceTypeValues()...),
			"path":          schema.StringWithDesc("File path (relative to project) or URL"),
			"description":   schema.StringWithDesc("What this evidence demonstrates"),
			"framework":     schema.StringWithDesc("Framework ID").WithDefault(defaultFramework),
			"line_start":    schema.Int().WithDesc("Start line number (for code/config evidence)"),
			"line_end":      schema.Int().WithDesc("End line number (for code/config evidence)"),
			"project_path":  schema.StringWithDesc("Path to project root").WithDefault(defaultProjectPath),
		}, "control_id", "evidence_type", "path", "description")).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"success":    schema.Bool(),
			"control_id": schema.String(),
			"message":    schema.String(),
		}, "success", "control_id", "message")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			controlID := input["control_id"].(string)
			evidence := state.Evidence{
				Type:        state.EvidenceType(input["evidence_type"].(string)),
				Path:        input["path"].(string),
				Description: input["description"].(string),
			}
			if start, end := intArg(input, "line_start", 0), intArg(input, "line_end", 0); start > 0 && end > 0 {
				evidence.LineRange = []int{start, end}
			}

			store := deps.States.Store(stringArg(input, "project_path", defaultProjectPath))
			frameworkID := stringArg(input, "framework", defaultFramework)
			if err := store.LinkEvidence(ctx, frameworkID, controlID, evidence); err != nil {
				return nil, err
			}

			return map[string]any{
				"success":       true,
				"control_id":    controlID,
				"evidence_type": evidence.Type.String(),
				"path":          evidence.Path,
				"message":       fmt.Sprintf("Evidence linked to %s", controlID),
			}, nil
		}))
}

func getDocumentationTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("get_documentation").
		SetDescription("Retrieve the project's current compliance documentation with summary statistics, optionally filtered by function, category, or status.").
		SetTags([]string{"documentation", "state"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"framework":        schema.StringWithDesc("Framework ID").WithDefault(defaultFramework),
			"function":         schema.StringWithDesc("Filter by function prefix (e.g., 'PR')"),
			"category":         schema.StringWithDesc("Filter by category prefix (e.g., 'PR.DS')"),
			"status":           schema.EnumWithDesc("Filter by status", statusValues()...),
			"include_evidence": schema.BoolWithDefault(false).WithDesc("Include evidence details"),
			"project_path":     schema.StringWithDesc("Path to project root").WithDefault(defaultProjectPath),
		})).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"framework": schema.String(),
			"controls":  schema.Array(schema.Any()),
		}, "framework", "controls")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			frameworkID := stringArg(input, "framework", defaultFramework)
			functionID := stringArg(input, "function", "")
			categoryID := stringArg(input, "category", "")
			statusFilter := stringArg(input, "status", "")
			includeEvidence := boolArg(input, "include_evidence", false)

			store := deps.States.Store(stringArg(input, "project_path", defaultProjectPath))
			docs, err := store.Documented(ctx, frameworkID)
			if err != nil {
				return nil, err
			}

			controls := []any{}
			for _, doc := range docs {
				if functionID != "" && !strings.HasPrefix(doc.ControlID, functionID) {
					continue
				}
				if categoryID != "" && !strings.HasPrefix(doc.ControlID, categoryID) {
					continue
				}
				if statusFilter != "" && doc.Status.String() != statusFilter {
					continue
				}
				entry, err := jsonMap(doc)
				if err != nil {
					return nil, err
				}
				if !includeEvidence {
					delete(entry, "evidence")
				}
				controls = append(controls, entry)
			}

			out := map[string]any{
				"framework": frameworkID,
				"controls":  controls,
			}

			summary, err := store.Summary(ctx, frameworkID)
			if err != nil {
				return nil, err
			}
			if summary != nil {
				summaryMap, err := jsonMap(summary)
				if err != nil {
					return nil, err
				}
				out["summary"] = summaryMap
			}

			if current, err := store.State(ctx); err == nil {
				out["generated_at"] = current.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
			}
			return out, nil
		}))
}

func exportDocumentationTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("export_documentation").
		SetDescription("Export compliance documentation as markdown or JSON, returning the content or writing it to a file under the project root.").
		SetTags([]string{"documentation", "export"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"format":           schema.EnumWithDesc("Output format", "markdown", "json").WithDefault("markdown"),
			"framework":        schema.StringWithDesc("Framework ID").WithDefault(defaultFramework),
			"include_evidence": schema.BoolWithDefault(true).WithDesc("Include evidence details"),
			"include_gaps":     schema.BoolWithDefault(true).WithDesc("Include undocumented controls"),
			"output_path":      schema.StringWithDesc("Where to write the file, relative to the project root (optional)"),
			"project_path":     schema.StringWithDesc("Path to project root").WithDefault(defaultProjectPath),
		})).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"format":    schema.String(),
			"framework": schema.String(),
		}, "format", "framework")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			format := state.ExportFormat(stringArg(input, "format", "markdown"))
			frameworkID := stringArg(input, "framework", defaultFramework)
			projectPath := stringArg(input, "project_path", defaultProjectPath)

			store := deps.States.Store(projectPath)
			content, err := store.Export(ctx, format, frameworkID, state.ExportOptions{
				IncludeEvidence: boolArg(input, "include_evidence", true),
				IncludeGaps:     boolArg(input, "include_gaps", true),
			})
			if err != nil {
				return nil, err
			}

			out := map[string]any{
				"format":    string(format),
				"framework": frameworkID,
			}

			if outputPath := stringArg(input, "output_path", ""); outputPath != "" {
				target := filepath.Join(projectPath, outputPath)
				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return nil, sdk.NewInternalError("toolset.export_documentation", err)
				}
				if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
					return nil, sdk.NewInternalError("toolset.export_documentation", err)
				}
				out["output_path"] = target
				out["message"] = fmt.Sprintf("Documentation exported to %s", outputPath)
			} else {
				out["content"] = content
			}
			return out, nil
		}))
}
