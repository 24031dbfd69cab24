package toolset

import (
	"context"

	"github.com/compliance-oracle/sdk/framework"
	"github.com/compliance-oracle/sdk/schema"
	"github.com/compliance-oracle/sdk/tool"
)

func listFrameworksTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("list_frameworks").
		SetDescription("List all available compliance frameworks with their status and control counts.").
		SetTags([]string{"frameworks", "lookup"}).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"frameworks":  schema.Array(schema.Any()),
			"total_count": schema.Int(),
		}, "frameworks", "total_count")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			infos, err := deps.Frameworks.ListFrameworks(ctx)
			if err != nil {
				return nil, err
			}
			frameworks, err := jsonSlice(infos)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"frameworks":  frameworks,
				"total_count": len(infos),
			}, nil
		}))
}

func listControlsTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("list_controls").
		SetDescription("Browse controls in a compliance framework, optionally filtered by function, category, or a CEL expression.").
		SetTags([]string{"frameworks", "lookup"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"framework": schema.StringWithDesc("Framework ID (e.g., 'nist-csf-2.0')").WithDefault(defaultFramework),
			"function":  schema.StringWithDesc("Filter by function ID (e.g., 'PR', 'DE', 'GV')"),
			"category":  schema.StringWithDesc("Filter by category ID (e.g., 'PR.AC', 'DE.CM')"),
			"filter":    schema.StringWithDesc("CEL filter over id, name, description, keywords (e.g., description.contains('encryption'))"),
		})).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"framework_id": schema.String(),
			"controls":     schema.Array(schema.Any()),
			"total_count":  schema.Int(),
		}, "framework_id", "controls", "total_count")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			frameworkID := stringArg(input, "framework", defaultFramework)
			opts := framework.ListOptions{
				FunctionID: stringArg(input, "function", ""),
				CategoryID: stringArg(input, "category", ""),
			}
			if expr := stringArg(input, "filter", ""); expr != "" {
				filter, err := framework.CompileFilter(expr)
				if err != nil {
					return nil, err
				}
				opts.Filter = filter
			}

			controls, err := deps.Frameworks.ListControls(ctx, frameworkID, opts)
			if err != nil {
				return nil, err
			}
			list, err := jsonSlice(controls)
			if err != nil {
				return nil, err
			}
			out := map[string]any{
				"framework_id": frameworkID,
				"controls":     list,
				"total_count":  len(controls),
			}
			if opts.FunctionID != "" {
				out["function"] = opts.FunctionID
			}
			if opts.CategoryID != "" {
				out["category"] = opts.CategoryID
			}
			return out, nil
		}))
}

func getControlDetailsTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("get_control_details").
		SetDescription("Get full details for a specific control including implementation examples, informative references, and cross-framework citations.").
		SetTags([]string{"frameworks", "lookup"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"control_id": schema.StringWithDesc("Control identifier (e.g., 'PR.AC-01', 'GV.OC-01')"),
			"framework":  schema.StringWithDesc("Framework ID").WithDefault(defaultFramework),
		}, "control_id")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			frameworkID := stringArg(input, "framework", defaultFramework)
			details, err := deps.Frameworks.GetControlDetails(ctx, frameworkID, input["control_id"].(string))
			if err != nil {
				return nil, err
			}
			return jsonMap(details)
		}))
}

func getGuidanceTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("get_guidance").
		SetDescription("Get implementation guidance for a specific control: overview, key activities, and a checklist derived from the catalog's implementation examples.").
		SetTags([]string{"frameworks", "guidance"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"control_id":   schema.StringWithDesc("Control identifier (e.g., 'PR.AC-03')"),
			"framework":    schema.StringWithDesc("Framework ID").WithDefault(defaultFramework),
			"context":      schema.StringWithDesc("Optional context about the environment"),
			"detail_level": schema.EnumWithDesc("Guidance depth", "summary", "detailed", "checklist").WithDefault("detailed"),
		}, "control_id")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			frameworkID := stringArg(input, "framework", defaultFramework)
			level := stringArg(input, "detail_level", "detailed")

			details, err := deps.Frameworks.GetControlDetails(ctx, frameworkID, input["control_id"].(string))
			if err != nil {
				return nil, err
			}

			out := map[string]any{
				"control_id":   details.ID,
				"control_name": details.Name,
				"framework_id": details.FrameworkID,
				"description":  details.Description,
				"detail_level": level,
			}

			switch level {
			case "summary":
				out["implementation_guidance"] = map[string]any{
					"overview": details.Description,
				}
			case "checklist":
				items, err := jsonSlice(checklistItems(details))
				if err != nil {
					return nil, err
				}
				out["implementation_guidance"] = map[string]any{
					"overview":  details.Description,
					"checklist": items,
				}
			default:
				examples, err := jsonSlice(details.ImplementationExamples)
				if err != nil {
					return nil, err
				}
				references, err := jsonSlice(details.InformativeReferences)
				if err != nil {
					return nil, err
				}
				out["implementation_guidance"] = map[string]any{
					"overview":                details.Description,
					"implementation_examples": examples,
					"informative_references":  references,
				}
			}

			related, err := jsonSlice(details.RelatedControls)
			if err != nil {
				return nil, err
			}
			out["related_controls"] = related

			mappings, err := jsonMap(details.Mappings)
			if err != nil {
				return nil, err
			}
			out["cross_framework_mappings"] = mappings

			if environment := stringArg(input, "context", ""); environment != "" {
				out["environment_context"] = environment
			}
			return out, nil
		}))
}

// checklistItems turns a control's implementation examples into actionable
// checklist entries, falling back to the description when the catalog
// carries none.
func checklistItems(details *framework.ControlDetails) []map[string]any {
	examples := details.ImplementationExamples
	if len(examples) == 0 {
		examples = []string{details.Description}
	}
	items := make([]map[string]any, 0, len(examples))
	for _, example := range examples {
		items = append(items, map[string]any{
			"item": example,
			"done": false,
		})
	}
	return items
}
