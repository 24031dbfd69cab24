package toolset

import (
	"context"

	"github.com/compliance-oracle/sdk/gap"
	"github.com/compliance-oracle/sdk/mapping"
	"github.com/compliance-oracle/sdk/schema"
	"github.com/compliance-oracle/sdk/tool"
)

func compareFrameworksTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("compare_frameworks").
		SetDescription("Show cross-framework mappings for a control, either outgoing (where does this control map to) or reverse (which controls map to it).").
		SetTags([]string{"frameworks", "mapping"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"control_id":       schema.StringWithDesc("Control to find mappings for (e.g., 'PR.AC-03')"),
			"source_framework": schema.StringWithDesc("Framework of the source control").WithDefault(defaultFramework),
			"target_framework": schema.StringWithDesc("Framework to map to (optional, all registered frameworks if omitted)"),
			"reverse":          schema.BoolWithDefault(false).WithDesc("Find controls in other frameworks that map to this one"),
		}, "control_id")).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"source":      schema.Any(),
			"mappings":    schema.Array(schema.Any()),
			"total_count": schema.Int(),
		}, "source", "mappings", "total_count")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			controlID := input["control_id"].(string)
			sourceFw := stringArg(input, "source_framework", defaultFramework)
			targetFw := stringArg(input, "target_framework", "")

			var (
				mappings []mapping.Mapping
				err      error
			)
			if boolArg(input, "reverse", false) {
				mappings, err = deps.Mappings.ReverseMappings(ctx, sourceFw, controlID)
			} else {
				mappings, err = deps.Mappings.MappingsFor(ctx, sourceFw, controlID, targetFw)
			}
			if err != nil {
				return nil, err
			}

			list, err := jsonSlice(mappings)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"source": map[string]any{
					"framework":  sourceFw,
					"control_id": controlID,
				},
				"mappings":    list,
				"total_count": len(mappings),
			}, nil
		}))
}

func getFrameworkGapTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("get_framework_gap").
		SetDescription("Analyze what is needed to achieve compliance with a target framework given the current framework's compliance state: covered controls, partial coverage, and gaps.").
		SetTags([]string{"frameworks", "gap"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"current_framework":    schema.StringWithDesc("Framework the project is assessed against"),
			"target_framework":     schema.StringWithDesc("Framework to project coverage into"),
			"use_documented_state": schema.BoolWithDefault(true).WithDesc("Use documented compliance state instead of assuming full compliance"),
			"project_path":         schema.StringWithDesc("Path to project root").WithDefault(defaultProjectPath),
		}, "current_framework", "target_framework")).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"current_framework": schema.String(),
			"target_framework":  schema.String(),
			"fully_covered":     schema.Array(schema.Any()),
			"partially_covered": schema.Array(schema.Any()),
			"gaps":              schema.Array(schema.Any()),
			"summary":           schema.Any(),
		}, "current_framework", "target_framework", "summary")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			result, err := deps.Gaps.Analyze(ctx, gap.Request{
				CurrentFramework:   input["current_framework"].(string),
				TargetFramework:    input["target_framework"].(string),
				UseDocumentedState: boolArg(input, "use_documented_state", true),
				ProjectPath:        stringArg(input, "project_path", defaultProjectPath),
			})
			if err != nil {
				return nil, err
			}
			return jsonMap(result)
		}))
}
