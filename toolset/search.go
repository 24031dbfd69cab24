package toolset

import (
	"context"
	"fmt"

	sdk "github.com/compliance-oracle/sdk"
	"github.com/compliance-oracle/sdk/schema"
	"github.com/compliance-oracle/sdk/search"
	"github.com/compliance-oracle/sdk/tool"
)

func searchControlsTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("search_controls").
		SetDescription("Semantic search across compliance framework controls. Use this to find relevant controls for a topic, requirement, or implementation question.").
		SetTags([]string{"search"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"query":     schema.StringWithDesc("Natural language search query (e.g., 'encryption at rest', 'multi-factor authentication')"),
			"framework": schema.StringWithDesc("Limit search to one framework (optional)"),
			"limit":     schema.Int().WithDesc("Maximum number of results").WithDefault(10),
		}, "query")).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"query":         schema.String(),
			"results":       schema.Array(schema.Any()),
			"total_results": schema.Int(),
		}, "query", "results", "total_results")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if deps.Search == nil {
				return nil, sdk.NewUnavailableError("toolset.search_controls",
					fmt.Errorf("no search provider is configured"))
			}

			query := input["query"].(string)
			frameworkID := stringArg(input, "framework", "")
			limit := intArg(input, "limit", 10)

			results, err := deps.Search.Search(ctx, query, frameworkID, limit)
			if err != nil {
				return nil, err
			}
			list, err := jsonSlice(results)
			if err != nil {
				return nil, err
			}
			out := map[string]any{
				"query":         query,
				"results":       list,
				"total_results": len(results),
			}
			if frameworkID != "" {
				out["framework"] = frameworkID
			}
			return out, nil
		}))
}

func getControlContextTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("get_control_context").
		SetDescription("Get full context for a control: its catalog hierarchy, sibling controls in the same category, and semantically related controls.").
		SetTags([]string{"search", "lookup"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"control_id":       schema.StringWithDesc("Control identifier (e.g., 'PR.DS-01')"),
			"framework":        schema.StringWithDesc("Framework ID").WithDefault(defaultFramework),
			"include_siblings": schema.BoolWithDefault(true).WithDesc("Include other controls in the same category"),
			"include_related":  schema.BoolWithDefault(true).WithDesc("Include semantically related controls"),
		}, "control_id")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			controlContext, err := deps.Context.Build(ctx,
				stringArg(input, "framework", defaultFramework),
				input["control_id"].(string),
				search.ContextOptions{
					IncludeSiblings: boolArg(input, "include_siblings", true),
					IncludeRelated:  boolArg(input, "include_related", true),
				})
			if err != nil {
				return nil, err
			}
			return jsonMap(controlContext)
		}))
}
