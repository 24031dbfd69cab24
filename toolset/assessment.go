package toolset

import (
	"context"

	"github.com/compliance-oracle/sdk/assessment"
	"github.com/compliance-oracle/sdk/schema"
	"github.com/compliance-oracle/sdk/tool"
)

func getAssessmentQuestionsTool(deps Deps) (tool.Tool, error) {
	return tool.New(tool.NewConfig().
		SetName("get_assessment_questions").
		SetDescription("Generate interview questions for assessing compliance posture, one status question per control in scope. Answers map directly to control statuses for document_compliance.").
		SetTags([]string{"assessment"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"framework":  schema.StringWithDesc("Framework ID").WithDefault(defaultFramework),
			"function":   schema.StringWithDesc("Narrow to one function (e.g., 'PR')"),
			"category":   schema.StringWithDesc("Narrow to one category (e.g., 'PR.AC')"),
			"control_id": schema.StringWithDesc("Narrow to a single control"),
		})).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"framework_id": schema.String(),
			"scope":        schema.String(),
			"questions":    schema.Array(schema.Any()),
		}, "framework_id", "scope", "questions")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			template, err := deps.Assessments.Generate(ctx, assessment.Request{
				FrameworkID: stringArg(input, "framework", defaultFramework),
				FunctionID:  stringArg(input, "function", ""),
				CategoryID:  stringArg(input, "category", ""),
				ControlID:   stringArg(input, "control_id", ""),
			})
			if err != nil {
				return nil, err
			}
			return jsonMap(template)
		}))
}
