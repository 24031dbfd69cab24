// Package toolset wires the compliance core into the agent-facing tool
// surface. Register builds every tool against a shared set of dependencies
// and adds them to a tool.Registry; the registry handles schema validation
// and instrumentation, the tools here only translate payloads.
package toolset

import (
	"encoding/json"
	"fmt"
	"log/slog"

	sdk "github.com/compliance-oracle/sdk"
	"github.com/compliance-oracle/sdk/assessment"
	"github.com/compliance-oracle/sdk/framework"
	"github.com/compliance-oracle/sdk/gap"
	"github.com/compliance-oracle/sdk/mapping"
	"github.com/compliance-oracle/sdk/search"
	"github.com/compliance-oracle/sdk/state"
	"github.com/compliance-oracle/sdk/tool"
)

// defaultFramework is assumed when a tool call names no framework.
const defaultFramework = "nist-csf-2.0"

// defaultProjectPath is assumed when a tool call names no project.
const defaultProjectPath = "."

// Deps carries everything the tools need. Frameworks, Mappings, States, and
// Gaps are required; Search and Context are optional, and tools depending on
// them fail with an unavailable error when absent. A nil Assessments is
// built from Frameworks.
type Deps struct {
	Frameworks  *framework.Manager
	Mappings    *mapping.Store
	States      *state.Manager
	Gaps        *gap.Engine
	Assessments *assessment.Generator
	Search      search.Provider
	Context     *search.ContextBuilder
	Logger      *slog.Logger
}

func (d *Deps) validate() error {
	if d.Frameworks == nil {
		return fmt.Errorf("framework manager is required")
	}
	if d.Mappings == nil {
		return fmt.Errorf("mapping store is required")
	}
	if d.States == nil {
		return fmt.Errorf("state manager is required")
	}
	if d.Gaps == nil {
		return fmt.Errorf("gap engine is required")
	}
	return nil
}

// Register builds the full tool surface and adds it to the registry.
func Register(registry *tool.Registry, deps Deps) error {
	if err := deps.validate(); err != nil {
		return sdk.NewConfigurationError("toolset.Register", err)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Assessments == nil {
		deps.Assessments = assessment.NewGenerator(deps.Frameworks)
	}
	if deps.Context == nil {
		deps.Context = search.NewContextBuilder(deps.Frameworks, deps.Search)
	}

	builders := []func(Deps) (tool.Tool, error){
		listFrameworksTool,
		listControlsTool,
		getControlDetailsTool,
		getGuidanceTool,
		searchControlsTool,
		getControlContextTool,
		documentComplianceTool,
		linkEvidenceTool,
		getDocumentationTool,
		exportDocumentationTool,
		compareFrameworksTool,
		getFrameworkGapTool,
		getAssessmentQuestionsTool,
	}

	for _, build := range builders {
		t, err := build(deps)
		if err != nil {
			return sdk.NewConfigurationError("toolset.Register", err)
		}
		if err := registry.Register(t); err != nil {
			return err
		}
	}

	deps.Logger.Info("tool surface registered", "tools", len(builders))
	return nil
}

// jsonMap converts a value to its plain-JSON map form so tool outputs carry
// only JSON-native types.
func jsonMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, sdk.NewInternalError("toolset.encode", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, sdk.NewInternalError("toolset.encode", err)
	}
	return out, nil
}

// jsonSlice converts a slice value to its plain-JSON form. A nil or empty
// input yields an empty, non-nil slice.
func jsonSlice(v any) ([]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, sdk.NewInternalError("toolset.encode", err)
	}
	out := []any{}
	if string(data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, sdk.NewInternalError("toolset.encode", err)
	}
	return out, nil
}

// stringArg reads an optional string argument, falling back to def when the
// argument is absent or empty.
func stringArg(input map[string]any, key, def string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}
	return def
}

// boolArg reads an optional bool argument.
func boolArg(input map[string]any, key string, def bool) bool {
	if v, ok := input[key].(bool); ok {
		return v
	}
	return def
}

// intArg reads an optional integer argument. JSON decoding yields float64,
// so both forms are accepted.
func intArg(input map[string]any, key string, def int) int {
	switch v := input[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}
