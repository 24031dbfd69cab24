// Package tool defines the tool-call surface consumed by agents. Tools are
// schema-described operations over the compliance core; a Registry holds
// them, validates invocations, and instruments every call.
package tool

import (
	"context"

	"github.com/compliance-oracle/sdk/schema"
)

// Tool is one agent-invocable operation.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Version returns the semantic version of this tool.
	Version() string

	// Description returns a human-readable description of what this tool does.
	Description() string

	// Tags returns a list of tags for categorizing and discovering this tool.
	Tags() []string

	// InputSchema returns the JSON schema invocations are validated against.
	InputSchema() schema.JSON

	// OutputSchema returns the JSON schema of the tool's result.
	OutputSchema() schema.JSON

	// Execute runs the tool. Context is used for cancellation, deadlines,
	// and request-scoped values.
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Descriptor is the discovery view of a tool: everything an agent needs to
// decide whether and how to call it.
type Descriptor struct {
	Name         string      `json:"name"`
	Version      string      `json:"version"`
	Description  string      `json:"description"`
	Tags         []string    `json:"tags"`
	InputSchema  schema.JSON `json:"input_schema"`
	OutputSchema schema.JSON `json:"output_schema"`
}

// Describe builds a tool's descriptor.
func Describe(t Tool) Descriptor {
	return Descriptor{
		Name:         t.Name(),
		Version:      t.Version(),
		Description:  t.Description(),
		Tags:         t.Tags(),
		InputSchema:  t.InputSchema(),
		OutputSchema: t.OutputSchema(),
	}
}
