package framework

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Filter is a compiled CEL predicate over control fields. It lets callers of
// the list-controls tool express ad hoc selections beyond function/category
// filtering, e.g.:
//
//	id.startsWith("PR.AC") && "authentication" in keywords
//	category_id == "DE.CM" || name.contains("monitoring")
//
// Available variables: id, name, description, function_id, category_id
// (strings) and keywords (list of strings).
type Filter struct {
	expr string
	prg  cel.Program
}

// CompileFilter compiles a CEL filter expression. The expression must
// evaluate to a boolean.
func CompileFilter(expr string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("description", cel.StringType),
		cel.Variable("function_id", cel.StringType),
		cel.Variable("category_id", cel.StringType),
		cel.Variable("keywords", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating filter environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compiling filter %q: %w", expr, iss.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to a boolean, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building filter program: %w", err)
	}

	return &Filter{expr: expr, prg: prg}, nil
}

// Expr returns the source expression.
func (f *Filter) Expr() string {
	return f.expr
}

// Match evaluates the filter against a control.
func (f *Filter) Match(c Control) (bool, error) {
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	out, _, err := f.prg.Eval(map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"description": c.Description,
		"function_id": c.FunctionID,
		"category_id": c.CategoryID,
		"keywords":    keywords,
	})
	if err != nil {
		return false, fmt.Errorf("evaluating filter %q: %w", f.expr, err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned non-boolean %T", f.expr, out.Value())
	}
	return b, nil
}
