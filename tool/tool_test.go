package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/compliance-oracle/sdk/schema"
)

func echoTool(t *testing.T, name string) Tool {
	t.Helper()
	tl, err := New(NewConfig().
		SetName(name).
		SetDescription("echoes its input").
		SetTags([]string{"test"}).
		SetInputSchema(schema.Object(map[string]schema.JSON{
			"message": schema.String(),
		}, "message")).
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"message": schema.String(),
		}, "message")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			return map[string]any{"message": input["message"]}, nil
		}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tl
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"missing name", NewConfig().SetExecuteFunc(func(ctx context.Context, in map[string]any) (map[string]any, error) {
			return nil, nil
		})},
		{"missing execute func", NewConfig().SetName("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestExecute_SchemaValidation(t *testing.T) {
	tl := echoTool(t, "echo")
	ctx := context.Background()

	out, err := tl.Execute(ctx, map[string]any{"message": "hello"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out["message"] != "hello" {
		t.Errorf("output = %v", out)
	}

	// Missing required input field.
	if _, err := tl.Execute(ctx, map[string]any{}); err == nil {
		t.Error("missing required input should fail")
	}

	// Wrong input type.
	if _, err := tl.Execute(ctx, map[string]any{"message": 42}); err == nil {
		t.Error("wrong input type should fail")
	}
}

func TestExecute_OutputValidation(t *testing.T) {
	tl, err := New(NewConfig().
		SetName("bad-output").
		SetOutputSchema(schema.Object(map[string]schema.JSON{
			"count": schema.Int(),
		}, "count")).
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			return map[string]any{"count": "not a number"}, nil
		}))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tl.Execute(context.Background(), map[string]any{}); err == nil {
		t.Error("schema-violating output should fail")
	}
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if err := r.Register(echoTool(t, "echo")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(echoTool(t, "echo")); err == nil {
		t.Error("duplicate registration should fail")
	}
	if err := r.Register(echoTool(t, "another")); err != nil {
		t.Fatal(err)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "another" || names[1] != "echo" {
		t.Errorf("names = %v", names)
	}

	descriptors := r.Descriptors()
	if len(descriptors) != 2 || descriptors[1].Name != "echo" {
		t.Errorf("descriptors = %+v", descriptors)
	}
	if descriptors[1].Description != "echoes its input" {
		t.Errorf("description = %s", descriptors[1].Description)
	}

	if _, ok := r.Get("echo"); !ok {
		t.Error("registered tool should be resolvable")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("unregistered tool should not resolve")
	}
}

func TestRegistry_Invoke(t *testing.T) {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Register(echoTool(t, "echo")); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	out, err := r.Invoke(ctx, "echo", map[string]any{"message": "hi"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if out["message"] != "hi" {
		t.Errorf("output = %v", out)
	}

	if _, err := r.Invoke(ctx, "missing", nil); err == nil {
		t.Error("invoking an unregistered tool should fail")
	}
}

func TestRegistry_InvokePropagatesToolError(t *testing.T) {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	tl, err := New(NewConfig().
		SetName("failing").
		SetExecuteFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			return nil, boom
		}))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Register(tl); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Invoke(context.Background(), "failing", map[string]any{}); !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
}
