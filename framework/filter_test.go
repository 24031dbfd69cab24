package framework

import "testing"

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"equality", `id == "PR.AC-01"`, false},
		{"prefix", `id.startsWith("PR.")`, false},
		{"keyword membership", `"identity" in keywords`, false},
		{"compound", `category_id == "PR.AC" && name.contains("credential")`, false},
		{"non-boolean output", `id`, true},
		{"unknown variable", `severity == "high"`, true},
		{"syntax error", `id ==`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileFilter(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("CompileFilter(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestFilterMatch(t *testing.T) {
	ctrl := Control{
		ID:          "PR.AC-01",
		Name:        "Identities and credentials are managed",
		Description: "Identities and credentials are issued and audited.",
		FunctionID:  "PR",
		CategoryID:  "PR.AC",
		Keywords:    []string{"identity", "credentials"},
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"id match", `id == "PR.AC-01"`, true},
		{"id mismatch", `id == "DE.CM-01"`, false},
		{"prefix", `id.startsWith("PR.AC")`, true},
		{"keyword present", `"identity" in keywords`, true},
		{"keyword absent", `"encryption" in keywords`, false},
		{"compound", `function_id == "PR" && name.contains("credential")`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := CompileFilter(tt.expr)
			if err != nil {
				t.Fatalf("CompileFilter(%q) error = %v", tt.expr, err)
			}
			got, err := f.Match(ctrl)
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterMatch_NilKeywords(t *testing.T) {
	f, err := CompileFilter(`"anything" in keywords`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.Match(Control{ID: "AC-1"})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if got {
		t.Error("empty keyword list should not match")
	}
}
