package mapping

import "testing"

func TestParseRelationship(t *testing.T) {
	tests := []struct {
		in   string
		want Relationship
	}{
		{"equivalent", RelationshipEquivalent},
		{"narrower", RelationshipNarrower},
		{"subset", RelationshipNarrower},
		{"broader", RelationshipBroader},
		{"superset", RelationshipBroader},
		{"related", RelationshipRelated},
		{"", RelationshipRelated},
		{"garbage", RelationshipRelated},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseRelationship(tt.in); got != tt.want {
				t.Errorf("ParseRelationship(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestRelationshipIsValid(t *testing.T) {
	for _, r := range AllRelationships() {
		if !r.IsValid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Relationship("subset").IsValid() {
		t.Error("synonyms are not valid canonical relationships")
	}
}

func TestMappingValidate(t *testing.T) {
	valid := Mapping{
		SourceFrameworkID: "nist-csf-2.0",
		SourceControlID:   "PR.AC-01",
		TargetFrameworkID: "nist-800-53-r5",
		TargetControlID:   "AC-2",
		Relationship:      RelationshipEquivalent,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Mapping)
	}{
		{"missing source framework", func(m *Mapping) { m.SourceFrameworkID = "" }},
		{"missing source control", func(m *Mapping) { m.SourceControlID = "" }},
		{"missing target framework", func(m *Mapping) { m.TargetFrameworkID = "" }},
		{"missing target control", func(m *Mapping) { m.TargetControlID = "" }},
		{"invalid relationship", func(m *Mapping) { m.Relationship = "sideways" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			if err := m.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestExtractControlIDs(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want []string
	}{
		{
			name: "multiple ids",
			ref:  "NIST SP 800-53 Rev. 5: AC-1, AC-2, SC-28",
			want: []string{"AC-1", "AC-2", "SC-28"},
		},
		{
			name: "enhancement",
			ref:  "See AC-2(1) and AC-2(13)",
			want: []string{"AC-2(1)", "AC-2(13)"},
		},
		{
			name: "base and enhancement stay distinct",
			ref:  "NIST SP 800-53 Rev. 5: AC-2, AC-2(1), SC-28(1)",
			want: []string{"AC-2", "AC-2(1)", "SC-28(1)"},
		},
		{
			name: "no ids",
			ref:  "CIS Controls v8",
			want: nil,
		},
		{
			name: "empty",
			ref:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractControlIDs(tt.ref)
			if len(got) != len(tt.want) {
				t.Fatalf("extractControlIDs(%q) = %v, want %v", tt.ref, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("id[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMentionsAny(t *testing.T) {
	tokens := []string{"800-53", "SP 800-53"}

	if !mentionsAny("NIST SP 800-53 Rev. 5: AC-1", tokens) {
		t.Error("reference citing the publication should match")
	}
	if mentionsAny("ISO/IEC 27001:2022 A.5.15", tokens) {
		t.Error("unrelated reference should not match")
	}
	if mentionsAny("NIST SP 800-53 Rev. 5: AC-1", nil) {
		t.Error("empty token list should never match")
	}
}
