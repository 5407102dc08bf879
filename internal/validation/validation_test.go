package validation

import (
	"testing"
)

type sample struct {
	Name string `validate:"notblank"`
	Due  string `validate:"isodate"`
	Role string `validate:"omitempty,oneof=Hero Villain Ally"`
}

func TestValidateSample(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      sample
		failing []string
	}{
		{"valid", sample{Name: "Bruce", Due: "2025-01-31", Role: "Hero"}, nil},
		{"blank name", sample{Name: "   "}, []string{"Name"}},
		{"bad date", sample{Name: "x", Due: "31/01/2025"}, []string{"Due"}},
		{"empty date ok", sample{Name: "x", Due: ""}, nil},
		{"bad role", sample{Name: "x", Role: "Sidekick"}, []string{"Role"}},
		{"everything wrong", sample{Due: "nope", Role: "Eroe"}, []string{"Name", "Due", "Role"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate.Struct(tt.in)
			got := FailedFields(err)
			if len(got) != len(tt.failing) {
				t.Fatalf("failed fields = %v, want %v", got, tt.failing)
			}
			for i := range got {
				if got[i] != tt.failing[i] {
					t.Fatalf("failed fields = %v, want %v", got, tt.failing)
				}
				if !HasFailure(err, tt.failing[i]) {
					t.Errorf("HasFailure(%s) = false", tt.failing[i])
				}
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	if got := SanitizeText("  Buy\x00 milk\n "); got != "Buy milk" {
		t.Fatalf("SanitizeText = %q", got)
	}
	if FailedFields(nil) != nil {
		t.Fatal("nil error should have no failed fields")
	}
}
