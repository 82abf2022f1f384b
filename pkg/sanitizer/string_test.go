package sanitizer

import (
	"regexp"
	"strings"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim spaces", input: "  Juan Dela Cruz  ", want: "Juan Dela Cruz"},
		{name: "multiple spaces between words", input: "Juan    Cruz", want: "Juan Cruz"},
		{name: "tabs and newlines", input: "Juan\t\nCruz", want: "Juan Cruz"},
		{name: "empty string", input: "", want: ""},
		{name: "only whitespace", input: " \t ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFreeText(t *testing.T) {
	if got := SanitizeFreeText("  paid\x00 via  GCash\n ref 123 "); got != "paid via GCash ref 123" {
		t.Errorf("SanitizeFreeText() = %q", got)
	}

	long := strings.Repeat("a", MaxFreeTextLength+50)
	if got := SanitizeFreeText(long); len(got) != MaxFreeTextLength {
		t.Errorf("expected truncation to %d, got %d", MaxFreeTextLength, len(got))
	}
}

func TestNameSearchPattern(t *testing.T) {
	tests := []struct {
		query   string
		subject string
		match   bool
	}{
		{"juan cruz", "Juan Dela Cruz", true},
		{"JUAN", "juan dela cruz", true},
		{"cruz juan", "Juan Dela Cruz", false},
		{"maria", "Juan Dela Cruz", false},
		{"a.b", "axb", false},
		{"a.b", "A.B Travel", true},
	}

	for _, tt := range tests {
		t.Run(tt.query+"/"+tt.subject, func(t *testing.T) {
			pattern := NameSearchPattern(tt.query)
			if pattern == "" {
				t.Fatalf("expected a pattern for %q", tt.query)
			}
			if got := regexp.MustCompile(pattern).MatchString(tt.subject); got != tt.match {
				t.Errorf("pattern %q on %q = %v, want %v", pattern, tt.subject, got, tt.match)
			}
		})
	}

	if NameSearchPattern(" j ") != "" {
		t.Errorf("single character queries should be rejected")
	}
}
