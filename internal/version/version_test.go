// ABOUTME: Tests for version constants
// ABOUTME: Ensures the strings the CLIs print are set and sensible
package version

import (
	"strings"
	"testing"
)

func TestStringsDefined(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Version", Version},
		{"Product", Product},
		{"Manufacturer", Manufacturer},
	}

	for _, tt := range tests {
		if tt.value == "" {
			t.Errorf("%s should not be empty", tt.name)
		}
		if len(tt.value) > 100 {
			t.Errorf("%s is unreasonably long", tt.name)
		}
		if strings.TrimSpace(tt.value) != tt.value {
			t.Errorf("%s has surrounding whitespace", tt.name)
		}
	}
}

func TestVersionIsSemver(t *testing.T) {
	parts := strings.Split(Version, ".")
	if len(parts) != 3 {
		t.Fatalf("expected major.minor.patch, got %q", Version)
	}
	for _, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			t.Errorf("non-numeric version component %q in %q", p, Version)
		}
	}
}
