package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredKeepsText(t *testing.T) {
	color.NoColor = true
	orig := Version
	t.Cleanup(func() { Version = orig })

	tests := []struct {
		in, want string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"1.2.3-rc.1+build.123", "1.2.3-rc.1+build.123"},
		{"nightly", "nightly"},
		{"  ", "dev"},
	}
	for _, tt := range tests {
		Version = tt.in
		if got := Colored(); got != tt.want {
			t.Errorf("Colored(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCommitPrefersLinkerValue(t *testing.T) {
	orig := GitCommit
	t.Cleanup(func() { GitCommit = orig })
	GitCommit = "abc123def456"
	if got := Commit(); got != "abc123def456" {
		t.Fatalf("Commit = %q", got)
	}
}
