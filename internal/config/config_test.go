package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "crates", "demo", "src")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got, ok, err := Find(nested)
	if err != nil || !ok || got != want {
		t.Fatalf("Find = %q, %v, %v; want %q", got, ok, err, want)
	}
}

func TestDiscoverWithoutFileUsesDefaults(t *testing.T) {
	cfg, path, err := Discover(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// A ddebug.toml further up the real filesystem would break this test.
	if path != "" {
		t.Skipf("found %s outside the test directory", path)
	}
	if cfg.Search.Concurrency != 1 || time.Duration(cfg.Oracle.Timeout) != 2*time.Minute {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[oracle]
command = ["cargo", "check", "--message-format=json"]
timeout = "45s"
target_error = "E0384"

[oracle.env]
RUSTFLAGS = "-Awarnings"
CARGO_TARGET_DIR = "{cache}"

[search]
concurrency = 4
time_budget = "10m"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.Concurrency != 4 || time.Duration(cfg.Search.TimeBudget) != 10*time.Minute {
		t.Fatalf("search = %+v", cfg.Search)
	}
	if time.Duration(cfg.Oracle.Timeout) != 45*time.Second || len(cfg.Oracle.Command) != 3 {
		t.Fatalf("oracle = %+v", cfg.Oracle)
	}
	// untouched keys keep their defaults
	if cfg.Search.SizeMetric != "bytes" || time.Duration(cfg.Search.Grace) != 5*time.Second || len(cfg.Workspace.Exclude) != 2 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	env := cfg.EnvList()
	if len(env) != 2 || env[0] != "CARGO_TARGET_DIR={cache}" || env[1] != "RUSTFLAGS=-Awarnings" {
		t.Fatalf("env = %q", env)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[search\n", "failed to parse TOML"},
		{"unknown key", "[search]\nworkers = 3\n", "unknown keys search.workers"},
		{"zero concurrency", "[search]\nconcurrency = 0\n", "concurrency"},
		{"bad metric", "[search]\nsize_metric = \"tokens\"\n", "size_metric"},
		{"bad duration", "[oracle]\ntimeout = \"soon\"\n", "failed to parse TOML"},
		{"empty command", "[oracle]\ncommand = []\n", "command is empty"},
		{"bad format", "[oracle]\nformat = \"xml\"\n", "format"},
		{"bad env", "[oracle.env]\n\"A=B\" = \"1\"\n", "invalid variable name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := Load(path)
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("err = %v, want ErrConfig", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
