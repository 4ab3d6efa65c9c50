// Package config loads ddebug.toml and resolves the effective settings of a
// reduction run. Values from command-line flags override the file, which
// overrides the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"ddebug/internal/diag"
	"ddebug/internal/syntax"
)

// FileName is the configuration file looked up from the project directory
// upwards.
const FileName = "ddebug.toml"

// ErrConfig is wrapped by every configuration error.
var ErrConfig = errors.New("invalid configuration")

// Duration is a time.Duration written as a Go duration string ("90s").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config mirrors the layout of ddebug.toml.
type Config struct {
	Oracle    OracleConfig    `toml:"oracle"`
	Search    SearchConfig    `toml:"search"`
	Workspace WorkspaceConfig `toml:"workspace"`
}

type OracleConfig struct {
	// Command overrides the language default; {dir} and {cache} are
	// substituted per trial.
	Command     []string          `toml:"command"`
	Format      string            `toml:"format"`
	Timeout     Duration          `toml:"timeout"`
	Env         map[string]string `toml:"env"`
	MaxOutput   int               `toml:"max_output"`
	TargetError string            `toml:"target_error"`
	Language    string            `toml:"language"`
}

type SearchConfig struct {
	Concurrency int      `toml:"concurrency"`
	MaxPasses   int      `toml:"max_passes"`
	SizeMetric  string   `toml:"size_metric"`
	Grace       Duration `toml:"grace"`
	TimeBudget  Duration `toml:"time_budget"`
}

type WorkspaceConfig struct {
	Exclude    []string `toml:"exclude"`
	TempDir    string   `toml:"temp_dir"`
	TargetFile string   `toml:"target_file"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Oracle: OracleConfig{
			Format:    "auto",
			Timeout:   Duration(2 * time.Minute),
			MaxOutput: 8 << 20,
		},
		Search: SearchConfig{
			Concurrency: 1,
			SizeMetric:  "bytes",
			Grace:       Duration(5 * time.Second),
		},
		Workspace: WorkspaceConfig{
			Exclude: []string{".git", "target"},
		},
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: failed to parse TOML: %w", ErrConfig, path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%w: %s: unknown keys %s", ErrConfig, path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("oracle", "command") && len(cfg.Oracle.Command) == 0 {
		return Config{}, fmt.Errorf("%w: %s: [oracle].command is empty", ErrConfig, path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds and loads the configuration for a project. The returned
// path is empty when no file exists and the defaults are in effect.
func Discover(projectDir string) (Config, string, error) {
	path, ok, err := Find(projectDir)
	if err != nil {
		return Config{}, "", fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Search.Concurrency < 1 {
		return fmt.Errorf("%w: [search].concurrency must be >= 1, got %d", ErrConfig, c.Search.Concurrency)
	}
	if c.Search.MaxPasses < 0 {
		return fmt.Errorf("%w: [search].max_passes must be >= 0, got %d", ErrConfig, c.Search.MaxPasses)
	}
	if _, err := syntax.ParseSizeMetric(c.Search.SizeMetric); err != nil {
		return fmt.Errorf("%w: [search].size_metric: %w", ErrConfig, err)
	}
	if c.Search.Grace < 0 || c.Search.TimeBudget < 0 {
		return fmt.Errorf("%w: [search] durations must not be negative", ErrConfig)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("%w: [oracle].timeout must be positive", ErrConfig)
	}
	if c.Oracle.MaxOutput < 0 {
		return fmt.Errorf("%w: [oracle].max_output must not be negative", ErrConfig)
	}
	if _, err := diag.ParseFormat(c.Oracle.Format); err != nil {
		return fmt.Errorf("%w: [oracle].format: %w", ErrConfig, err)
	}
	if c.Oracle.TargetError != "" {
		if _, err := diag.ParseSignature(c.Oracle.TargetError); err != nil {
			return fmt.Errorf("%w: [oracle].target_error: %w", ErrConfig, err)
		}
	}
	for k := range c.Oracle.Env {
		if k == "" || strings.ContainsAny(k, "= ") {
			return fmt.Errorf("%w: [oracle.env] has an invalid variable name %q", ErrConfig, k)
		}
	}
	return nil
}

// EnvList returns the [oracle.env] table as sorted KEY=VALUE entries.
func (c *Config) EnvList() []string {
	out := make([]string, 0, len(c.Oracle.Env))
	for k, v := range c.Oracle.Env {
		out = append(out, k+"="+v)
	}
	slices.Sort(out)
	return out
}
