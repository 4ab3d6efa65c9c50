package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ddebug/internal/config"
	"ddebug/internal/grammar"
)

func init() {
	registerReduceFlags(rootCmd.Flags())
}

func registerReduceFlags(f *pflag.FlagSet) {
	f.String("target-error", "", `error to preserve: "E0384", "E0384: message" or a message fragment (default: first error)`)
	f.String("target-file", "", "file to minimize (default: the file of the target error)")
	f.String("language", "auto", "target language (auto|rust|go)")
	f.String("command", "", "build command overriding the language default; {dir} and {cache} are substituted")
	f.String("format", "auto", "build output format (auto|cargo-json|rustc|go)")
	f.Var(new(durationFlag), "timeout", "per-build timeout in seconds or as a duration (default 2m)")
	f.Int("concurrency", 1, "builds run in parallel")
	f.Int("max-passes", 0, "stop after this many passes (0 = until no more removals)")
	f.String("size-metric", "bytes", "candidate ordering (bytes|descendants)")
	f.Var(new(durationFlag), "grace", "time in-flight builds may finish after a stop (default 5s)")
	f.Var(new(durationFlag), "time-budget", "stop the reduction after this long and keep the partial result")
	f.StringP("output", "o", "", "write the minimized program here instead of stdout")
	f.Bool("write", false, "replace the target file with the minimized program")
	f.Bool("yes", false, "do not ask before --write replaces the target file")
	f.String("report", "", "write a session report (.json for JSON, msgpack otherwise)")
	f.String("ui", "auto", "progress view (auto|on|off)")
	f.BoolP("verbose", "v", false, "list declarations kept because live code refers to them")
}

// durationFlag is a duration flag that also takes plain seconds: "30" and
// "30s" are the same value. It reports the "duration" type so GetDuration
// reads it.
type durationFlag time.Duration

func (d *durationFlag) String() string { return time.Duration(*d).String() }

func (d *durationFlag) Type() string { return "duration" }

func (d *durationFlag) Set(s string) error {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		*d = durationFlag(secs * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%q is neither seconds nor a duration", s)
	}
	*d = durationFlag(v)
	return nil
}

// invocation is the resolved command line shared by the root and probe
// commands.
type invocation struct {
	projectDir string
	targetFile string
	configPath string
	language   grammar.Language
	cfg        config.Config
}

// resolveInvocation locates the project, loads its configuration and applies
// the flags on top.
func resolveInvocation(cmd *cobra.Command, args []string) (*invocation, error) {
	inv := &invocation{projectDir: "."}
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}
		if info.IsDir() {
			inv.projectDir = args[0]
		} else {
			inv.targetFile, _ = filepath.Abs(args[0])
			inv.projectDir = projectRoot(filepath.Dir(inv.targetFile))
		}
	}

	configPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		inv.cfg, err = config.Load(configPath)
		inv.configPath = configPath
	} else {
		inv.cfg, inv.configPath, err = config.Discover(inv.projectDir)
	}
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, inv); err != nil {
		return nil, err
	}
	return inv, inv.cfg.Validate()
}

// projectRoot walks up from dir to the nearest build manifest; dir itself
// when there is none.
func projectRoot(dir string) string {
	for cur := dir; ; {
		for _, name := range []string{"Cargo.toml", "go.mod"} {
			if _, err := os.Stat(filepath.Join(cur, name)); err == nil {
				return cur
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

// applyFlags overrides configuration values with the flags that were set.
func applyFlags(cmd *cobra.Command, inv *invocation) error {
	f := cmd.Flags()
	cfg := &inv.cfg
	var errs []error
	str := func(name string, dst *string) {
		if f.Lookup(name) == nil || !f.Changed(name) {
			return
		}
		v, err := f.GetString(name)
		errs = append(errs, err)
		*dst = v
	}
	num := func(name string, dst *int) {
		if f.Lookup(name) == nil || !f.Changed(name) {
			return
		}
		v, err := f.GetInt(name)
		errs = append(errs, err)
		*dst = v
	}
	dur := func(name string, dst *config.Duration) {
		if f.Lookup(name) == nil || !f.Changed(name) {
			return
		}
		v, err := f.GetDuration(name)
		errs = append(errs, err)
		*dst = config.Duration(v)
	}

	str("target-error", &cfg.Oracle.TargetError)
	str("format", &cfg.Oracle.Format)
	str("language", &cfg.Oracle.Language)
	str("size-metric", &cfg.Search.SizeMetric)
	dur("timeout", &cfg.Oracle.Timeout)
	dur("grace", &cfg.Search.Grace)
	dur("time-budget", &cfg.Search.TimeBudget)
	num("concurrency", &cfg.Search.Concurrency)
	num("max-passes", &cfg.Search.MaxPasses)

	var command string
	str("command", &command)
	if strings.TrimSpace(command) != "" {
		cfg.Oracle.Command = strings.Fields(command)
	}
	var targetFile string
	str("target-file", &targetFile)
	if targetFile != "" {
		inv.targetFile = targetFile
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	lang, err := grammar.ParseLanguage(cfg.Oracle.Language)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	inv.language = lang
	return nil
}
