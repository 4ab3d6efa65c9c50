package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ddebug/internal/trace"
	"ddebug/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ddebug [path]",
	Short: "Minimize a program while preserving a compiler error",
	Long: `ddebug removes syntax-tree nodes from a source file for as long as the
project's build keeps reporting the same compiler error. path is the
project directory or the file to minimize (default: current directory).`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: preRun,
	RunE:              runReduce,
}

// cleanups run after the command finishes, whatever its outcome.
var cleanups []func()

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress the summary")
	pf.Bool("timings", false, "print phase timings")
	pf.String("config", "", "path to ddebug.toml (default: search upwards from the project)")
	pf.String("trace", "", "trace output file ('-' for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	pf.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file")
	pf.String("runtime-trace", "", "write a runtime trace to this file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context) (code int) {
	defer func() {
		if r := recover(); r != nil {
			dumpRing(os.Stderr)
			fmt.Fprintf(os.Stderr, "ddebug: panic: %v\n", r)
			code = exitFatal
		}
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	err := rootCmd.ExecuteContext(ctx)
	code = exitCode(err)
	if err != nil {
		if code == exitProcess || code == exitFatal {
			dumpRing(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
	}
	return code
}

func preRun(cmd *cobra.Command, _ []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}
	cleanupProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, cleanupProf)
	cleanupTrace, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, cleanupTrace)
	return nil
}

func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "auto":
		color.NoColor = !isTerminal(os.Stderr)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("%w: invalid --color value %q (expected auto|on|off)", errUsage, mode)
	}
	return nil
}

func dumpRing(w *os.File) {
	if activeRecorder == nil || activeRecorder.Ring() == nil {
		return
	}
	ring := activeRecorder.Ring()
	if len(ring.Events()) == 0 {
		return
	}
	fmt.Fprintln(w, "--- trace ring dump ---")
	if err := ring.Dump(w, trace.FormatText); err != nil {
		fmt.Fprintf(w, "trace: dump failed: %v\n", err)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int
}
