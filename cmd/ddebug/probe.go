package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ddebug/internal/buildpipeline"
	"ddebug/internal/diag"
	"ddebug/internal/observ"
)

var probeCmd = &cobra.Command{
	Use:   "probe [path]",
	Short: "Build the project once and show the error a reduction would preserve",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProbe,
}

func init() {
	f := probeCmd.Flags()
	f.String("target-error", "", "error to preserve (default: first error)")
	f.String("target-file", "", "file to minimize (default: the file of the target error)")
	f.String("language", "auto", "target language (auto|rust|go)")
	f.String("command", "", "build command overriding the language default")
	f.String("format", "auto", "build output format (auto|cargo-json|rustc|go)")
	f.Var(new(durationFlag), "timeout", "build timeout in seconds or as a duration (default 2m)")
	f.Bool("output", false, "also print the raw build output")
}

func runProbe(cmd *cobra.Command, args []string) error {
	inv, err := resolveInvocation(cmd, args)
	if err != nil {
		return err
	}
	timer := observ.NewTimer()
	res, err := buildpipeline.Probe(cmd.Context(), &buildpipeline.ProbeRequest{
		ProjectDir: inv.projectDir,
		TargetFile: inv.targetFile,
		Language:   inv.language,
		Config:     inv.cfg,
		Timer:      timer,
	})
	out := cmd.OutOrStdout()
	if res.Outcome != nil {
		if raw, _ := cmd.Flags().GetBool("output"); raw {
			fmt.Fprintf(out, "%s\n", strings.TrimSpace(string(res.Outcome.Output)))
		}
		printProbeOutput(out, res)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", color.New(color.Bold).Sprint("signature:"), res.Signature)
	fmt.Fprintf(out, "%s %s (%s)\n", color.New(color.Bold).Sprint("target:   "), res.TargetRel, res.Language)
	if showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings"); showTimings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	return nil
}

func printProbeOutput(w io.Writer, res buildpipeline.ProbeResult) {
	o := res.Outcome
	if len(res.Command) > 0 {
		fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprint("command:  "), strings.Join(res.Command, " "))
	}
	fmt.Fprintf(w, "%s exit %d in %s", color.New(color.Bold).Sprint("build:    "), o.ExitCode, o.Duration.Round(time.Millisecond))
	if o.Truncated {
		fmt.Fprint(w, " (output truncated)")
	}
	fmt.Fprintln(w)
	if o.Diagnostics == nil || o.Diagnostics.Len() == 0 {
		fmt.Fprintln(w, "no diagnostics")
		return
	}
	fmt.Fprintln(w, diag.FormatShort(o.Diagnostics.Items(), true))
}
