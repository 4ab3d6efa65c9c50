package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ddebug/internal/buildpipeline"
	"ddebug/internal/observ"
	"ddebug/internal/report"
	"ddebug/internal/version"
)

func runReduce(cmd *cobra.Command, args []string) error {
	inv, err := resolveInvocation(cmd, args)
	if err != nil {
		return err
	}
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	uiValue, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	outputPath, _ := cmd.Flags().GetString("output")
	writeBack, _ := cmd.Flags().GetBool("write")
	assumeYes, _ := cmd.Flags().GetBool("yes")
	reportPath, _ := cmd.Flags().GetString("report")
	verbose, _ := cmd.Flags().GetBool("verbose")

	timer := observ.NewTimer()
	req := &buildpipeline.ReduceRequest{
		ProbeRequest: buildpipeline.ProbeRequest{
			ProjectDir: inv.projectDir,
			TargetFile: inv.targetFile,
			Language:   inv.language,
			Config:     inv.cfg,
			Timer:      timer,
		},
	}

	ctx := cmd.Context()
	var res buildpipeline.ReduceResult
	var runErr error
	if shouldUseTUI(mode, quiet) {
		res, runErr = runReduceWithUI(ctx, "ddebug: reducing", req)
	} else {
		res, runErr = buildpipeline.Reduce(ctx, req)
	}

	errOut := cmd.ErrOrStderr()
	if res.Result == nil {
		if res.Probe.Outcome != nil && !quiet {
			printProbeOutput(errOut, res.Probe)
		}
		return runErr
	}

	if err := emitResult(cmd, res, outputPath, writeBack, assumeYes); err != nil {
		return errors.Join(runErr, err)
	}
	if res.ValidateErr != nil {
		fmt.Fprintf(errOut, "%s the minimized program no longer parses: %v\n", color.YellowString("warning:"), res.ValidateErr)
	}
	if reportPath != "" {
		rep := report.New(res.Result, report.Meta{
			Tool:      "ddebug " + version.Version,
			Target:    res.Probe.TargetRel,
			Signature: res.Probe.Signature,
			Command:   res.Probe.Command,
			Timer:     timer,
		})
		if err := report.Write(reportPath, rep); err != nil {
			return errors.Join(runErr, fmt.Errorf("write report: %w", err))
		}
	}
	if !quiet {
		err := report.WriteSummary(errOut, res.Result, report.SummaryOptions{
			Signature: res.Probe.Signature,
			Target:    res.Probe.TargetRel,
			Verbose:   verbose,
		})
		if err != nil {
			return errors.Join(runErr, err)
		}
	}
	if showTimings {
		fmt.Fprint(errOut, timer.Summary())
	}
	return runErr
}

// emitResult sends the minimized program to stdout, --output or, after
// confirmation, back into the target file.
func emitResult(cmd *cobra.Command, res buildpipeline.ReduceResult, outputPath string, writeBack, assumeYes bool) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(res.Probe.TargetFile); err == nil {
		perm = info.Mode().Perm()
	}
	switch {
	case outputPath != "":
		if err := report.WriteFileAtomic(outputPath, res.Content, perm); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	case !writeBack:
		if _, err := cmd.OutOrStdout().Write(res.Content); err != nil {
			return err
		}
	}
	if !writeBack {
		return nil
	}
	if len(res.Result.Removed) == 0 {
		return nil
	}
	if !assumeYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("replace %s with the minimized program?", res.Probe.TargetRel))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "target file left unchanged")
			return nil
		}
	}
	if err := report.WriteFileAtomic(res.Probe.TargetFile, res.Content, perm); err != nil {
		return fmt.Errorf("write back: %w", err)
	}
	return nil
}

// confirm asks a yes/no question on a terminal. Without a terminal the
// answer must come from --yes.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	f, ok := in.(*os.File)
	if !ok || !isTerminal(f) {
		return false, fmt.Errorf("%w: --write needs --yes when stdin is not a terminal", errUsage)
	}
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
