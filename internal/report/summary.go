// Package report renders the outcome of a reduction: a human summary on the
// terminal and a machine-readable session report on disk.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ddebug/internal/diag"
	"ddebug/internal/reduce"
)

// labelWidth bounds node labels in the retained-declarations list.
const labelWidth = 72

var (
	headColor  = color.New(color.Bold)
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	errColor   = color.New(color.FgRed, color.Bold)
	dimColor   = color.New(color.Faint)
	countColor = color.New(color.FgCyan)
)

// SummaryOptions tunes WriteSummary.
type SummaryOptions struct {
	Signature diag.Signature
	Target    string
	Verbose   bool // list retained declarations
}

// WriteSummary prints pass count, nodes removed, before/after sizes, trial
// and cache counters and the stop reason. Decided trials and compiler builds
// differ: a parallel window builds candidates whose verdict is then discarded.
func WriteSummary(w io.Writer, res *reduce.Result, opts SummaryOptions) error {
	if res == nil {
		return nil
	}
	var b strings.Builder
	status := okColor.Sprint("minimized")
	switch {
	case res.Partial:
		status = errColor.Sprint("partial")
	case !res.Minimal:
		status = warnColor.Sprint("reduced")
	case len(res.Removed) == 0:
		status = okColor.Sprint("already minimal")
	}
	fmt.Fprintf(&b, "%s %s", headColor.Sprint("ddebug:"), status)
	if opts.Target != "" {
		fmt.Fprintf(&b, " %s", opts.Target)
	}
	if !opts.Signature.IsZero() {
		fmt.Fprintf(&b, " (%s)", opts.Signature)
	}
	b.WriteByte('\n')

	fmt.Fprintf(&b, "  passes   %s   removed %s of %s candidates\n",
		countColor.Sprint(res.Passes), countColor.Sprint(len(res.Removed)), countColor.Sprint(res.Removable))
	fmt.Fprintf(&b, "  lines    %d -> %s  (%s)\n", res.OriginalLines, countColor.Sprint(res.FinalLines), Percent(res.OriginalLines, res.FinalLines))
	fmt.Fprintf(&b, "  bytes    %d -> %s  (%s)\n", res.OriginalBytes, countColor.Sprint(res.FinalBytes), Percent(res.OriginalBytes, res.FinalBytes))
	fmt.Fprintf(&b, "  decided  %s   cache hits %d   builds %d\n",
		countColor.Sprint(res.Trials), res.Cache.Hits, res.Cache.Invocations+1)
	fmt.Fprintf(&b, "  stopped  %s after %s\n", res.StopReason, res.Elapsed.Round(time.Millisecond))
	if res.StopReason == reduce.StopMaxPasses {
		b.WriteString(warnColor.Sprint("  note: pass limit reached; the result may not be 1-minimal\n"))
	}

	if opts.Verbose && len(res.Retained) > 0 {
		b.WriteString(dimColor.Sprint("  kept because live code refers to them:\n"))
		for _, r := range res.Retained {
			fmt.Fprintf(&b, "    %s\n", Truncate(r.Label, labelWidth))
			for _, u := range r.Users {
				fmt.Fprintf(&b, "      %s %s\n", dimColor.Sprint("used by"), Truncate(u, labelWidth-8))
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Percent renders the relative reduction from before to after.
func Percent(before, after int) string {
	if before <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("-%.1f%%", 100*float64(before-after)/float64(before))
}

// Truncate shortens s to width terminal cells.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
