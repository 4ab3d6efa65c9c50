package diag

import (
	"path/filepath"
	"strings"
)

// FormatShort renders diagnostics one per line in emission order. Notes are
// indented under their diagnostic when includeNotes is set.
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	var b strings.Builder
	for i := range diags {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(diags[i].String())
		if !includeNotes {
			continue
		}
		for _, n := range diags[i].Notes {
			b.WriteString("\n  = ")
			b.WriteString(sanitizeMessage(n))
		}
	}
	return b.String()
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
