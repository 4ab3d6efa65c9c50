package diag

import "strings"

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for notes, help lines and other informational output.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// parseLevel maps compiler level strings ("error", "warning", "note", "help",
// "error: internal compiler error") to a Severity.
func parseLevel(level string) Severity {
	level = strings.ToLower(strings.TrimSpace(level))
	switch {
	case strings.HasPrefix(level, "error"):
		return SevError
	case strings.HasPrefix(level, "warning"):
		return SevWarning
	default:
		return SevInfo
	}
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}
