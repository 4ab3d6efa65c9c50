package diag

import "fmt"

type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	File     string
	Line     uint32
	Col      uint32
	Notes    []string
}

// Location renders "file:line:col", dropping the parts that are unknown.
func (d *Diagnostic) Location() string {
	switch {
	case d.File == "":
		return ""
	case d.Line == 0:
		return d.File
	case d.Col == 0:
		return fmt.Sprintf("%s:%d", d.File, d.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Col)
	}
}

// String renders the diagnostic on one line: "error[E0384] file:1:2: message".
func (d *Diagnostic) String() string {
	head := severityLabel(d.Severity)
	if d.Code != "" {
		head += "[" + d.Code + "]"
	}
	if loc := d.Location(); loc != "" {
		head += " " + loc
	}
	return head + ": " + sanitizeMessage(d.Message)
}
