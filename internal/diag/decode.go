package diag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Format selects how compiler output is decoded.
type Format uint8

const (
	// FormatAuto accepts every format line by line.
	FormatAuto Format = iota
	// FormatCargoJSON reads cargo --message-format=json or rustc --error-format=json.
	FormatCargoJSON
	// FormatRustc reads rustc's human-readable output.
	FormatRustc
	// FormatGo reads "file.go:line:col: message" lines.
	FormatGo
)

func (f Format) String() string {
	switch f {
	case FormatCargoJSON:
		return "cargo-json"
	case FormatRustc:
		return "rustc"
	case FormatGo:
		return "go"
	default:
		return "auto"
	}
}

// ParseFormat converts a flag/config value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "cargo-json", "json", "cargo":
		return FormatCargoJSON, nil
	case "rustc", "rustc-text", "human":
		return FormatRustc, nil
	case "go", "golang":
		return FormatGo, nil
	default:
		return FormatAuto, fmt.Errorf("invalid diagnostic format %q (expected auto|cargo-json|rustc|go)", s)
	}
}

// Decode parses compiler output into a bag of at most max diagnostics.
// Lines that are not diagnostics are ignored.
func Decode(format Format, output []byte, max int) *Bag {
	bag := NewBag(max)
	var last *Diagnostic // most recent text diagnostic still awaiting a location

	flush := func() {
		if last != nil {
			if !isSummary(last) {
				bag.Add(*last)
			}
			last = nil
		}
	}

	for _, raw := range bytes.Split(output, []byte("\n")) {
		line := string(bytes.TrimRight(raw, "\r"))
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if (format == FormatAuto || format == FormatCargoJSON) && strings.HasPrefix(trimmed, "{") {
			if d, ok := decodeJSONLine([]byte(trimmed)); ok {
				flush()
				if !isSummary(&d) {
					bag.Add(d)
				}
			}
			continue
		}

		if format == FormatAuto || format == FormatRustc {
			if m := rustcHeader.FindStringSubmatch(line); m != nil {
				flush()
				last = &Diagnostic{Severity: parseLevel(m[1]), Code: m[2], Message: m[3]}
				continue
			}
			if m := rustcLocation.FindStringSubmatch(line); m != nil && last != nil {
				if last.File == "" {
					last.File = normalizePath(m[1])
					last.Line = parseUint32(m[2])
					last.Col = parseUint32(m[3])
				}
				continue
			}
			if m := rustcNote.FindStringSubmatch(line); m != nil && last != nil {
				last.Notes = append(last.Notes, m[1]+": "+m[2])
				continue
			}
		}

		if format == FormatAuto || format == FormatGo {
			if m := goLine.FindStringSubmatch(line); m != nil {
				flush()
				last = &Diagnostic{
					Severity: SevError,
					Message:  m[4],
					File:     normalizePath(m[1]),
					Line:     parseUint32(m[2]),
					Col:      parseUint32(m[3]),
				}
				continue
			}
			if strings.HasPrefix(line, "\t") && last != nil && last.Code == "" {
				last.Notes = append(last.Notes, trimmed)
				continue
			}
		}
	}
	flush()
	return bag
}

var (
	rustcHeader   = regexp.MustCompile(`^(error|warning|note|help)(?:\[([A-Z]+[0-9]+)\])?: (.*)$`)
	rustcLocation = regexp.MustCompile(`^\s*-->\s+(.+):(\d+):(\d+)\s*$`)
	rustcNote     = regexp.MustCompile(`^\s*= (note|help): (.*)$`)
	goLine        = regexp.MustCompile(`^(.+?\.go):(\d+)(?::(\d+))?: (.*)$`)
)

// isSummary recognizes the compiler's closing lines, which carry no location
// and describe the run rather than the program.
func isSummary(d *Diagnostic) bool {
	if d.Code != "" || d.File != "" {
		return false
	}
	msg := strings.ToLower(d.Message)
	return strings.HasPrefix(msg, "aborting due to") ||
		strings.HasPrefix(msg, "could not compile") ||
		strings.Contains(msg, "previous error") ||
		strings.HasPrefix(msg, "build failed")
}

type cargoEnvelope struct {
	Reason  string          `json:"reason"`
	Message json.RawMessage `json:"message"`
}

type rustcMessage struct {
	Message string `json:"message"`
	Level   string `json:"level"`
	Code    *struct {
		Code string `json:"code"`
	} `json:"code"`
	Spans []struct {
		FileName    string `json:"file_name"`
		LineStart   uint32 `json:"line_start"`
		ColumnStart uint32 `json:"column_start"`
		IsPrimary   bool   `json:"is_primary"`
	} `json:"spans"`
	Children []struct {
		Message string `json:"message"`
		Level   string `json:"level"`
	} `json:"children"`
}

// decodeJSONLine accepts both cargo's envelope ({"reason":"compiler-message",
// "message":{...}}) and a bare rustc JSON diagnostic.
func decodeJSONLine(line []byte) (Diagnostic, bool) {
	var env cargoEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Diagnostic{}, false
	}
	payload := line
	switch {
	case env.Reason == "compiler-message":
		payload = env.Message
	case env.Reason != "":
		return Diagnostic{}, false
	}

	var msg rustcMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Level == "" {
		return Diagnostic{}, false
	}
	d := Diagnostic{
		Severity: parseLevel(msg.Level),
		Message:  msg.Message,
	}
	if msg.Code != nil {
		d.Code = msg.Code.Code
	}
	for i, sp := range msg.Spans {
		if sp.IsPrimary || (i == len(msg.Spans)-1 && d.File == "") {
			d.File = normalizePath(sp.FileName)
			d.Line = sp.LineStart
			d.Col = sp.ColumnStart
			if sp.IsPrimary {
				break
			}
		}
	}
	for _, c := range msg.Children {
		d.Notes = append(d.Notes, c.Level+": "+c.Message)
	}
	return d, true
}

func parseUint32(s string) uint32 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
