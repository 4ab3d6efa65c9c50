package diag

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Signature identifies the compiler error a reduction must preserve.
type Signature struct {
	Code     string // "E0384"; empty matches any code
	Fragment string // normalized message substring; empty matches any message
	File     string // path relative to the project; empty matches any file
}

var codePattern = regexp.MustCompile(`^[A-Z]+[0-9]{3,5}$`)

// ParseSignature reads a --target-error value:
//
//	"E0384"          code only
//	"E0384: message" code and message fragment
//	"message"        fragment only
func ParseSignature(s string) (Signature, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Signature{}, fmt.Errorf("empty error signature")
	}
	if codePattern.MatchString(s) {
		return Signature{Code: s}, nil
	}
	if code, rest, ok := strings.Cut(s, ":"); ok && codePattern.MatchString(strings.TrimSpace(code)) {
		return Signature{Code: strings.TrimSpace(code), Fragment: normalizeMessage(rest)}, nil
	}
	return Signature{Fragment: normalizeMessage(s)}, nil
}

// SignatureOf derives the signature of a concrete diagnostic: its code, the
// first line of its message and its file. The message keeps the quoted names,
// so the same code reported for another variable does not match.
func SignatureOf(d *Diagnostic) Signature {
	msg, _, _ := strings.Cut(strings.TrimSpace(d.Message), "\n")
	return Signature{
		Code:     d.Code,
		Fragment: normalizeMessage(msg),
		File:     normalizePath(d.File),
	}
}

// WithFile restricts the signature to errors reported in path.
func (s Signature) WithFile(path string) Signature {
	s.File = normalizePath(path)
	return s
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

func (s Signature) String() string {
	var b strings.Builder
	if s.Code != "" {
		b.WriteString(s.Code)
	}
	if s.Fragment != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		fmt.Fprintf(&b, "%q", s.Fragment)
	}
	if s.File != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("in " + s.File)
	}
	if b.Len() == 0 {
		return "any error"
	}
	return b.String()
}

// Matches reports whether d is an error carrying the signature.
func (s Signature) Matches(d *Diagnostic) bool {
	if d.Severity != SevError {
		return false
	}
	if s.Code != "" && d.Code != s.Code {
		return false
	}
	if s.File != "" && !sameFile(s.File, d.File) {
		return false
	}
	if s.Fragment != "" && !strings.Contains(normalizeMessage(d.Message), s.Fragment) {
		return false
	}
	return true
}

// MatchAny returns the first diagnostic in diags matching s.
func (s Signature) MatchAny(diags []Diagnostic) (*Diagnostic, bool) {
	for i := range diags {
		if s.Matches(&diags[i]) {
			return &diags[i], true
		}
	}
	return nil, false
}

// sameFile compares project-relative paths, tolerating absolute compiler
// output that ends in the expected relative path.
func sameFile(want, got string) bool {
	got = normalizePath(got)
	if got == want {
		return true
	}
	return strings.HasSuffix(got, "/"+want)
}

func normalizeMessage(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
