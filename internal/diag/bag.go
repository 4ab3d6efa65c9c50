package diag

import (
	"fmt"
	"sort"
)

// DefaultMaxDiagnostics bounds how many diagnostics one decode keeps.
const DefaultMaxDiagnostics = 512

type Bag struct {
	items []Diagnostic
	max   int
}

func NewBag(max int) *Bag {
	if max <= 0 {
		max = DefaultMaxDiagnostics
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(max, 16)),
		max:   max,
	}
}

// Add appends d unless the cap is reached; it returns false when d was dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// HasErrors reports whether any diagnostic has error severity.
func (b *Bag) HasErrors() bool {
	return b.FirstError() != nil
}

// FirstError returns the first error diagnostic in emission order, or nil.
func (b *Bag) FirstError() *Diagnostic {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return &b.items[i]
		}
	}
	return nil
}

// Errors returns only the error diagnostics, in emission order.
func (b *Bag) Errors() []Diagnostic {
	var out []Diagnostic
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			out = append(out, b.items[i])
		}
	}
	return out
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the internal slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Sort orders diagnostics by file, line, column, severity (desc), code.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.File != dj.File {
			return di.File < dj.File
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Col != dj.Col {
			return di.Col < dj.Col
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// Dedup drops repeated diagnostics with the same code, location and message.
// rustc reports some errors once per crate target.
func (b *Bag) Dedup() {
	seen := make(map[string]bool, len(b.items))
	items := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := fmt.Sprintf("%s|%s|%s", d.Code, d.Location(), d.Message)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, d)
	}
	b.items = items
}
