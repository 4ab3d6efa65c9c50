package testkit

import (
	"strings"
	"testing"

	"ddebug/internal/source"
	"ddebug/internal/syntax"
)

// LineTree builds a syntax tree from brace-structured text without a real
// grammar. A line ending in "{" opens an item that closes at the matching
// "}" line; "let x ..." lines are declarations named x; "//" lines are
// comments; every other line is a statement. Identifiers after "=" or "("
// are not tracked.
func LineTree(tb testing.TB, path, src string) *syntax.Tree {
	tb.Helper()
	f := source.Virtual(path, []byte(src))
	b := syntax.NewBuilder(f)
	b.Open(syntax.NodeSpec{Kind: syntax.KindRoot, Type: "file", Span: source.Span{End: uint32(len(src))}}) // #nosec G115

	// The end of an item is only known at its closing line, so items are
	// resolved in a first sweep and emitted in a second.
	type line struct{ start, end int }
	var lines []line
	for off := 0; off < len(src); {
		nl := strings.IndexByte(src[off:], '\n')
		end := len(src)
		if nl >= 0 {
			end = off + nl
		}
		lines = append(lines, line{off, end})
		off = end + 1
	}

	closeAt := make(map[int]int)
	var open []int
	for i, ln := range lines {
		text := strings.TrimSpace(src[ln.start:ln.end])
		switch {
		case strings.HasSuffix(text, "{"):
			open = append(open, i)
		case strings.HasPrefix(text, "}") && len(open) > 0:
			closeAt[open[len(open)-1]] = i
			open = open[:len(open)-1]
		}
	}

	var closers []int // line indices where an open item ends
	for i, ln := range lines {
		raw := src[ln.start:ln.end]
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		start := ln.start + strings.Index(raw, text)
		sp := source.Span{Start: uint32(start), End: uint32(start + len(text))} // #nosec G115

		if strings.HasPrefix(text, "}") {
			if len(closers) > 0 && closers[len(closers)-1] == i {
				b.Close()
				closers = closers[:len(closers)-1]
			}
			continue
		}
		if j, ok := closeAt[i]; ok {
			last := strings.TrimSpace(src[lines[j].start:lines[j].end])
			endLn := lines[j]
			sp.End = uint32(endLn.start + strings.Index(src[endLn.start:endLn.end], last) + len(last)) // #nosec G115
			b.Open(syntax.NodeSpec{Kind: syntax.KindItem, Type: "item", Span: sp, Name: itemName(text)})
			closers = append(closers, j)
			continue
		}

		spec := syntax.NodeSpec{Kind: syntax.KindStatement, Type: "statement", Span: sp}
		switch {
		case strings.HasPrefix(text, "//"):
			spec.Kind, spec.Type = syntax.KindComment, "comment"
		case strings.HasPrefix(text, "let "):
			spec.Kind, spec.Type = syntax.KindDeclaration, "let"
			spec.Name = firstWord(strings.TrimPrefix(text, "let "))
		default:
			spec.Ref = firstWord(text)
		}
		b.Open(spec)
		b.Close()
	}
	b.Close()

	tree, err := b.Finish()
	if err != nil {
		tb.Fatalf("LineTree: %v", err)
	}
	return tree
}

func itemName(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return firstWord(fields[1])
}

func firstWord(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	if end < 0 {
		return s
	}
	return s[:end]
}
