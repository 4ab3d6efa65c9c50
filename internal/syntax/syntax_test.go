package syntax

import (
	"errors"
	"strings"
	"testing"

	"ddebug/internal/source"
)

const fnSrc = "fn main() {\n    let b = 0;\n    let a = 0;\n    b = 10;\n}\n"

// spanOf locates the n-th (0-based) occurrence of sub in src.
func spanOf(t *testing.T, src, sub string, n int) source.Span {
	t.Helper()
	off := 0
	for i := 0; ; i++ {
		j := strings.Index(src[off:], sub)
		if j < 0 {
			t.Fatalf("%q occurrence %d not found", sub, n)
		}
		if i == n {
			start := uint32(off + j) // #nosec G115
			return source.Span{Start: start, End: start + uint32(len(sub))} // #nosec G115
		}
		off += j + len(sub)
	}
}

func buildFn(t *testing.T) *Tree {
	t.Helper()
	f := source.Virtual("main.rs", []byte(fnSrc))
	b := NewBuilder(f)
	b.Open(NodeSpec{Kind: KindRoot, Type: "source_file", Span: source.Span{End: uint32(len(fnSrc))}})
	b.Open(NodeSpec{Kind: KindItem, Type: "function_item", Span: spanOf(t, fnSrc, fnSrc[:len(fnSrc)-1], 0), Name: "main"})
	b.Open(NodeSpec{Kind: KindBlock, Type: "block", Span: spanOf(t, fnSrc, "{\n    let b = 0;\n    let a = 0;\n    b = 10;\n}", 0)})
	b.Open(NodeSpec{Kind: KindDeclaration, Type: "let_declaration", Span: spanOf(t, fnSrc, "let b = 0;", 0), Name: "b"})
	b.Close()
	b.Open(NodeSpec{Kind: KindDeclaration, Type: "let_declaration", Span: spanOf(t, fnSrc, "let a = 0;", 0), Name: "a"})
	b.Close()
	b.Open(NodeSpec{Kind: KindStatement, Type: "expression_statement", Span: spanOf(t, fnSrc, "b = 10;", 0)})
	b.Open(NodeSpec{Kind: KindExpression, Type: "identifier", Span: spanOf(t, fnSrc, "b", 1), Ref: "b"})
	b.Close()
	b.Close()
	b.Close()
	b.Close()
	b.Close()
	tree, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return tree
}

func TestBuilderPreorderAndDescendants(t *testing.T) {
	tree := buildFn(t)
	if tree.Len() != 7 {
		t.Fatalf("Len = %d, want 7", tree.Len())
	}
	if got := tree.Descendants(0); got != 6 {
		t.Fatalf("root descendants = %d, want 6", got)
	}
	if got := tree.ChildrenOf(2); len(got) != 3 || got[0] != 3 || got[1] != 4 || got[2] != 5 {
		t.Fatalf("block children = %v", got)
	}
	if tree.Node(6).Parent != 5 || tree.Node(6).Depth != 4 {
		t.Fatalf("identifier parent/depth = %d/%d", tree.Node(6).Parent, tree.Node(6).Depth)
	}
	if !tree.IsAncestor(2, 6) || !tree.IsAncestor(6, 6) || tree.IsAncestor(3, 4) {
		t.Fatal("IsAncestor disagrees with preorder ranges")
	}
	if got := tree.Subtree(5); len(got) != 2 || got[1] != 6 {
		t.Fatalf("Subtree(5) = %v", got)
	}
}

func TestSizeOfMetrics(t *testing.T) {
	tree := buildFn(t)
	if got := tree.SizeOf(3, SizeBytes); got != len("let b = 0;") {
		t.Fatalf("byte size = %d", got)
	}
	if got := tree.SizeOf(5, SizeDescendants); got != 2 {
		t.Fatalf("descendant size = %d, want 2", got)
	}
}

func TestBuilderRejectsBrokenSpans(t *testing.T) {
	src := "abcdef"
	f := source.Virtual("x", []byte(src))

	t.Run("escapes parent", func(t *testing.T) {
		b := NewBuilder(f)
		b.Open(NodeSpec{Kind: KindRoot, Span: source.Span{Start: 0, End: 3}})
		b.Open(NodeSpec{Kind: KindItem, Span: source.Span{Start: 2, End: 5}})
		b.Close()
		b.Close()
		if _, err := b.Finish(); !errors.Is(err, ErrInvariant) {
			t.Fatalf("expected ErrInvariant, got %v", err)
		}
	})

	t.Run("overlapping siblings", func(t *testing.T) {
		b := NewBuilder(f)
		b.Open(NodeSpec{Kind: KindRoot, Span: source.Span{Start: 0, End: 6}})
		b.Open(NodeSpec{Kind: KindItem, Span: source.Span{Start: 0, End: 4}})
		b.Close()
		b.Open(NodeSpec{Kind: KindItem, Span: source.Span{Start: 3, End: 6}})
		b.Close()
		b.Close()
		if _, err := b.Finish(); !errors.Is(err, ErrInvariant) {
			t.Fatalf("expected ErrInvariant, got %v", err)
		}
	})

	t.Run("unbalanced", func(t *testing.T) {
		b := NewBuilder(f)
		b.Open(NodeSpec{Kind: KindRoot, Span: source.Span{Start: 0, End: 6}})
		if _, err := b.Finish(); !errors.Is(err, ErrInvariant) {
			t.Fatalf("expected ErrInvariant, got %v", err)
		}
	})
}

func TestReconstructElidesWholeLines(t *testing.T) {
	tree := buildFn(t)
	got := Reconstruct(tree, []NodeID{4})
	want := "fn main() {\n    let b = 0;\n    b = 10;\n}\n"
	if got != want {
		t.Fatalf("Reconstruct =\n%q\nwant\n%q", got, want)
	}
}

func TestReconstructIgnoresCoveredAndRootIDs(t *testing.T) {
	tree := buildFn(t)
	// 6 lies inside 5; 0 is the root; 99 does not exist.
	got := Reconstruct(tree, []NodeID{6, 5, 0, 99, 5})
	want := "fn main() {\n    let b = 0;\n    let a = 0;\n}\n"
	if got != want {
		t.Fatalf("Reconstruct =\n%q\nwant\n%q", got, want)
	}
	if Reconstruct(tree, nil) != fnSrc {
		t.Fatal("empty removal set must reproduce the original text")
	}
}

func TestReconstructListElements(t *testing.T) {
	src := "fn f(a: i32, b: i32, c: i32) {}\n"
	f := source.Virtual("f.rs", []byte(src))
	b := NewBuilder(f)
	b.Open(NodeSpec{Kind: KindRoot, Span: source.Span{End: uint32(len(src))}})
	b.Open(NodeSpec{Kind: KindItem, Span: spanOf(t, src, src[:len(src)-1], 0)})
	b.Open(NodeSpec{Kind: KindOther, Type: "parameters", Span: spanOf(t, src, "(a: i32, b: i32, c: i32)", 0)})
	for _, p := range []string{"a: i32", "b: i32", "c: i32"} {
		b.Open(NodeSpec{Kind: KindParameter, Span: spanOf(t, src, p, 0), ListElem: true})
		b.Close()
	}
	b.Close()
	b.Close()
	b.Close()
	tree, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		removed []NodeID
		want    string
	}{
		{[]NodeID{3}, "fn f(b: i32, c: i32) {}\n"},
		{[]NodeID{4}, "fn f(a: i32, c: i32) {}\n"},
		{[]NodeID{5}, "fn f(a: i32, b: i32) {}\n"},
		{[]NodeID{3, 4, 5}, "fn f() {}\n"},
		{[]NodeID{4, 5}, "fn f(a: i32) {}\n"},
		{[]NodeID{3, 4}, "fn f(c: i32) {}\n"},
		{[]NodeID{3, 5}, "fn f(b: i32) {}\n"},
	}
	for _, tt := range tests {
		if got := Reconstruct(tree, tt.removed); got != tt.want {
			t.Errorf("Reconstruct(%v) = %q, want %q", tt.removed, got, tt.want)
		}
	}
}

func TestReferencesUsersOf(t *testing.T) {
	tree := buildFn(t)
	refs := tree.References()
	if got := refs.Declarations("b"); len(got) != 1 || got[0] != 3 {
		t.Fatalf("Declarations(b) = %v", got)
	}
	if got := refs.UsersOf(tree, 3, nil); len(got) != 1 || got[0] != 6 {
		t.Fatalf("UsersOf(let b) = %v", got)
	}
	dead := func(id NodeID) bool { return !tree.IsAncestor(5, id) }
	if got := refs.UsersOf(tree, 3, dead); len(got) != 0 {
		t.Fatalf("UsersOf with removed use site = %v", got)
	}
	if got := refs.UsersOf(tree, 4, nil); len(got) != 0 {
		t.Fatalf("UsersOf(let a) = %v", got)
	}
}

func TestLabel(t *testing.T) {
	tree := buildFn(t)
	if got := tree.Label(3); got != "declaration let b = 0;" {
		t.Fatalf("Label(3) = %q", got)
	}
	if got := tree.Label(1); got != "item fn main() { ..." {
		t.Fatalf("Label(1) = %q", got)
	}
}
