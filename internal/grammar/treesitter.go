//go:build cgo

package grammar

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/rust"

	"ddebug/internal/source"
	"ddebug/internal/syntax"
)

func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangRust:
		return rust.GetLanguage(), nil
	case LangGo:
		return golang.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, lang)
	}
}

func parseTree(ctx context.Context, lang Language, content []byte) (*sitter.Tree, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsLang)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter: %w", err)
	}
	return tree, nil
}

// Parse builds the syntax tree of file. A file containing syntax errors is
// rejected with a *ParseError.
func Parse(ctx context.Context, file *source.File, lang Language) (*syntax.Tree, error) {
	tree, err := parseTree(ctx, lang, file.Content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstError(file, root)
	}
	return convert(file, lang, root)
}

// Validate reports whether content parses cleanly; the returned error is a
// *ParseError when it does not.
func Validate(ctx context.Context, path string, lang Language, content []byte) error {
	tree, err := parseTree(ctx, lang, content)
	if err != nil {
		return err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return firstError(source.Virtual(path, content), root)
	}
	return nil
}

type frame struct {
	node  *sitter.Node
	close bool
}

// convert walks the named nodes in preorder with an explicit stack and feeds
// them to a syntax.Builder.
func convert(file *source.File, lang Language, root *sitter.Node) (*syntax.Tree, error) {
	b := syntax.NewBuilder(file)
	stack := []frame{{node: root}}
	parents := []string{""}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.close {
			b.Close()
			parents = parents[:len(parents)-1]
			continue
		}

		n := top.node
		typ := n.Type()
		spec := syntax.NodeSpec{
			Kind:     classifyIn(lang, typ, parents[len(parents)-1]),
			Type:     typ,
			Span:     source.Span{Start: n.StartByte(), End: n.EndByte()},
			ListElem: isListElem(lang, typ),
		}
		if n == root {
			spec.Kind = syntax.KindRoot
			spec.Span = source.Span{Start: 0, End: uint32(len(file.Content))} // #nosec G115 -- checked by source.Load
		}
		if field := nameField(lang, typ); field != "" {
			spec.Name = declaredName(n.ChildByFieldName(field), file.Content)
		}
		if refTypes[typ] {
			spec.Ref = n.Content(file.Content)
		}
		b.Open(spec)
		parents = append(parents, typ)
		stack = append(stack, frame{node: n, close: true})

		count := int(n.NamedChildCount())
		for i := count - 1; i >= 0; i-- {
			child := n.NamedChild(i)
			if child == nil || child.StartByte() == child.EndByte() {
				continue
			}
			stack = append(stack, frame{node: child})
		}
	}
	return b.Finish()
}

// declaredName extracts a plain identifier from a name or pattern field.
// Patterns other than a single identifier declare nothing trackable.
func declaredName(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier", "type_identifier", "field_identifier":
		return n.Content(content)
	case "expression_list":
		if n.NamedChildCount() > 0 {
			return declaredName(n.NamedChild(0), content)
		}
	}
	return ""
}

func firstError(file *source.File, root *sitter.Node) error {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsError() || n.IsMissing() {
			what := n.Type()
			if n.IsMissing() {
				what = "missing " + what
			}
			return &ParseError{Path: file.Path, Pos: file.Position(n.StartByte()), Node: what}
		}
		if !n.HasError() {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if c := n.Child(i); c != nil {
				stack = append(stack, c)
			}
		}
	}
	return &ParseError{Path: file.Path, Pos: source.LineCol{Line: 1, Col: 1}, Node: "ERROR"}
}
