package grammar

import (
	"errors"
	"testing"

	"ddebug/internal/syntax"
)

func TestDetect(t *testing.T) {
	cases := map[string]Language{
		"src/main.rs":   LangRust,
		"lib.RS":        LangRust,
		"cmd/x/main.go": LangGo,
		"README.md":     LangUnknown,
		"Makefile":      LangUnknown,
	}
	for path, want := range cases {
		if got := Detect(path); got != want {
			t.Errorf("Detect(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestParseLanguage(t *testing.T) {
	if l, err := ParseLanguage("auto"); err != nil || l != LangUnknown {
		t.Fatalf("auto: %v %v", l, err)
	}
	if l, err := ParseLanguage("Rust"); err != nil || l != LangRust {
		t.Fatalf("Rust: %v %v", l, err)
	}
	if _, err := ParseLanguage("cobol"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("cobol: expected ErrUnsupported, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		lang Language
		typ  string
		want syntax.Kind
	}{
		{LangRust, "function_item", syntax.KindItem},
		{LangRust, "let_declaration", syntax.KindDeclaration},
		{LangRust, "expression_statement", syntax.KindStatement},
		{LangRust, "parameter", syntax.KindParameter},
		{LangRust, "line_comment", syntax.KindComment},
		{LangRust, "binary_expression", syntax.KindExpression},
		{LangRust, "integer_literal", syntax.KindExpression},
		{LangRust, "identifier", syntax.KindOther},
		{LangGo, "function_declaration", syntax.KindItem},
		{LangGo, "short_var_declaration", syntax.KindDeclaration},
		{LangGo, "return_statement", syntax.KindStatement},
		{LangGo, "comment", syntax.KindComment},
		{LangGo, "package_clause", syntax.KindOther},
	}
	for _, tt := range tests {
		if got := Classify(tt.lang, tt.typ); got != tt.want {
			t.Errorf("Classify(%s, %q) = %s, want %s", tt.lang, tt.typ, got, tt.want)
		}
	}
	if got := classifyIn(LangGo, "var_declaration", "source_file"); got != syntax.KindItem {
		t.Errorf("top-level var_declaration = %s, want item", got)
	}
	if got := classifyIn(LangGo, "var_declaration", "block"); got != syntax.KindDeclaration {
		t.Errorf("local var_declaration = %s, want declaration", got)
	}
}
