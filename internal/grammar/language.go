// Package grammar turns target files into syntax trees using tree-sitter
// grammars and maps grammar node types onto syntax kinds.
package grammar

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"ddebug/internal/source"
	"ddebug/internal/syntax"
)

var (
	// ErrParse is wrapped by every *ParseError.
	ErrParse = errors.New("syntax error")
	// ErrUnsupported reports a file whose language cannot be determined.
	ErrUnsupported = errors.New("unsupported language")
	// ErrNoCGO is returned when the binary was built without tree-sitter.
	ErrNoCGO = errors.New("parsing requires CGO (tree-sitter)")
)

// Language identifies a supported target language.
type Language uint8

const (
	LangUnknown Language = iota
	LangRust
	LangGo
)

func (l Language) String() string {
	switch l {
	case LangRust:
		return "rust"
	case LangGo:
		return "go"
	default:
		return "unknown"
	}
}

// ParseLanguage converts a flag value. "auto" and "" yield LangUnknown so the
// caller falls back to Detect.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return LangUnknown, nil
	case "rust", "rs":
		return LangRust, nil
	case "go", "golang":
		return LangGo, nil
	default:
		return LangUnknown, fmt.Errorf("%w: %q (expected rust|go|auto)", ErrUnsupported, s)
	}
}

// Detect picks a language from the file extension.
func Detect(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rs":
		return LangRust
	case ".go":
		return LangGo
	default:
		return LangUnknown
	}
}

// ParseError is the first syntax error found in a file.
type ParseError struct {
	Path string
	Pos  source.LineCol
	Node string // grammar node type at the error, "ERROR" or the missing token
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error near %s", e.Path, e.Pos.Line, e.Pos.Col, e.Node)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// rustNameField and goNameField name, per grammar node type, the field holding
// the declared identifier.
var rustNameField = map[string]string{
	"function_item":           "name",
	"function_signature_item": "name",
	"struct_item":             "name",
	"enum_item":               "name",
	"union_item":              "name",
	"trait_item":              "name",
	"mod_item":                "name",
	"const_item":              "name",
	"static_item":             "name",
	"type_item":               "name",
	"macro_definition":        "name",
	"enum_variant":            "name",
	"field_declaration":       "name",
	"let_declaration":         "pattern",
	"parameter":               "pattern",
}

var goNameField = map[string]string{
	"function_declaration":  "name",
	"method_declaration":    "name",
	"type_spec":             "name",
	"type_alias":            "name",
	"const_spec":            "name",
	"var_spec":              "name",
	"parameter_declaration": "name",
	"short_var_declaration": "left",
	"field_declaration":     "name",
}

var rustKinds = map[string]syntax.Kind{
	"source_file": syntax.KindRoot,

	"function_item":            syntax.KindItem,
	"function_signature_item":  syntax.KindItem,
	"struct_item":              syntax.KindItem,
	"enum_item":                syntax.KindItem,
	"union_item":               syntax.KindItem,
	"impl_item":                syntax.KindItem,
	"trait_item":               syntax.KindItem,
	"mod_item":                 syntax.KindItem,
	"use_declaration":          syntax.KindItem,
	"const_item":               syntax.KindItem,
	"static_item":              syntax.KindItem,
	"type_item":                syntax.KindItem,
	"macro_definition":         syntax.KindItem,
	"extern_crate_declaration": syntax.KindItem,
	"foreign_mod_item":         syntax.KindItem,
	"associated_type":          syntax.KindItem,
	"attribute_item":           syntax.KindItem,
	"inner_attribute_item":     syntax.KindItem,

	"let_declaration": syntax.KindDeclaration,

	"expression_statement": syntax.KindStatement,
	"empty_statement":      syntax.KindStatement,

	"parameter":          syntax.KindParameter,
	"self_parameter":     syntax.KindParameter,
	"variadic_parameter": syntax.KindParameter,

	"field_declaration":           syntax.KindField,
	"enum_variant":                syntax.KindField,
	"field_initializer":           syntax.KindField,
	"shorthand_field_initializer": syntax.KindField,
	"base_field_initializer":      syntax.KindField,
	"match_arm":                   syntax.KindField,

	"line_comment":  syntax.KindComment,
	"block_comment": syntax.KindComment,

	"block":                  syntax.KindBlock,
	"declaration_list":       syntax.KindBlock,
	"field_declaration_list": syntax.KindBlock,
	"enum_variant_list":      syntax.KindBlock,
	"match_block":            syntax.KindBlock,
}

var goKinds = map[string]syntax.Kind{
	"source_file": syntax.KindRoot,

	"function_declaration": syntax.KindItem,
	"method_declaration":   syntax.KindItem,
	"type_declaration":     syntax.KindItem,
	"import_declaration":   syntax.KindItem,

	"const_declaration":     syntax.KindDeclaration,
	"var_declaration":       syntax.KindDeclaration,
	"short_var_declaration": syntax.KindDeclaration,
	"import_spec":           syntax.KindDeclaration,
	"const_spec":            syntax.KindDeclaration,
	"var_spec":              syntax.KindDeclaration,
	"type_spec":             syntax.KindDeclaration,
	"type_alias":            syntax.KindDeclaration,

	"expression_statement":        syntax.KindStatement,
	"assignment_statement":        syntax.KindStatement,
	"inc_statement":               syntax.KindStatement,
	"dec_statement":               syntax.KindStatement,
	"send_statement":              syntax.KindStatement,
	"return_statement":            syntax.KindStatement,
	"go_statement":                syntax.KindStatement,
	"defer_statement":             syntax.KindStatement,
	"if_statement":                syntax.KindStatement,
	"for_statement":               syntax.KindStatement,
	"expression_switch_statement": syntax.KindStatement,
	"type_switch_statement":       syntax.KindStatement,
	"select_statement":            syntax.KindStatement,
	"labeled_statement":           syntax.KindStatement,
	"break_statement":             syntax.KindStatement,
	"continue_statement":          syntax.KindStatement,
	"goto_statement":              syntax.KindStatement,
	"fallthrough_statement":       syntax.KindStatement,
	"expression_case":             syntax.KindStatement,
	"type_case":                   syntax.KindStatement,
	"communication_case":          syntax.KindStatement,
	"default_case":                syntax.KindStatement,

	"parameter_declaration":          syntax.KindParameter,
	"variadic_parameter_declaration": syntax.KindParameter,

	"field_declaration": syntax.KindField,
	"method_spec":       syntax.KindField,
	"method_elem":       syntax.KindField,
	"keyed_element":     syntax.KindField,

	"comment": syntax.KindComment,

	"block":                  syntax.KindBlock,
	"statement_list":         syntax.KindBlock,
	"field_declaration_list": syntax.KindBlock,
	"interface_type":         syntax.KindBlock,
	"literal_value":          syntax.KindBlock,
}

// listElems are node types separated by commas inside their parent.
var listElems = map[Language]map[string]bool{
	LangRust: {
		"parameter":                   true,
		"self_parameter":              true,
		"variadic_parameter":          true,
		"field_declaration":           true,
		"enum_variant":                true,
		"field_initializer":           true,
		"shorthand_field_initializer": true,
		"base_field_initializer":      true,
		"match_arm":                   true,
	},
	LangGo: {
		"parameter_declaration":          true,
		"variadic_parameter_declaration": true,
		"keyed_element":                  true,
	},
}

// refTypes are identifier node types recorded as use sites.
var refTypes = map[string]bool{
	"identifier":      true,
	"type_identifier": true,
}

// Classify maps a grammar node type to a syntax kind. Unlisted types that end
// in "_expression" or "_literal" are expressions; anything else is KindOther.
func Classify(lang Language, nodeType string) syntax.Kind {
	var table map[string]syntax.Kind
	switch lang {
	case LangRust:
		table = rustKinds
	case LangGo:
		table = goKinds
	}
	if k, ok := table[nodeType]; ok {
		return k
	}
	if strings.HasSuffix(nodeType, "_expression") || strings.HasSuffix(nodeType, "_literal") {
		return syntax.KindExpression
	}
	return syntax.KindOther
}

// classifyIn refines Classify with the parent type: Go declarations at the top
// level are items.
func classifyIn(lang Language, nodeType, parentType string) syntax.Kind {
	k := Classify(lang, nodeType)
	if lang == LangGo && k == syntax.KindDeclaration && parentType == "source_file" {
		return syntax.KindItem
	}
	return k
}

func nameField(lang Language, nodeType string) string {
	switch lang {
	case LangRust:
		return rustNameField[nodeType]
	case LangGo:
		return goNameField[nodeType]
	}
	return ""
}

func isListElem(lang Language, nodeType string) bool {
	return listElems[lang][nodeType]
}
