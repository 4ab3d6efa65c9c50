package syntax

import (
	"fmt"
	"strings"
)

// Kind is the coarse classification of a syntax node.
type Kind uint8

const (
	KindOther Kind = iota
	KindRoot
	KindItem
	KindStatement
	KindDeclaration
	KindExpression
	KindBlock
	KindParameter
	KindField
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindItem:
		return "item"
	case KindStatement:
		return "statement"
	case KindDeclaration:
		return "declaration"
	case KindExpression:
		return "expression"
	case KindBlock:
		return "block"
	case KindParameter:
		return "parameter"
	case KindField:
		return "field"
	case KindComment:
		return "comment"
	default:
		return "other"
	}
}

// IsRemovable reports whether nodes of kind k are removal candidates. Only whole
// items, statements, declarations, parameters, fields and comments qualify;
// sub-expressions never do, so reconstructed text stays syntactically plausible.
func IsRemovable(k Kind) bool {
	switch k {
	case KindItem, KindStatement, KindDeclaration, KindParameter, KindField, KindComment:
		return true
	default:
		return false
	}
}

// SizeMetric selects how node size is measured for candidate ordering.
type SizeMetric uint8

const (
	// SizeBytes measures the source byte span.
	SizeBytes SizeMetric = iota
	// SizeDescendants counts the node and all of its descendants.
	SizeDescendants
)

func (m SizeMetric) String() string {
	switch m {
	case SizeDescendants:
		return "descendants"
	default:
		return "bytes"
	}
}

// ParseSizeMetric converts a flag/config value to a SizeMetric.
func ParseSizeMetric(s string) (SizeMetric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bytes", "span":
		return SizeBytes, nil
	case "descendants", "nodes":
		return SizeDescendants, nil
	default:
		return SizeBytes, fmt.Errorf("invalid size metric %q (expected bytes|descendants)", s)
	}
}
