package core

import (
	"fmt"

	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// Kind tags a node variant. The compiler dispatches on it.
type Kind int

// Node kinds.
const (
	KindInvalid Kind = iota
	KindColumn
	KindLiteral
	KindBindParameter
	KindUnaryOp
	KindBinaryOp
	KindFunctionCall
	KindLabel
	KindAlias
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	KindCompoundSelect
	KindJoin
	KindTable
	KindCase
	KindCast
	KindGrouping
	KindNull
	KindTrue
	KindFalse
	KindClauseList
	KindScalarSubquery
	KindStar
	KindLimit
)

var kindNames = [...]string{
	KindInvalid:        "Invalid",
	KindColumn:         "Column",
	KindLiteral:        "Literal",
	KindBindParameter:  "BindParameter",
	KindUnaryOp:        "UnaryOp",
	KindBinaryOp:       "BinaryOp",
	KindFunctionCall:   "FunctionCall",
	KindLabel:          "Label",
	KindAlias:          "Alias",
	KindSelect:         "Select",
	KindInsert:         "Insert",
	KindUpdate:         "Update",
	KindDelete:         "Delete",
	KindCompoundSelect: "CompoundSelect",
	KindJoin:           "Join",
	KindTable:          "Table",
	KindCase:           "Case",
	KindCast:           "Cast",
	KindGrouping:       "Grouping",
	KindNull:           "Null",
	KindTrue:           "True",
	KindFalse:          "False",
	KindClauseList:     "ClauseList",
	KindScalarSubquery: "ScalarSubquery",
	KindStar:           "Star",
	KindLimit:          "Limit",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is any element of a statement tree.
type Node interface {
	Kind() Kind
	// writeKey appends the node's structural fingerprint.
	writeKey(kb *KeyBuilder)
}

// Expr is a column-valued expression.
type Expr interface {
	Node
	Type() types.Type
	exprNode()
}

// FromClause is anything that can appear in a FROM list.
type FromClause interface {
	Node
	fromNode()
	// Columns returns the columns the element exports, in order.
	Columns() []*Column
	// C returns the exported column with the given name, or nil.
	C(name string) *Column
}

// Selectable is a SELECT or a compound SELECT.
type Selectable interface {
	Node
	selectNode()
	// ResultColumns returns the statement's columns under the names they
	// are exposed as, after label disambiguation.
	ResultColumns() []ResultColumn
	Err() error
}

// ResultColumn is one column of a statement's result.
type ResultColumn struct {
	Expr Expr
	Name string
	// Labeled is set when the name must be rendered with AS.
	Labeled bool
}

// describe names a value for TypeMismatchError messages.
func describe(v any) string {
	switch n := v.(type) {
	case nil:
		return "nil"
	case Expr:
		return fmt.Sprintf("%s expression of type %s", n.Kind(), types.Of(n.Type()).Name())
	case Node:
		return n.Kind().String()
	default:
		return fmt.Sprintf("%T", v)
	}
}
