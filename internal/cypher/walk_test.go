package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferences(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want []Variable
	}{
		{
			name: "nil expression",
			expr: nil,
			want: nil,
		},
		{
			name: "first-seen order without duplicates",
			expr: AndOf(
				Eq(Prop("a", "x"), Variable("b")),
				Eq(Prop("b", "y"), Prop("a", "z")),
			),
			want: []Variable{"a", "b"},
		},
		{
			name: "list predicate binds its own variable",
			expr: ListPredicate{
				Quantifier: ListAll,
				Var:        "x",
				List:       Variable("c"),
				Where:      Eq(Variable("x"), Prop("a", "y")),
			},
			want: []Variable{"a", "c"},
		},
		{
			name: "subquery contributes declared outer variables",
			expr: Not{Expr: Exists{Query: NewInnerQuery("this", "var1")}},
			want: []Variable{"this", "var1"},
		},
		{
			name: "map projection subject and values",
			expr: MapProjection{Subject: "this", Items: []MapItem{{Key: "title"}, {Key: "actors", Value: Variable("var2")}}},
			want: []Variable{"this", "var2"},
		},
		{
			name: "parameters and literals are not variables",
			expr: Binary{Op: OpIn, Left: Literal{Value: "x"}, Right: Param{}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := References(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReferences_NilBranch(t *testing.T) {
	_, err := References(Not{})
	assert.Error(t, err)

	_, err = References(Exists{})
	assert.Error(t, err)
}

type countingVisitor struct {
	enters []string
	exits  int
}

func (v *countingVisitor) Enter(e Expr) {
	switch e.(type) {
	case And:
		v.enters = append(v.enters, "and")
	case Binary:
		v.enters = append(v.enters, "binary")
	case Property:
		v.enters = append(v.enters, "property")
	case Variable:
		v.enters = append(v.enters, "variable")
	case Literal:
		v.enters = append(v.enters, "literal")
	}
}

func (v *countingVisitor) Exit(Expr)    { v.exits++ }
func (v *countingVisitor) Done() bool   { return false }
func (v *countingVisitor) Error() error { return nil }

func TestWalk_DepthFirstOrder(t *testing.T) {
	v := &countingVisitor{}
	expr := AndOf(
		Eq(Prop("a", "x"), Literal{Value: 1}),
		Variable("b"),
	)

	require.NoError(t, Walk(expr, v))
	assert.Equal(t, []string{"and", "binary", "property", "variable", "literal", "variable"}, v.enters)
	assert.Equal(t, 6, v.exits)
}
