package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/schema"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		suffix string
		want   Operator
	}{
		{"EQ", OpEq},
		{"IN", OpIn},
		{"LTE", OpLte},
		{"STARTS_WITH", OpStartsWith},
		{"INCLUDES", OpIncludes},
		{"DISTANCE", OpDistanceEq},
		{"DISTANCE_GT", OpDistanceGt},
	}
	for _, tt := range tests {
		t.Run(tt.suffix, func(t *testing.T) {
			op, ok := ParseOperator(tt.suffix)
			require.True(t, ok)
			assert.Equal(t, tt.want, op)
			assert.Equal(t, tt.suffix, op.String())
		})
	}

	_, ok := ParseOperator("NOT_EQ")
	assert.False(t, ok)
}

func TestOperator_Classes(t *testing.T) {
	assert.True(t, OpDistanceLt.Distance())
	assert.False(t, OpLt.Distance())
	assert.True(t, OpGte.Ordering())
	assert.False(t, OpIn.Ordering())
	assert.True(t, OpMatches.Textual())
	assert.False(t, OpIncludes.Textual())
}

func TestParseQuantifier(t *testing.T) {
	for _, q := range []Quantifier{QuantifierSome, QuantifierAll, QuantifierNone, QuantifierSingle} {
		got, ok := ParseQuantifier(q.String())
		require.True(t, ok)
		assert.Equal(t, q, got)
	}
	_, ok := ParseQuantifier("ANY")
	assert.False(t, ok)
}

func TestAndOr_Collapse(t *testing.T) {
	a := &PropertyFilter{Attribute: titleAttr, Operator: OpEq, Value: "a"}
	b := &PropertyFilter{Attribute: titleAttr, Operator: OpEq, Value: "b"}

	assert.Nil(t, And())
	assert.Nil(t, Or(nil, nil))
	assert.Same(t, a, And(nil, a).(*PropertyFilter))

	both, ok := And(a, nil, b).(*LogicalFilter)
	require.True(t, ok)
	assert.Equal(t, LogicalAnd, both.Op)
	assert.Equal(t, []Filter{a, b}, both.Filters)

	either := Or(a, b).(*LogicalFilter)
	assert.Equal(t, LogicalOr, either.Op)
}

func TestNot_IsNeverFolded(t *testing.T) {
	some := &RelationshipFilter{
		Relationship: actorsRel,
		Quantifier:   QuantifierSome,
		Targets:      []RelationshipTarget{{Entity: actorEnt}},
	}

	not := Not(some).(*LogicalFilter)

	assert.Equal(t, LogicalNot, not.Op)
	require.Len(t, not.Filters, 1)
	assert.Same(t, some, not.Filters[0].(*RelationshipFilter))
	assert.Equal(t, QuantifierSome, some.Quantifier)
}

func TestAuthAt(t *testing.T) {
	pre := &AuthorizationFilter{Position: PositionPre, Operation: schema.OpRead}
	post := &AuthorizationFilter{Position: PositionPost, Operation: schema.OpRead}

	auth := []*AuthorizationFilter{pre, post}

	assert.Equal(t, []*AuthorizationFilter{pre}, AuthAt(auth, PositionPre))
	assert.Empty(t, AuthAt(auth, PositionValidateAfter))
}
