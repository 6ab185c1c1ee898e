package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_ScopeErrors(t *testing.T) {
	this := Variable("this")

	tests := []struct {
		name  string
		build func(q *Query)
		want  error
	}{
		{
			name: "where references unbound variable",
			build: func(q *Query) {
				q.Match(Eq(Prop("other", "x"), Literal{Value: 1}), Path(Node(this)))
			},
			want: ErrUnboundVariable,
		},
		{
			name: "call imports unbound variable",
			build: func(q *Query) {
				q.Match(nil, Path(Node(this)))
				body := NewSubquery("missing")
				body.ReturnItems(As(Literal{Value: 1}, "var0"))
				q.Call(body)
			},
			want: ErrUnboundVariable,
		},
		{
			name: "call returns name already in scope",
			build: func(q *Query) {
				q.Match(nil, Path(Node(this)))
				body := NewSubquery(this)
				body.ReturnItems(Pass(this))
				q.Call(body)
			},
			want: ErrRedeclared,
		},
		{
			name: "exists body uses undeclared outer variable",
			build: func(q *Query) {
				q.Match(nil, Path(Node(this)))
				inner := NewInnerQuery(this)
				inner.Match(Eq(Prop("elsewhere", "x"), Literal{Value: 1}),
					Path(Node(this)).Related(RelPattern{Type: "R"}, Node("that")))
				q.Where(Exists{Query: inner})
			},
			want: ErrUnboundVariable,
		},
		{
			name: "guard before after a write",
			build: func(q *Query) {
				q.Match(nil, Path(Node(this)))
				q.Set(SetItem{Target: Prop(this, "x"), Value: Literal{Value: 1}})
				q.GuardBefore(Literal{Value: true}, "Forbidden")
			},
			want: ErrPhase,
		},
		{
			name: "guard before on empty query",
			build: func(q *Query) {
				q.GuardBefore(Literal{Value: true}, "Forbidden")
			},
			want: ErrPhase,
		},
		{
			name: "guard after with zero anchor",
			build: func(q *Query) {
				q.Match(nil, Path(Node(this)))
				q.GuardAfter(Anchor{}, Literal{Value: true}, "Forbidden")
			},
			want: ErrAnchor,
		},
		{
			name: "guard after with anchor from another query",
			build: func(q *Query) {
				other := NewQuery()
				anchor := other.Match(nil, Path(Node(this)))
				q.Match(nil, Path(Node(this)))
				q.GuardAfter(anchor, Literal{Value: true}, "Forbidden")
			},
			want: ErrAnchor,
		},
		{
			name: "match after create without with",
			build: func(q *Query) {
				q.Create(Path(Node(this, "Movie")))
				q.Match(nil, Path(Node("other")))
			},
			want: ErrPhase,
		},
		{
			name: "clause after return",
			build: func(q *Query) {
				q.Match(nil, Path(Node(this)))
				q.ReturnItems(Pass(this))
				q.Match(nil, Path(Node("other")))
			},
			want: ErrPhase,
		},
		{
			name: "with drops variables from scope",
			build: func(q *Query) {
				q.Match(nil, Path(Node(this)), Path(Node("other")))
				q.WithVars(this)
				q.ReturnItems(Pass("other"))
			},
			want: ErrUnboundVariable,
		},
		{
			name: "list predicate variable does not leak",
			build: func(q *Query) {
				q.Match(nil, Path(Node(this)))
				q.ReturnItems(As(AndOf(
					ListPredicate{Quantifier: ListAny, Var: "x", List: Prop(this, "tags"), Where: Eq(Variable("x"), Literal{Value: "a"})},
					Eq(Variable("x"), Literal{Value: "b"}),
				), "ok"))
			},
			want: ErrUnboundVariable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery()
			tt.build(q)

			require.Error(t, q.Err())
			assert.ErrorIs(t, q.Err(), tt.want)

			_, _, err := q.Build(NewParams())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestQuery_ErrorsAreSticky(t *testing.T) {
	q := NewQuery()
	q.Match(Eq(Prop("missing", "x"), Literal{Value: 1}), Path(Node("this")))
	first := q.Err()
	require.Error(t, first)

	q.GuardBefore(Literal{Value: true}, "Forbidden")
	q.ReturnItems(Pass("this"))

	assert.Equal(t, first, q.Err())
	assert.Empty(t, q.Clauses())
}

func TestQuery_MatchAfterWriteNeedsWith(t *testing.T) {
	q := NewQuery()
	q.Create(Path(Node("this0", "Movie")))
	q.WithVars("this0")
	q.Match(nil, Path(Node("this0")).Related(RelPattern{Type: "R"}, Node("this1", "Actor")))
	q.ReturnItems(Pass("this1"))

	require.NoError(t, q.Err())
	text, _, err := q.Build(NewParams())
	require.NoError(t, err)
	assert.Equal(t, "CREATE (this0:Movie)\n"+
		"WITH this0\n"+
		"MATCH (this0)-[:R]->(this1:Actor)\n"+
		"RETURN this1", text)
}

func TestQuery_Phases(t *testing.T) {
	q := NewQuery()
	assert.Equal(t, PhaseEmpty, q.Phase())

	q.Match(nil, Path(Node("this", "Movie")))
	assert.Equal(t, PhaseMatching, q.Phase())

	q.Where(IsNull{Expr: Prop("this", "deleted")})
	assert.Equal(t, PhaseFiltering, q.Phase())

	anchor := q.Set(SetItem{Target: Prop("this", "seen"), Value: Literal{Value: true}})
	assert.Equal(t, PhaseMutating, q.Phase())
	assert.True(t, anchor.Valid())

	q.ReturnItems(Pass("this"))
	assert.Equal(t, PhaseProjecting, q.Phase())

	_, _, err := q.Build(NewParams())
	require.NoError(t, err)
	assert.Equal(t, PhaseSerialized, q.Phase())
}

func TestQuery_WritingCallMovesToMutating(t *testing.T) {
	q := NewQuery()
	q.Match(nil, Path(Node("this", "Movie")))

	body := NewSubquery("this")
	body.Set(SetItem{Target: Prop("this", "x"), Value: Literal{Value: 1}})
	body.ReturnItems(As(Fn("count", Star{}), "update_var0"))
	anchor := q.Call(body)

	assert.Equal(t, PhaseMutating, q.Phase())
	q.GuardAfter(anchor, Literal{Value: true}, "Forbidden")
	require.NoError(t, q.Err())
	assert.Equal(t, PhaseMatching, q.Phase())
}

func TestQuery_GuardBeforeAfterWriteFails(t *testing.T) {
	q := NewQuery()
	q.Match(nil, Path(Node("this", "Movie")))
	q.Set(SetItem{Target: Prop("this", "x"), Value: Literal{Value: 1}})

	q.GuardBefore(Literal{Value: true}, "Forbidden")
	assert.ErrorIs(t, q.Err(), ErrPhase)
}

func TestQuery_MatchAfterGuardAfter(t *testing.T) {
	q := NewQuery()
	q.Match(nil, Path(Node("this", "Movie")))
	set := q.Set(SetItem{Target: Prop("this", "x"), Value: Literal{Value: 1}})
	q.GuardAfter(set, Literal{Value: true}, "Forbidden")
	q.GuardAfter(set, Literal{Value: false}, "Forbidden")
	q.Match(nil, Path(Node("this")).Related(RelPattern{Type: "R"}, Node("this1", "Actor")))
	q.Unwind(Prop("this1", "tags"), "tag")
	q.ReturnItems(Pass("tag"))

	require.NoError(t, q.Err())
	text, _, err := q.Build(NewParams())
	require.NoError(t, err)
	assert.Equal(t, "MATCH (this:Movie)\n"+
		"SET this.x = 1\n"+
		"WITH *\n"+
		"CALL apoc.util.validate(NOT (true), \"Forbidden\", [0])\n"+
		"CALL apoc.util.validate(NOT (false), \"Forbidden\", [0])\n"+
		"MATCH (this)-[:R]->(this1:Actor)\n"+
		"UNWIND this1.tags AS tag\n"+
		"RETURN tag", text)
}

func TestUnionOf_MismatchedReturns(t *testing.T) {
	a := NewSubquery("this")
	a.ReturnItems(As(Literal{Value: 1}, "var0"))
	b := NewSubquery("this")
	b.ReturnItems(As(Literal{Value: 1}, "var1"))

	u := UnionOf(a, b)
	assert.ErrorIs(t, u.Err(), ErrUnion)

	assert.ErrorIs(t, UnionOf().Err(), ErrUnion)
}

func TestUnionOf_MergesImports(t *testing.T) {
	a := NewSubquery("this")
	a.ReturnItems(As(Literal{Value: 1}, "var0"))
	b := NewSubquery("this", "other")
	b.ReturnItems(As(Literal{Value: 2}, "var0"))

	u := UnionOf(a, b)
	require.NoError(t, u.Err())
	assert.Equal(t, []Variable{"this", "other"}, u.Imports())
	assert.Equal(t, []Variable{"var0"}, u.Returns())
	assert.Len(t, u.Branches(), 2)
}

func TestBuild_RejectsNonStatement(t *testing.T) {
	body := NewSubquery("this")
	body.ReturnItems(Pass("this"))
	_, _, err := body.Build(NewParams())
	assert.ErrorIs(t, err, ErrPhase)

	_, _, err = NewQuery().Build(NewParams())
	assert.ErrorIs(t, err, ErrPhase)
}
