package translate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
)

func TestCompile_Errors(t *testing.T) {
	tr := New(loadModel(t))

	tests := []struct {
		name string
		src  string
		code string
	}{
		{"unknown root field", `{ films { title } }`, ErrUnknownRootField},
		{"mutation field in query", `{ createMovies(input: {title: "x"}) { movies { title } } }`, ErrUnknownRootField},
		{"unknown selection", `{ movies { nope } }`, ErrUnknownField},
		{"unknown where key", `{ movies(where: {nope: 1}) { title } }`, ErrUnknownField},
		{"unknown option", `{ movies(options: {page: 1}) { title } }`, ErrUnknownField},
		{"textual operator on number", `{ movies(where: {released_CONTAINS: "x"}) { title } }`, ErrUnknownOperator},
		{"bad quantifier", `{ movies(where: {actors_GT: {name: "x"}}) { title } }`, ErrUnknownOperator},
		{"list attribute ordering", `{ movies(where: {tags_LT: "x"}) { title } }`, ErrUnknownOperator},
		{"not filterable", `{ movies(where: {tagline: "x"}) { title } }`, ErrNotFilterable},
		{"not sortable", `{ movies(options: {sort: [{tagline: ASC}]}) { title } }`, ErrNotSortable},
		{"bad sort direction", `{ movies(options: {sort: [{title: UP}]}) { title } }`, ErrBadArgument},
		{"negative limit", `{ movies(options: {limit: -1}) { title } }`, ErrBadArgument},
		{"null with ordering", `{ movies(where: {released_GT: null}) { title } }`, ErrBadArgument},
		{"empty selection", `{ movies { director } }`, ErrBadArgument},
		{"ambiguous write", `mutation { createMovies(input: {title: "a", tagline: "x", headline: "y"}) { movies { title } } }`, ErrAmbiguousWrite},
		{"sorted union", `{ movies { credits(options: {sort: [{name: ASC}]}) { __typename } } }`, ErrUnsupported},
		{"connection over union", `{ movies { creditsConnection { totalCount } } }`, ErrUnsupported},
		{"unknown index", `{ movies(fulltext: {Nope: {phrase: "x"}}) { title } }`, ErrUnknownIndex},
		{"bad cursor", `{ moviesConnection(after: "!!") { totalCount } }`, ErrBadCursor},
		{"non member type", `{ movies { credits(where: {Movie: {title: "x"}}) { __typename } } }`, ErrUnknownTypeCond},
		{"not aggregatable", `{ moviesAggregate { secret { shortest } } }`, ErrNotAggregatable},
		{"average of text", `{ moviesAggregate { title { average } } }`, ErrNotAggregatable},
		{"missing required attribute", `mutation { createMovies(input: [{released: 1}]) { movies { title } } }`, ErrInvalidMutation},
		{"missing input", `mutation { createMovies { movies { title } } }`, ErrInvalidMutation},
		{"missing required relationship", `mutation { createPosts(input: {title: "t"}) { posts { title } } }`, ErrInvalidMutation},
		{"unknown counter", `mutation { deleteMovies { nodesTouched } }`, ErrUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := tr.Compile(parse(t, tt.src), nil)
			require.Error(t, err)
			assert.Nil(t, stmt)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.code, ce.Code, ce.Error())
		})
	}
}

func TestCompile_ClaimTypeMismatch(t *testing.T) {
	m, err := schema.LoadSource(`
entity: Doc: {
	attributes: flag: type: "Boolean"
	rules: [{operations: ["READ"], where: node: flag: "$jwt.sub"}]
}
claims: sub: "ID"
`)
	require.NoError(t, err)

	_, err = New(m).Compile(parse(t, `{ docs { flag } }`), request.Claims{"sub": "u1"})
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrClaimTypeMismatch, ce.Code)
	assert.Equal(t, "Doc", ce.Type)
}

func TestCompile_UnconditionalRuleDropsFilter(t *testing.T) {
	m, err := schema.LoadSource(`
entity: Note: {
	attributes: body: type: "String"
	rules: [
		{kind: "filter", operations: ["READ"], where: node: body: "x"},
		{kind: "filter", operations: ["READ"], requireAuthenticated: false},
	]
}
`)
	require.NoError(t, err)

	stmt, err := New(m).Compile(parse(t, `{ notes { body } }`), nil)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (this:Note)\nRETURN this { .body } AS this", stmt.Text)
	assert.Empty(t, stmt.Params)
}
