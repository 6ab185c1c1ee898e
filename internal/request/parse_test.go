package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation_Query(t *testing.T) {
	op, err := ParseOperation(`
query Movies($name: String, $limit: Int = 5) {
	movies(where: {actors_SOME: {name_EQ: $name}}, options: {limit: $limit, sort: [{title: ASC}]}) {
		title
		stars: actors { name }
	}
}`, "", map[string]any{"name": "Keanu Reeves"})
	require.NoError(t, err)

	assert.Equal(t, KindQuery, op.Kind)
	root := op.Field
	assert.Equal(t, "movies", root.Name)
	assert.Equal(t, "movies", root.Key())

	where, ok := root.Arg("where")
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"actors_SOME": map[string]any{"name_EQ": "Keanu Reeves"},
	}, where)

	options, _ := root.Arg("options")
	assert.Equal(t, map[string]any{
		"limit": int64(5),
		"sort":  []any{map[string]any{"title": "ASC"}},
	}, options)

	require.Len(t, root.Selections, 2)
	stars, ok := root.Selection("actors")
	require.True(t, ok)
	assert.Equal(t, "stars", stars.Key())
	assert.Equal(t, "", root.Selections[0].Alias)
}

func TestParseOperation_VariablesOverrideDefaults(t *testing.T) {
	op, err := ParseOperation(`query ($limit: Int = 5) { movies(options: {limit: $limit}) { title } }`,
		"", map[string]any{"limit": 2})
	require.NoError(t, err)
	options, _ := op.Field.Arg("options")
	assert.Equal(t, map[string]any{"limit": int64(2)}, options)
}

func TestParseOperation_Fragments(t *testing.T) {
	op, err := ParseOperation(`
{
	search {
		__typename
		... on Movie { title }
		...actorFields
	}
}
fragment actorFields on Actor { name }
`, "", nil)
	require.NoError(t, err)

	sel := op.Field.Selections
	require.Len(t, sel, 3)
	assert.Equal(t, "__typename", sel[0].Name)
	assert.Equal(t, "", sel[0].TypeCondition)
	assert.Equal(t, "title", sel[1].Name)
	assert.Equal(t, "Movie", sel[1].TypeCondition)
	assert.Equal(t, "name", sel[2].Name)
	assert.Equal(t, "Actor", sel[2].TypeCondition)
}

func TestParseOperation_Mutation(t *testing.T) {
	op, err := ParseOperation(`
mutation {
	createMovies(input: [{title: "The Matrix", released: 1999, rating: 8.7, featured: true}]) {
		movies { title }
	}
}`, "", nil)
	require.NoError(t, err)

	assert.Equal(t, KindMutation, op.Kind)
	input, _ := op.Field.Arg("input")
	assert.Equal(t, []any{map[string]any{
		"title":    "The Matrix",
		"released": int64(1999),
		"rating":   8.7,
		"featured": true,
	}}, input)
}

func TestParseOperation_Named(t *testing.T) {
	src := `
query A { movies { title } }
query B { actors { name } }
`
	op, err := ParseOperation(src, "B", nil)
	require.NoError(t, err)
	assert.Equal(t, "actors", op.Field.Name)

	_, err = ParseOperation(src, "", nil)
	assert.Error(t, err)

	_, err = ParseOperation(src, "C", nil)
	assert.Error(t, err)
}

func TestParseOperation_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `{ movies { title }`},
		{"subscription", `subscription { movieCreated { title } }`},
		{"two root fields", `{ movies { title } actors { name } }`},
		{"unknown fragment", `{ movies { ...missing } }`},
		{"fragment cycle", `{ movies { ...a } } fragment a on Movie { ...a }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOperation(tt.src, "", nil)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestParseError_Error(t *testing.T) {
	assert.Equal(t, "3:5: bad", (&ParseError{Message: "bad", Line: 3, Column: 5}).Error())
	assert.Equal(t, "bad", (&ParseError{Message: "bad"}).Error())
}
