package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Testdata(t *testing.T) {
	m := loadMovies(t)
	assert.Empty(t, Validate(m))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown scalar",
			src:  `entity: Movie: attributes: title: type: "Text"`,
			want: ErrUnknownScalar,
		},
		{
			name: "duplicate type name",
			src: `entity: Movie: attributes: title: {}
edge: Movie: attributes: since: type: "Int"`,
			want: ErrDuplicateName,
		},
		{
			name: "field name reused by relationship",
			src: `entity: Movie: {
	attributes: actors: {}
	relationships: actors: {type: "ACTED_IN", target: "Movie"}
}`,
			want: ErrDuplicateName,
		},
		{
			name: "unknown target",
			src:  `entity: Movie: relationships: actors: {type: "ACTED_IN", target: "Actor"}`,
			want: ErrUnknownTarget,
		},
		{
			name: "bad direction",
			src:  `entity: Movie: relationships: sequel: {type: "SEQUEL", target: "Movie", direction: "BOTH"}`,
			want: ErrBadDirection,
		},
		{
			name: "unknown edge",
			src:  `entity: Movie: relationships: sequel: {type: "SEQUEL", target: "Movie", properties: "Sequel"}`,
			want: ErrUnknownEdge,
		},
		{
			name: "required many",
			src:  `entity: Movie: relationships: sequels: {type: "SEQUEL", target: "Movie", many: true, required: true}`,
			want: ErrRequiredMany,
		},
		{
			name: "unknown union member",
			src: `entity: Movie: attributes: title: {}
union: Search: members: ["Movie", "Genre"]`,
			want: ErrUnknownImplementer,
		},
		{
			name: "implementation missing interface attribute",
			src: `entity: Movie: attributes: title: {}
interface: Production: {
	attributes: runtime: type: "Int"
	implementations: ["Movie"]
}`,
			want: ErrMissingInterfaceAttr,
		},
		{
			name: "unknown rule operation",
			src:  `entity: Movie: rules: [{operations: ["PUBLISH"]}]`,
			want: ErrBadRule,
		},
		{
			name: "filter rule with timing",
			src:  `entity: Movie: rules: [{kind: "filter", when: ["AFTER"]}]`,
			want: ErrBadRule,
		},
		{
			name: "rule with nothing to check",
			src:  `entity: Movie: rules: [{requireAuthenticated: false}]`,
			want: ErrBadRule,
		},
		{
			name: "fulltext on numeric attribute",
			src: `entity: Movie: {
	attributes: released: type: "Int"
	fulltext: MovieReleased: ["released"]
}`,
			want: ErrBadFulltext,
		},
		{
			name: "computed field without result type",
			src:  `entity: Movie: computed: score: {statement: "RETURN 1 AS s", column: "s"}`,
			want: ErrBadCustomField,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := LoadSource(tt.src)
			require.NoError(t, err)
			errs := Validate(m)
			require.NotEmpty(t, errs)
			assert.Contains(t, codes(errs), tt.want)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "entity.Movie", Message: "bad", Code: ErrBadRule}
	assert.Equal(t, "[E109] entity.Movie: bad", err.Error())
}
