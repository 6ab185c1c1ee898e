package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadMovies(t *testing.T) *Model {
	t.Helper()
	m, err := LoadDir("testdata")
	require.NoError(t, err)
	return m
}

func TestLoadDir_Entities(t *testing.T) {
	m := loadMovies(t)

	require.Len(t, m.Entities, 3)
	assert.Equal(t, "Movie", m.Entities[0].Name)
	assert.Equal(t, "Actor", m.Entities[1].Name)
	assert.Equal(t, "Director", m.Entities[2].Name)

	movie, ok := m.Entity("Movie")
	require.True(t, ok)
	assert.Equal(t, []string{"Movie"}, movie.NodeLabels())

	names := make([]string, len(movie.Attributes))
	for i, a := range movie.Attributes {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"title", "released", "headline", "tags", "owner"}, names)

	headline, ok := movie.Attribute("headline")
	require.True(t, ok)
	assert.Equal(t, "title", headline.Stored())
	assert.False(t, headline.Filterable)
	assert.True(t, headline.Sortable)

	tags, _ := movie.Attribute("tags")
	assert.True(t, tags.List)

	released, _ := movie.Attribute("released")
	assert.Equal(t, TypeInt, released.Type)
	assert.Equal(t, "released", released.Stored())

	assert.Len(t, movie.AttributesStoredAs("title"), 2)
}

func TestLoadDir_Relationships(t *testing.T) {
	m := loadMovies(t)
	movie, _ := m.Entity("Movie")

	actors, ok := movie.Relationship("actors")
	require.True(t, ok)
	assert.Equal(t, "ACTED_IN", actors.Type)
	assert.Equal(t, DirectionIn, actors.Direction)
	assert.True(t, actors.Many)
	assert.Equal(t, "ActedIn", actors.Properties)

	director, ok := movie.Relationship("director")
	require.True(t, ok)
	assert.Equal(t, DirectionIn, director.Direction)
	assert.True(t, director.Required)
	assert.False(t, director.Many)

	edge, ok := m.Edge("ActedIn")
	require.True(t, ok)
	assert.True(t, edge.Edge)
	roles, ok := edge.Attribute("roles")
	require.True(t, ok)
	assert.True(t, roles.List)
}

func TestLoadDir_ComputedAndFulltext(t *testing.T) {
	m := loadMovies(t)
	movie, _ := m.Entity("Movie")

	cf, ok := movie.CustomField("actorCount")
	require.True(t, ok)
	assert.Equal(t, "result", cf.Column)
	assert.Equal(t, TypeInt, cf.Type)
	assert.Contains(t, cf.Statement, "count(a)")

	idx, ok := movie.FulltextIndex("MovieTitle")
	require.True(t, ok)
	assert.Equal(t, []string{"title"}, idx.Fields)
}

func TestLoadDir_Rules(t *testing.T) {
	m := loadMovies(t)
	movie, _ := m.Entity("Movie")
	require.Len(t, movie.Rules, 2)

	filter := movie.Rules[0]
	assert.Equal(t, RuleFilter, filter.Kind)
	assert.True(t, filter.Applies(OpRead))
	assert.False(t, filter.Applies(OpUpdate))
	assert.True(t, filter.RequireAuthenticated)
	require.NotNil(t, filter.Where)
	assert.Equal(t, map[string]any{"owner": "$jwt.sub"}, filter.Where.Node)

	validate := movie.Rules[1]
	assert.Equal(t, RuleValidate, validate.Kind)
	assert.True(t, validate.At(TimingBefore))
	assert.False(t, validate.At(TimingAfter))
	assert.Equal(t, map[string]any{"roles_INCLUDES": "admin"}, validate.Where.JWT)
}

func TestLoadDir_PolymorphicAndClaims(t *testing.T) {
	m := loadMovies(t)

	assert.True(t, m.Polymorphic("Production"))
	assert.True(t, m.Polymorphic("Credit"))
	assert.False(t, m.Polymorphic("Movie"))

	credit := m.Concrete("Credit")
	require.Len(t, credit, 2)
	assert.Equal(t, "Movie", credit[0].Name)
	assert.Equal(t, "Actor", credit[1].Name)

	movie, _ := m.Entity("Movie")
	assert.Equal(t, []string{"Production"}, movie.Implements)
	assert.Equal(t, []*Entity{movie}, m.Concrete("Movie"))
	assert.Empty(t, m.Concrete("Nothing"))

	sub, ok := m.Claim("sub")
	require.True(t, ok)
	assert.Equal(t, ClaimType{Type: TypeString}, sub)
	roles, ok := m.Claim("roles")
	require.True(t, ok)
	assert.Equal(t, ClaimType{Type: TypeString, List: true}, roles)
}

func TestLoadSource_DefaultRuleValues(t *testing.T) {
	m, err := LoadSource(`
entity: Post: {
	attributes: body: {}
	rules: [{kind: "validate"}]
}
`)
	require.NoError(t, err)

	post, _ := m.Entity("Post")
	body, _ := post.Attribute("body")
	assert.Equal(t, TypeString, body.Type)
	assert.True(t, body.Filterable)

	require.Len(t, post.Rules, 1)
	r := post.Rules[0]
	assert.Equal(t, AllOperations, r.Operations)
	assert.Equal(t, []Timing{TimingBefore, TimingAfter}, r.When)
	assert.True(t, r.RequireAuthenticated)
	assert.Nil(t, r.Where)
}

func TestLoadSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"invalid cue", `entity: Movie: {`},
		{"relationship without type", `entity: Movie: relationships: actors: target: "Actor"`},
		{"unknown claim type", `claims: sub: "Text"`},
		{"bad rule predicate key", `entity: Movie: rules: [{where: other: {}}]`},
		{"computed without column", `entity: Movie: computed: x: statement: "RETURN 1 AS y"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSource(tt.src)
			assert.Error(t, err)
		})
	}
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package model\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.cue"), []byte("package model\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	files, err := FindFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.cue"),
		filepath.Join(dir, "nested", "b.cue"),
	}, files)

	files, err = FindFiles(dir, "*.cue")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue")}, files)

	_, err = FindFiles(filepath.Join(dir, "missing"), "")
	assert.Error(t, err)
}

func TestLoadDir_SplitAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "types"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.cue"),
		[]byte("package model\n\nentity: Movie: attributes: title: type: \"String\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "types", "actor.cue"),
		[]byte("package model\n\nentity: Actor: attributes: name: type: \"String\"\n"), 0o644))

	m, err := LoadDir(dir)
	require.NoError(t, err)
	_, ok := m.Entity("Movie")
	assert.True(t, ok)
	_, ok = m.Entity("Actor")
	assert.True(t, ok)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.Error(t, err)
}
