package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/cypherc/internal/schema"
)

func TestWalk_Order(t *testing.T) {
	name := &PropertyFilter{Attribute: nameAttr, Operator: OpEq, Value: "Keanu Reeves"}
	rel := &RelationshipFilter{
		Relationship: actorsRel,
		Quantifier:   QuantifierSome,
		Targets:      []RelationshipTarget{{Entity: actorEnt, Node: name}},
	}
	title := &AttributeSelection{Key: "title", Attribute: titleAttr}
	op := &ReadOperation{Key: "movies", Entity: movieEnt, Filter: rel, Selections: []Selection{title}}

	var visited []Node
	Walk(op, func(n Node) bool {
		visited = append(visited, n)
		return true
	})

	assert.Equal(t, []Node{op, rel, name, title}, visited)
}

func TestWalk_SkipChildren(t *testing.T) {
	name := &PropertyFilter{Attribute: nameAttr, Operator: OpEq, Value: "x"}
	rel := &RelationshipFilter{
		Relationship: actorsRel,
		Targets:      []RelationshipTarget{{Entity: actorEnt, Node: name}},
	}

	var visited []Node
	Walk(And(rel, name), func(n Node) bool {
		visited = append(visited, n)
		_, isRel := n.(*RelationshipFilter)
		return !isRel
	})

	assert.Len(t, visited, 3)
	assert.Same(t, name, visited[2].(*PropertyFilter))
}

func TestChildren_SkipsNilParts(t *testing.T) {
	assert.Empty(t, (&ReadOperation{Key: "movies", Entity: movieEnt}).Children())
	assert.Empty(t, (&NestedCreate{}).Children())
	assert.Empty(t, (&NestedUpdate{}).Children())

	in := &CreateInput{Entity: actorEnt}
	assert.Equal(t, []Node{in}, (&NestedCreate{Node: in}).Children())
}

func TestPrint(t *testing.T) {
	op := &ReadOperation{
		Key:    "movies",
		Entity: movieEnt,
		Filter: Not(&RelationshipFilter{
			Relationship: actorsRel,
			Quantifier:   QuantifierSome,
			Targets: []RelationshipTarget{{
				Entity: actorEnt,
				Node:   &PropertyFilter{Attribute: nameAttr, Operator: OpEq, Value: "Keanu Reeves"},
			}},
		}),
		Auth: []*AuthorizationFilter{{
			Position:  PositionPre,
			Operation: schema.OpRead,
			Entity:    "Movie",
			Predicate: And(&AuthenticatedFilter{}, &ClaimFilter{Path: "roles", Operator: OpIncludes, Value: "admin"}),
		}},
		Sort: []*Sort{{Attribute: titleAttr, Descending: true}},
		Page: &Pagination{Offset: 5, Limit: limit(10)},
		Selections: []Selection{
			&AttributeSelection{Key: "name", Attribute: titleAttr},
			&TypenameSelection{Key: "__typename", Type: "Movie"},
		},
	}

	want := `Read movies (Movie)
  NOT
    Relationship actors SOME [Actor]
      Property name EQ "Keanu Reeves"
  Authorization PRE READ Movie
    AND
      Authenticated
      Claim roles INCLUDES "admin"
  Sort title DESC
  Page offset=5 limit=10
  Attribute name:title
  Typename __typename = Movie
`
	assert.Equal(t, want, Print(op))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"string", "a", `"a"`},
		{"claim", ClaimRef{Path: "sub"}, "$jwt.sub"},
		{"list", []any{int64(1), "b"}, `[1, "b"]`},
		{"map sorted", map[string]any{"b": true, "a": 1.5}, "{a: 1.5, b: true}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.in))
		})
	}
}
