package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/schema"
)

var (
	titleAttr = &schema.Attribute{Name: "title", Type: schema.TypeString, Filterable: true, Sortable: true}
	nameAttr  = &schema.Attribute{Name: "name", Type: schema.TypeString, Filterable: true, Sortable: true}
	actorEnt  = &schema.Entity{Name: "Actor", Attributes: []*schema.Attribute{nameAttr}}
	actorsRel = &schema.Relationship{Name: "actors", Type: "ACTED_IN", Direction: schema.DirectionIn, Target: "Actor", Many: true}
	movieEnt  = &schema.Entity{
		Name:          "Movie",
		Attributes:    []*schema.Attribute{titleAttr},
		Relationships: []*schema.Relationship{actorsRel},
	}
)

func limit(n int64) *int64 { return &n }

func TestValidate_CleanRead(t *testing.T) {
	op := &ReadOperation{
		Key:    "movies",
		Entity: movieEnt,
		Filter: &PropertyFilter{Attribute: titleAttr, Operator: OpEq, Value: "The Matrix"},
		Sort:   []*Sort{{Attribute: titleAttr}},
		Page:   &Pagination{Limit: limit(10)},
		Selections: []Selection{
			&AttributeSelection{Key: "title", Attribute: titleAttr},
		},
	}

	result := Validate(op)

	assert.True(t, result.Clean())
	assert.Empty(t, result.Warnings)
}

func TestValidate_Warnings(t *testing.T) {
	toOne := &schema.Relationship{Name: "director", Type: "DIRECTED", Target: "Actor"}

	tests := []struct {
		name string
		node Node
		want string
	}{
		{
			name: "nested pagination without sort",
			node: &RelationshipSelection{
				Key: "actors", Relationship: actorsRel, Target: actorEnt,
				Page: &Pagination{Limit: limit(2)},
			},
			want: "actors: paginated without sort; row order is not guaranteed",
		},
		{
			name: "pagination on to-one",
			node: &RelationshipSelection{
				Key: "director", Relationship: toOne, Target: actorEnt,
				Page: &Pagination{Offset: 1},
			},
			want: "director: pagination on a to-one relationship has no effect",
		},
		{
			name: "limit zero",
			node: &Pagination{Limit: limit(0)},
			want: "limit 0 returns no rows",
		},
		{
			name: "authorization without predicate",
			node: &AuthorizationFilter{Position: PositionPre, Operation: schema.OpRead, Entity: "Movie"},
			want: "PRE READ authorization on Movie has no predicate",
		},
		{
			name: "empty update",
			node: &UpdateInput{Entity: movieEnt},
			want: "update of Movie changes nothing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.node)
			assert.False(t, result.Clean())
			assert.Contains(t, result.Warnings, tt.want)
		})
	}
}

func TestValidate_WarningsFromNestedNodes(t *testing.T) {
	op := &ReadOperation{
		Key:    "movies",
		Entity: movieEnt,
		Selections: []Selection{
			&RelationshipSelection{
				Key: "actors", Relationship: actorsRel, Target: actorEnt,
				Page: &Pagination{Limit: limit(0)},
			},
		},
	}

	result := Validate(op)

	require.Len(t, result.Warnings, 2)
	assert.Equal(t, "actors: paginated without sort; row order is not guaranteed", result.Warnings[0])
	assert.Equal(t, "limit 0 returns no rows", result.Warnings[1])
}

func TestValidate_IsPure(t *testing.T) {
	op := &ReadOperation{Key: "movies", Entity: movieEnt, Page: &Pagination{Limit: limit(1)}}

	first := Validate(op)
	second := Validate(op)

	assert.Equal(t, first, second)
	assert.Nil(t, op.Sort)
}
