package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShape_DecorateRoot(t *testing.T) {
	s := Shape{Connections: []ConnectionShape{{
		Offset:      3,
		Edges:       "edges",
		Cursor:      "cursor",
		PageInfo:    "pageInfo",
		StartCursor: "startCursor",
		EndCursor:   "endCursor",
	}}}
	value := map[string]any{
		"edges": []any{
			map[string]any{"node": map[string]any{"title": "a"}},
			map[string]any{"node": map[string]any{"title": "b"}},
		},
		"pageInfo": map[string]any{"hasNextPage": true, pageSizeKey: int64(2)},
	}

	s.Decorate(value)

	edges := value["edges"].([]any)
	assert.Equal(t, EncodeCursor(3), edges[0].(map[string]any)["cursor"])
	assert.Equal(t, EncodeCursor(4), edges[1].(map[string]any)["cursor"])
	assert.Equal(t, map[string]any{
		"hasNextPage": true,
		"startCursor": EncodeCursor(3),
		"endCursor":   EncodeCursor(4),
	}, value["pageInfo"])
}

func TestShape_DecorateNestedList(t *testing.T) {
	s := Shape{Connections: []ConnectionShape{{
		Path:        []string{"actorsConnection"},
		PageInfo:    "pageInfo",
		StartCursor: "start",
	}}}
	rows := []any{
		map[string]any{"actorsConnection": map[string]any{"pageInfo": map[string]any{pageSizeKey: float64(1)}}},
		map[string]any{"actorsConnection": map[string]any{"pageInfo": map[string]any{pageSizeKey: int64(0)}}},
	}

	s.Decorate(rows)

	first := rows[0].(map[string]any)["actorsConnection"].(map[string]any)["pageInfo"]
	assert.Equal(t, map[string]any{"start": EncodeCursor(0)}, first)
	// empty pages have no cursors
	second := rows[1].(map[string]any)["actorsConnection"].(map[string]any)["pageInfo"]
	assert.Equal(t, map[string]any{"start": nil}, second)
}

func TestShape_DecorateMissingPath(t *testing.T) {
	s := Shape{Connections: []ConnectionShape{{Path: []string{"missing"}, Edges: "edges", Cursor: "cursor"}}}
	value := map[string]any{"other": 1}
	s.Decorate(value)
	assert.Equal(t, map[string]any{"other": 1}, value)
}

func TestShapeKind_String(t *testing.T) {
	assert.Equal(t, "connection", ShapeConnection.String())
	assert.Equal(t, "ShapeKind(9)", ShapeKind(9).String())
}
