package translate

import (
	"fmt"
	"math"
)

// ShapeKind is the form of a statement's result.
type ShapeKind int

const (
	// ShapeList returns one row per root node in column "this".
	ShapeList ShapeKind = iota
	// ShapeConnection returns one row whose "this" column is the connection.
	ShapeConnection
	// ShapeAggregate returns one row whose "this" column holds the aggregates.
	ShapeAggregate
	// ShapeMutation returns one row whose "data" column lists written nodes.
	ShapeMutation
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeList:
		return "list"
	case ShapeConnection:
		return "connection"
	case ShapeAggregate:
		return "aggregate"
	case ShapeMutation:
		return "mutation"
	default:
		return fmt.Sprintf("ShapeKind(%d)", int(k))
	}
}

// Result columns.
const (
	ColumnThis = "this"
	ColumnData = "data"
)

// Shape tells the caller how to read the result of a statement.
type Shape struct {
	Kind ShapeKind
	// Root is the response key of the root field.
	Root string
	// Column is the result column holding the response value.
	Column string
	// Connections lists every connection in the result, outermost first.
	Connections []ConnectionShape
	// Mutation is set for mutations.
	Mutation *MutationShape
}

// ConnectionShape locates a connection in the result. Path holds the
// response keys leading from a result value to the connection; list values
// along the path are descended element by element. Cursors are offsets, so
// they are filled in by Decorate rather than computed in the statement.
type ConnectionShape struct {
	Path        []string
	Offset      int64
	Edges       string // "" when edges were not requested
	Cursor      string
	PageInfo    string
	StartCursor string
	EndCursor   string
}

// pageSizeKey is the pageInfo entry carrying the number of edges on the
// page. Decorate removes it.
const pageSizeKey = "__pageSize"

// CounterField maps a response key to a driver write counter.
type CounterField struct {
	Key     string
	Counter string
}

// MutationShape describes the response of a mutation.
type MutationShape struct {
	DataKey  string
	InfoKey  string
	Counters []CounterField
}

// Decorate fills edge cursors and pageInfo cursors into a decoded result
// value in place.
func (s Shape) Decorate(value any) {
	for _, c := range s.Connections {
		for _, conn := range descend(value, c.Path) {
			decorateConnection(conn, c)
		}
	}
}

func descend(value any, path []string) []map[string]any {
	switch v := value.(type) {
	case []any:
		var out []map[string]any
		for _, item := range v {
			out = append(out, descend(item, path)...)
		}
		return out
	case map[string]any:
		if len(path) == 0 {
			return []map[string]any{v}
		}
		next, ok := v[path[0]]
		if !ok {
			return nil
		}
		return descend(next, path[1:])
	default:
		return nil
	}
}

func decorateConnection(conn map[string]any, c ConnectionShape) {
	if c.Edges != "" && c.Cursor != "" {
		edges, _ := conn[c.Edges].([]any)
		for i, e := range edges {
			if edge, ok := e.(map[string]any); ok {
				edge[c.Cursor] = EncodeCursor(c.Offset + int64(i))
			}
		}
	}
	if c.PageInfo == "" {
		return
	}
	info, ok := conn[c.PageInfo].(map[string]any)
	if !ok {
		return
	}
	size, _ := toInt64(info[pageSizeKey])
	delete(info, pageSizeKey)

	var start, end any
	if size > 0 {
		start = EncodeCursor(c.Offset)
		end = EncodeCursor(c.Offset + size - 1)
	}
	if c.StartCursor != "" {
		info[c.StartCursor] = start
	}
	if c.EndCursor != "" {
		info[c.EndCursor] = end
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
