package translate

import (
	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/scope"
)

// connection lowers a relationship connection into a CALL returning the
// connection map.
func (l *lowerer) connection(q *cypher.Query, ctx *scope.Context, sel *queryir.ConnectionSelection, path []string) (cypher.Expr, error) {
	parent := ctx.Target()
	out := l.fresh("var")
	node := l.fresh("this")
	rel := l.fresh("rel")

	body := cypher.NewSubquery(parent)
	anchor := body.Match(nil, relPattern(parent, sel.Relationship, rel, node, sel.Target.NodeLabels()))
	if err := l.match(body, anchor, node, sel.Auth, bound{sel.NodeFilter, node}, bound{sel.EdgeFilter, rel}); err != nil {
		return nil, err
	}
	value, err := l.connectionValue(body, ctx.WithTarget(node).WithRole(scope.RoleRelationship, rel), sel, path)
	if err != nil {
		return nil, err
	}
	body.ReturnItems(cypher.As(value, out))
	q.Call(body)
	return out, nil
}

// connectionValue folds the rows matched so far into a connection:
//
//	WITH collect({ node: n, relationship: r }) AS edges
//	WITH edges, size(edges) AS totalCount
//	CALL {
//	    WITH edges
//	    UNWIND edges AS edge
//	    WITH edge.node AS n, edge.relationship AS r ORDER BY ... SKIP ... LIMIT ...
//	    RETURN collect({ node: n { ... }, properties: r { ... } }) AS page
//	}
//
// totalCount is taken before pagination. Cursors are offsets and are filled
// in by Shape.Decorate.
func (l *lowerer) connectionValue(q *cypher.Query, ctx *scope.Context, sel *queryir.ConnectionSelection, path []string) (cypher.Expr, error) {
	l.shape.Connections = append(l.shape.Connections, connectionShape(sel, path))

	node := ctx.Target()
	rel, hasRel := ctx.Role(scope.RoleRelationship)

	edges := l.fresh("edges")
	entry := []cypher.MapItem{{Key: "node", Value: node}}
	if hasRel {
		entry = append(entry, cypher.MapItem{Key: "relationship", Value: rel})
	}
	q.With(&cypher.With{Items: []cypher.Item{cypher.As(collect(cypher.MapLiteral{Items: entry}), edges)}})
	total := l.fresh("totalCount")
	q.With(&cypher.With{Items: []cypher.Item{cypher.Pass(edges), cypher.As(cypher.Fn("size", edges), total)}})

	var items []cypher.MapItem
	if sel.Edges != nil || sel.PageInfo != nil {
		inner := cypher.NewSubquery(edges)
		edge := l.fresh("edge")
		inner.Unwind(edges, edge)

		n := l.fresh("this")
		with := []cypher.Item{cypher.As(cypher.Property{Subject: edge, Key: "node"}, n)}
		var r cypher.Variable
		if hasRel {
			r = l.fresh("rel")
			with = append(with, cypher.As(cypher.Property{Subject: edge, Key: "relationship"}, r))
		}
		order, skip, limit := l.paging(sel.Sort, sel.Page, func(s *queryir.Sort) cypher.Expr {
			if s.Edge {
				return cypher.Prop(r, s.Attribute.Stored())
			}
			return cypher.Prop(n, s.Attribute.Stored())
		})
		inner.With(&cypher.With{Items: with, OrderBy: order, Skip: skip, Limit: limit})

		page := l.fresh("var")
		var size cypher.Expr = page
		if sel.Edges != nil {
			var fields []cypher.MapItem
			if sel.Edges.NodeKey != "" {
				proj, err := l.project(inner, ctx.WithTarget(n), sel.Edges.Node, appendPath(path, sel.Edges.Key, sel.Edges.NodeKey))
				if err != nil {
					return nil, err
				}
				fields = append(fields, cypher.MapItem{Key: sel.Edges.NodeKey, Value: proj})
			}
			if sel.Edges.PropertiesKey != "" && hasRel {
				fields = append(fields, cypher.MapItem{Key: sel.Edges.PropertiesKey, Value: attributeProjection(r, sel.Edges.Properties)})
			}
			inner.ReturnItems(cypher.As(collect(cypher.MapLiteral{Items: fields}), page))
			size = cypher.Fn("size", page)
			items = append(items, cypher.MapItem{Key: sel.Edges.Key, Value: page})
		} else {
			inner.ReturnItems(cypher.As(countAll(), page))
		}
		q.Call(inner)

		if sel.PageInfo != nil {
			var offset cypher.Expr = cypher.Literal{Value: int64(0)}
			if skip != nil {
				offset = skip
			}
			items = append(items, cypher.MapItem{Key: sel.PageInfo.Key, Value: pageInfoMap(sel.PageInfo, offset, size, total)})
		}
	}
	if sel.TotalCount != "" {
		items = append(items, cypher.MapItem{Key: sel.TotalCount, Value: total})
	}
	return cypher.MapLiteral{Items: items}, nil
}

func pageInfoMap(info *queryir.PageInfoSelection, offset, size, total cypher.Expr) cypher.Expr {
	var items []cypher.MapItem
	for _, f := range info.Fields {
		switch f.Name {
		case "hasNextPage":
			next := cypher.Binary{Op: cypher.OpLt, Left: cypher.Binary{Op: cypher.OpAdd, Left: offset, Right: size}, Right: total}
			items = append(items, cypher.MapItem{Key: f.Key, Value: next})
		case "hasPreviousPage":
			prev := cypher.Binary{Op: cypher.OpGt, Left: offset, Right: cypher.Literal{Value: int64(0)}}
			items = append(items, cypher.MapItem{Key: f.Key, Value: prev})
		}
	}
	items = append(items, cypher.MapItem{Key: pageSizeKey, Value: size})
	return cypher.MapLiteral{Items: items}
}

func connectionShape(sel *queryir.ConnectionSelection, path []string) ConnectionShape {
	cs := ConnectionShape{Path: path}
	if sel.Page != nil {
		cs.Offset = sel.Page.Offset
	}
	if sel.Edges != nil {
		cs.Edges, cs.Cursor = sel.Edges.Key, sel.Edges.CursorKey
	}
	if sel.PageInfo != nil {
		cs.PageInfo = sel.PageInfo.Key
		for _, f := range sel.PageInfo.Fields {
			switch f.Name {
			case "startCursor":
				cs.StartCursor = f.Key
			case "endCursor":
				cs.EndCursor = f.Key
			}
		}
	}
	return cs
}
