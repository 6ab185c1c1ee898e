package translate

import (
	"slices"

	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/scope"
)

// project appends the subqueries a selection needs to q and returns the
// map projection of the context target. path holds the response keys from
// the result column down to the projected value.
func (l *lowerer) project(q *cypher.Query, ctx *scope.Context, sels []queryir.Selection, path []string) (cypher.Expr, error) {
	node := ctx.Target()
	var items []cypher.MapItem
	for _, sel := range sels {
		key := sel.ResponseKey()
		var (
			value cypher.Expr
			err   error
		)
		switch sel := sel.(type) {
		case *queryir.AttributeSelection:
			if key == sel.Attribute.Stored() {
				items = append(items, cypher.MapItem{Key: key})
				continue
			}
			value = cypher.Prop(node, sel.Attribute.Stored())
		case *queryir.TypenameSelection:
			value = cypher.Literal{Value: sel.Type}
		case *queryir.RelationshipSelection:
			value, err = l.relationship(q, ctx, sel, appendPath(path, key))
		case *queryir.ConnectionSelection:
			value, err = l.connection(q, ctx, sel, appendPath(path, key))
		case *queryir.PolymorphicSelection:
			value, err = l.polymorphic(q, ctx, sel, appendPath(path, key))
		case *queryir.AggregationSelection:
			value, err = l.aggregation(q, ctx, sel)
		case *queryir.CustomFieldSelection:
			value, err = l.customField(q, ctx, sel, appendPath(path, key))
		default:
			err = unexpected(sel)
		}
		if err != nil {
			return nil, err
		}
		items = append(items, cypher.MapItem{Key: key, Value: value})
	}
	if len(items) == 0 {
		return cypher.MapLiteral{}, nil
	}
	return cypher.MapProjection{Subject: node, Items: items}, nil
}

func appendPath(path []string, keys ...string) []string {
	return slices.Concat(path, keys)
}

// relationship appends
//
//	CALL {
//	    WITH parent
//	    MATCH (parent)-[:TYPE]->(node:Label)
//	    WHERE ...
//	    [WITH node ORDER BY ... SKIP ... LIMIT ...]
//	    ...
//	    RETURN collect(node { ... }) AS var
//	}
//
// To-one relationships return the head of the collection.
func (l *lowerer) relationship(q *cypher.Query, ctx *scope.Context, sel *queryir.RelationshipSelection, path []string) (cypher.Expr, error) {
	parent := ctx.Target()
	out := l.fresh("var")
	node := l.fresh("this")
	child := ctx.WithTarget(node)

	body := cypher.NewSubquery(parent)
	anchor := body.Match(nil, relPattern(parent, sel.Relationship, "", node, sel.Target.NodeLabels()))
	if err := l.match(body, anchor, node, sel.Auth, bound{sel.Filter, node}); err != nil {
		return nil, err
	}

	if sel.Relationship.Many && (len(sel.Sort) > 0 || sel.Page != nil) {
		order, skip, limit := l.paging(sel.Sort, sel.Page, func(s *queryir.Sort) cypher.Expr {
			return cypher.Prop(node, s.Attribute.Stored())
		})
		body.With(&cypher.With{Items: []cypher.Item{cypher.Pass(node)}, OrderBy: order, Skip: skip, Limit: limit})
	}

	proj, err := l.project(body, child, sel.Selections, path)
	if err != nil {
		return nil, err
	}
	body.ReturnItems(cypher.As(single(sel.Relationship.Many, collect(proj)), out))
	q.Call(body)
	return out, nil
}

// single reduces a collection to its first element for to-one fields.
func single(many bool, list cypher.Expr) cypher.Expr {
	if many {
		return list
	}
	return cypher.Fn("head", list)
}

func (l *lowerer) customField(q *cypher.Query, ctx *scope.Context, sel *queryir.CustomFieldSelection, path []string) (cypher.Expr, error) {
	cf := sel.Field
	return l.customCall(q, ctx.Target(), cf, func(body *cypher.Query, col cypher.Variable) (cypher.Expr, error) {
		if sel.Target == nil {
			return single(cf.List, collect(col)), nil
		}
		node := l.fresh("this")
		body.With(&cypher.With{Items: []cypher.Item{cypher.As(col, node)}})
		proj, err := l.project(body, ctx.WithTarget(node), sel.Selections, path)
		if err != nil {
			return nil, err
		}
		return single(cf.List, collect(proj)), nil
	})
}

// attributeProjection projects plain attributes of a relationship-property
// entity.
func attributeProjection(v cypher.Variable, sels []queryir.Selection) cypher.Expr {
	var items []cypher.MapItem
	for _, sel := range sels {
		switch sel := sel.(type) {
		case *queryir.AttributeSelection:
			if sel.Key == sel.Attribute.Stored() {
				items = append(items, cypher.MapItem{Key: sel.Key})
			} else {
				items = append(items, cypher.MapItem{Key: sel.Key, Value: cypher.Prop(v, sel.Attribute.Stored())})
			}
		case *queryir.TypenameSelection:
			items = append(items, cypher.MapItem{Key: sel.Key, Value: cypher.Literal{Value: sel.Type}})
		}
	}
	if len(items) == 0 {
		return cypher.MapLiteral{}
	}
	return cypher.MapProjection{Subject: v, Items: items}
}
