package translate

import (
	"slices"

	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/scope"
)

// polymorphic lowers an interface or union relationship into one UNION
// branch per concrete type. Every branch returns its projection under the
// same name, plus one column per sort key; sorting and pagination apply to
// the combined rows. Each row is
// tagged with its concrete type and element id so callers can dispatch it.
//
//	CALL {
//	    WITH parent
//	    CALL {
//	        WITH parent
//	        MATCH (parent)-[:TYPE]->(a:A) ...
//	        RETURN a { __resolveType: "A", __id: elementId(a), ... } AS row, a.key AS sort
//	        UNION
//	        WITH parent
//	        MATCH (parent)-[:TYPE]->(b:B) ...
//	        RETURN b { __resolveType: "B", __id: elementId(b), ... } AS row, b.key AS sort
//	    }
//	    WITH row, sort ORDER BY sort SKIP ... LIMIT ...
//	    RETURN collect(row) AS var
//	}
func (l *lowerer) polymorphic(q *cypher.Query, ctx *scope.Context, sel *queryir.PolymorphicSelection, path []string) (cypher.Expr, error) {
	if len(sel.Branches) == 0 {
		if sel.Relationship.Many {
			return cypher.ListLiteral{}, nil
		}
		return cypher.Literal{}, nil
	}

	parent := ctx.Target()
	out := l.fresh("var")
	row := l.fresh("var")
	paged := sel.Relationship.Many && (len(sel.Sort) > 0 || sel.Page != nil)
	var sortVars []cypher.Variable
	if paged {
		for range sel.Sort {
			sortVars = append(sortVars, l.fresh("var"))
		}
	}

	branches := make([]*cypher.Query, 0, len(sel.Branches))
	for _, b := range sel.Branches {
		node := l.fresh("this")
		bq := cypher.NewSubquery(parent)
		anchor := bq.Match(nil, relPattern(parent, sel.Relationship, "", node, b.Target.NodeLabels()))
		if err := l.match(bq, anchor, node, b.Auth, bound{b.Filter, node}); err != nil {
			return nil, err
		}
		proj, err := l.project(bq, ctx.WithTarget(node), b.Selections, path)
		if err != nil {
			return nil, err
		}
		items := []cypher.Item{cypher.As(discriminate(proj, node, b.Target.Name), row)}
		for i, v := range sortVars {
			items = append(items, cypher.As(cypher.Prop(node, b.SortBy[i].Stored()), v))
		}
		bq.ReturnItems(items...)
		branches = append(branches, bq)
	}

	body := cypher.NewSubquery(parent)
	body.Call(cypher.UnionOf(branches...))
	if paged {
		order, skip, limit := l.paging(sel.Sort, sel.Page, func(s *queryir.Sort) cypher.Expr {
			return sortVars[slices.Index(sel.Sort, s)]
		})
		items := []cypher.Item{cypher.Pass(row)}
		for _, v := range sortVars {
			items = append(items, cypher.Pass(v))
		}
		body.With(&cypher.With{Items: items, OrderBy: order, Skip: skip, Limit: limit})
	}
	body.ReturnItems(cypher.As(single(sel.Relationship.Many, collect(row)), out))
	q.Call(body)
	return out, nil
}

// Keys of the discriminator every polymorphic row carries.
const (
	KeyResolveType = "__resolveType"
	KeyElementID   = "__id"
)

func discriminate(proj cypher.Expr, node cypher.Variable, typeName string) cypher.Expr {
	items := []cypher.MapItem{
		{Key: KeyResolveType, Value: cypher.Literal{Value: typeName}},
		{Key: KeyElementID, Value: cypher.Fn("elementId", node)},
	}
	if m, ok := proj.(cypher.MapProjection); ok {
		items = append(items, m.Items...)
	}
	return cypher.MapProjection{Subject: node, Items: items}
}
