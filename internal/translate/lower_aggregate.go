package translate

import (
	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/scope"
)

// aggregation lowers an aggregate selection into one CALL per requested
// value and returns the map holding them. A nil relationship aggregates
// every node of the target entity.
func (l *lowerer) aggregation(q *cypher.Query, ctx *scope.Context, sel *queryir.AggregationSelection) (cypher.Expr, error) {
	var items []cypher.MapItem
	if sel.CountKey != "" {
		v, err := l.aggregateCall(q, ctx, sel, false, func(body *cypher.Query, node, _ cypher.Variable) cypher.Expr {
			return cypher.Fn("count", node)
		})
		if err != nil {
			return nil, err
		}
		items = append(items, cypher.MapItem{Key: sel.CountKey, Value: v})
	}

	nodeItems, err := l.aggregateFields(q, ctx, sel, sel.Node, false)
	if err != nil {
		return nil, err
	}
	if sel.Relationship == nil {
		items = append(items, nodeItems...)
	} else if sel.NodeKey != "" {
		items = append(items, cypher.MapItem{Key: sel.NodeKey, Value: cypher.MapLiteral{Items: nodeItems}})
	}

	if sel.EdgeKey != "" {
		edgeItems, err := l.aggregateFields(q, ctx, sel, sel.Edge, true)
		if err != nil {
			return nil, err
		}
		items = append(items, cypher.MapItem{Key: sel.EdgeKey, Value: cypher.MapLiteral{Items: edgeItems}})
	}
	return cypher.MapLiteral{Items: items}, nil
}

func (l *lowerer) aggregateFields(q *cypher.Query, ctx *scope.Context, sel *queryir.AggregationSelection, fields []queryir.AggregateField, edge bool) ([]cypher.MapItem, error) {
	var items []cypher.MapItem
	for _, f := range fields {
		v, err := l.aggregateCall(q, ctx, sel, edge, func(body *cypher.Query, node, rel cypher.Variable) cypher.Expr {
			subject := node
			if edge {
				subject = rel
			}
			return l.measure(body, subject, f)
		})
		if err != nil {
			return nil, err
		}
		items = append(items, cypher.MapItem{Key: f.Key, Value: v})
	}
	return items, nil
}

// aggregateCall appends CALL { MATCH ... WHERE ... RETURN <value> AS var }
// and returns var.
func (l *lowerer) aggregateCall(q *cypher.Query, ctx *scope.Context, sel *queryir.AggregationSelection, edge bool, value func(body *cypher.Query, node, rel cypher.Variable) cypher.Expr) (cypher.Variable, error) {
	out := l.fresh("var")
	node := l.fresh("this")
	var rel cypher.Variable
	if edge {
		rel = l.fresh("rel")
	}

	var (
		body   *cypher.Query
		anchor cypher.Anchor
	)
	if sel.Relationship == nil {
		body = cypher.NewSubquery()
		anchor = body.Match(nil, cypher.Path(cypher.Node(node, sel.Target.NodeLabels()...)))
	} else {
		parent := ctx.Target()
		body = cypher.NewSubquery(parent)
		anchor = body.Match(nil, relPattern(parent, sel.Relationship, rel, node, sel.Target.NodeLabels()))
	}
	if err := l.match(body, anchor, node, sel.Auth, bound{sel.Filter, node}); err != nil {
		return "", err
	}
	body.ReturnItems(cypher.As(value(body, node, rel), out))
	q.Call(body)
	return out, nil
}

var aggregateFuncs = map[queryir.AggregateFunc]string{
	queryir.AggMin:     "min",
	queryir.AggMax:     "max",
	queryir.AggAverage: "avg",
	queryir.AggSum:     "sum",
}

// measure returns the map of requested measures over subject. Shortest and
// longest order the values by length first:
//
//	WITH subject ORDER BY size(subject.a) DESC
//	WITH collect(subject.a) AS list
//	RETURN { longest: head(list), shortest: last(list) }
func (l *lowerer) measure(body *cypher.Query, subject cypher.Variable, f queryir.AggregateField) cypher.Expr {
	prop := cypher.Prop(subject, f.Attribute.Stored())
	if !f.Attribute.Type.Textual() {
		var items []cypher.MapItem
		for _, m := range f.Measures {
			items = append(items, cypher.MapItem{Key: m.Key, Value: cypher.Fn(aggregateFuncs[m.Func], prop)})
		}
		return cypher.MapLiteral{Items: items}
	}

	list := l.fresh("list")
	body.With(&cypher.With{
		Items:   []cypher.Item{cypher.Pass(subject)},
		OrderBy: []cypher.Order{{Expr: cypher.Fn("size", prop), Descending: true}},
	})
	body.With(&cypher.With{Items: []cypher.Item{cypher.As(collect(prop), list)}})
	var items []cypher.MapItem
	for _, m := range f.Measures {
		fn := "head"
		if m.Func == queryir.AggShortest {
			fn = "last"
		}
		items = append(items, cypher.MapItem{Key: m.Key, Value: cypher.Fn(fn, list)})
	}
	return cypher.MapLiteral{Items: items}
}

// rootAggregate lowers entitiesAggregate into CALLs over every node.
func (l *lowerer) rootAggregate(op *queryir.AggregateOperation) (*cypher.Query, error) {
	q := cypher.NewQuery()
	value, err := l.aggregation(q, l.root, op.Selection)
	if err != nil {
		return nil, err
	}
	q.ReturnItems(cypher.As(value, scope.Root))
	l.shape = Shape{Kind: ShapeAggregate, Root: op.Selection.Key, Column: ColumnThis}
	return q, nil
}
