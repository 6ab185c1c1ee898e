package translate

import (
	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
	"github.com/roach88/cypherc/internal/scope"
)

var binaryOps = map[queryir.Operator]cypher.BinaryOp{
	queryir.OpEq:          cypher.OpEq,
	queryir.OpIn:          cypher.OpIn,
	queryir.OpLt:          cypher.OpLt,
	queryir.OpLte:         cypher.OpLte,
	queryir.OpGt:          cypher.OpGt,
	queryir.OpGte:         cypher.OpGte,
	queryir.OpContains:    cypher.OpContains,
	queryir.OpStartsWith:  cypher.OpStartsWith,
	queryir.OpEndsWith:    cypher.OpEndsWith,
	queryir.OpMatches:     cypher.OpMatches,
	queryir.OpDistanceEq:  cypher.OpEq,
	queryir.OpDistanceLt:  cypher.OpLt,
	queryir.OpDistanceLte: cypher.OpLte,
	queryir.OpDistanceGt:  cypher.OpGt,
	queryir.OpDistanceGte: cypher.OpGte,
}

// filter lowers f over node. q receives any CALLs the predicate reads; it
// is nil where no clause can be added, such as inside a list predicate.
func (l *lowerer) filter(q *cypher.Query, node cypher.Variable, f queryir.Filter) (cypher.Expr, error) {
	switch f := f.(type) {
	case nil:
		return nil, nil
	case *queryir.PropertyFilter:
		return l.property(node, f), nil
	case *queryir.LogicalFilter:
		subs := make([]cypher.Expr, 0, len(f.Filters))
		for _, sub := range f.Filters {
			e, err := l.filter(q, node, sub)
			if err != nil {
				return nil, err
			}
			subs = append(subs, e)
		}
		switch f.Op {
		case queryir.LogicalOr:
			return cypher.OrOf(subs...), nil
		case queryir.LogicalNot:
			if e := cypher.AndOf(subs...); e != nil {
				return cypher.Not{Expr: e}, nil
			}
			// an unconstrained operand matches every row
			return cypher.Literal{Value: false}, nil
		default:
			return cypher.AndOf(subs...), nil
		}
	case *queryir.RelationshipFilter:
		return l.relationshipFilter(node, f)
	case *queryir.ExistenceFilter:
		var exists []cypher.Expr
		for _, t := range f.Targets {
			inner := cypher.NewInnerQuery(node)
			inner.Match(nil, relPattern(node, f.Relationship, "", "", t.NodeLabels()))
			exists = append(exists, cypher.Exists{Query: inner})
		}
		e := cypher.OrOf(exists...)
		if e == nil {
			return cypher.Literal{Value: f.Exists}, nil
		}
		if !f.Exists {
			return cypher.Not{Expr: e}, nil
		}
		return e, nil
	case *queryir.CountFilter:
		return l.countFilter(node, f), nil
	case *queryir.CustomFieldFilter:
		return l.customFilter(q, node, f)
	case *queryir.ClaimFilter:
		claim := l.claim(f.Path)
		value := l.params.Add(f.Value)
		switch f.Operator {
		case queryir.OpIncludes:
			return cypher.Binary{Op: cypher.OpIn, Left: value, Right: claim}, nil
		case queryir.OpEq:
			if f.Value == nil {
				return cypher.IsNull{Expr: claim}, nil
			}
		}
		return cypher.Binary{Op: binaryOps[f.Operator], Left: claim, Right: value}, nil
	case *queryir.AuthenticatedFilter:
		return cypher.Eq(l.params.Keyed("isAuthenticated", l.claims.Authenticated()), cypher.Literal{Value: true}), nil
	default:
		return nil, unexpected(f)
	}
}

// claim returns the shared parameter holding a claim value, null when the
// request lacks it.
func (l *lowerer) claim(path string) cypher.Param {
	v, _ := l.claims.Lookup(path)
	return l.params.Keyed("jwt."+path, request.Normalize(v))
}

func (l *lowerer) value(v any) cypher.Expr {
	if ref, ok := v.(queryir.ClaimRef); ok {
		return l.claim(ref.Path)
	}
	return l.params.Add(v)
}

func (l *lowerer) property(node cypher.Variable, f *queryir.PropertyFilter) cypher.Expr {
	prop := cypher.Prop(node, f.Attribute.Stored())
	switch {
	case f.Operator.Distance():
		dv := f.Value.(queryir.DistanceValue)
		dist := cypher.Fn("point.distance", prop, cypher.Fn("point", l.params.Add(dv.Point)))
		return cypher.Binary{Op: binaryOps[f.Operator], Left: dist, Right: l.params.Add(dv.Distance)}
	case f.Operator == queryir.OpEq && f.Value == nil:
		return cypher.IsNull{Expr: prop}
	case f.Operator == queryir.OpIncludes:
		return cypher.Binary{Op: cypher.OpIn, Left: l.value(f.Value), Right: prop}
	default:
		return cypher.Binary{Op: binaryOps[f.Operator], Left: prop, Right: l.value(f.Value)}
	}
}

// relationshipFilter lowers a quantified relationship filter into EXISTS
// and COUNT subqueries, one per concrete target:
//
//	SOME   EXISTS { MATCH ... WHERE p }
//	NONE   NOT EXISTS { MATCH ... WHERE p }
//	ALL    NOT EXISTS { MATCH ... WHERE NOT p }
//	SINGLE COUNT { MATCH ... WHERE p } = 1
func (l *lowerer) relationshipFilter(node cypher.Variable, f *queryir.RelationshipFilter) (cypher.Expr, error) {
	var parts []cypher.Expr
	for _, t := range f.Targets {
		if f.Quantifier == queryir.QuantifierAll && t.Node == nil && f.Edge == nil {
			continue
		}
		inner := cypher.NewInnerQuery(node)
		target := l.fresh("this")
		var rel cypher.Variable
		if f.Edge != nil {
			rel = l.fresh("rel")
		}
		inner.Match(nil, relPattern(node, f.Relationship, rel, target, t.Entity.NodeLabels()))
		mark := len(inner.Clauses())
		pred, err := l.conjunction(inner, bound{t.Node, target}, bound{f.Edge, rel})
		if err != nil {
			return nil, err
		}
		if f.Quantifier == queryir.QuantifierAll {
			pred = cypher.Not{Expr: pred}
		}
		attach(inner, mark, pred)

		switch f.Quantifier {
		case queryir.QuantifierSingle:
			parts = append(parts, cypher.Count{Query: inner})
		case queryir.QuantifierSome:
			parts = append(parts, cypher.Exists{Query: inner})
		default:
			parts = append(parts, cypher.Not{Expr: cypher.Exists{Query: inner}})
		}
	}

	switch f.Quantifier {
	case queryir.QuantifierSome:
		if len(parts) == 0 {
			return cypher.Literal{Value: false}, nil
		}
		return cypher.OrOf(parts...), nil
	case queryir.QuantifierSingle:
		if len(parts) == 0 {
			return cypher.Literal{Value: false}, nil
		}
		return cypher.Eq(sum(parts), cypher.Literal{Value: 1}), nil
	default:
		if len(parts) == 0 {
			return cypher.Literal{Value: true}, nil
		}
		return cypher.AndOf(parts...), nil
	}
}

func sum(exprs []cypher.Expr) cypher.Expr {
	total := exprs[0]
	for _, e := range exprs[1:] {
		total = cypher.Binary{Op: cypher.OpAdd, Left: total, Right: e}
	}
	return total
}

func (l *lowerer) countFilter(node cypher.Variable, f *queryir.CountFilter) cypher.Expr {
	var counts []cypher.Expr
	for _, t := range f.Targets {
		inner := cypher.NewInnerQuery(node)
		inner.Match(nil, relPattern(node, f.Relationship, "", "", t.NodeLabels()))
		counts = append(counts, cypher.Count{Query: inner})
	}
	if len(counts) == 0 {
		counts = []cypher.Expr{cypher.Literal{Value: 0}}
	}
	return cypher.Binary{Op: binaryOps[f.Operator], Left: sum(counts), Right: l.params.Add(f.Value)}
}

var listQuantifiers = map[queryir.Quantifier]cypher.ListQuantifier{
	queryir.QuantifierSome:   cypher.ListAny,
	queryir.QuantifierAll:    cypher.ListAll,
	queryir.QuantifierNone:   cypher.ListNone,
	queryir.QuantifierSingle: cypher.ListSingle,
}

// customFilter evaluates the computed field in a CALL and compares its
// collected values.
func (l *lowerer) customFilter(q *cypher.Query, node cypher.Variable, f *queryir.CustomFieldFilter) (cypher.Expr, error) {
	if q == nil {
		return nil, compileErr(ErrUnsupported, "", f.Field.Name, "computed fields cannot be filtered here")
	}
	values, err := l.customCall(q, node, f.Field, func(_ *cypher.Query, col cypher.Variable) (cypher.Expr, error) {
		return collect(col), nil
	})
	if err != nil {
		return nil, err
	}

	if f.Target != nil {
		x := l.fresh("this")
		pred, err := l.filter(nil, x, f.Node)
		if err != nil {
			return nil, err
		}
		if pred == nil {
			size := cypher.Fn("size", values)
			switch f.Quantifier {
			case queryir.QuantifierAll:
				return cypher.Literal{Value: true}, nil
			case queryir.QuantifierNone:
				return cypher.Eq(size, cypher.Literal{Value: 0}), nil
			case queryir.QuantifierSingle:
				return cypher.Eq(size, cypher.Literal{Value: 1}), nil
			default:
				return cypher.Binary{Op: cypher.OpGt, Left: size, Right: cypher.Literal{Value: 0}}, nil
			}
		}
		return cypher.ListPredicate{Quantifier: listQuantifiers[f.Quantifier], Var: x, List: values, Where: pred}, nil
	}

	if f.Operator == queryir.OpIncludes {
		return cypher.Binary{Op: cypher.OpIn, Left: l.params.Add(f.Value), Right: values}, nil
	}
	head := cypher.Fn("head", values)
	if f.Operator == queryir.OpEq && f.Value == nil {
		return cypher.IsNull{Expr: head}, nil
	}
	return cypher.Binary{Op: binaryOps[f.Operator], Left: head, Right: l.params.Add(f.Value)}, nil
}

// customCall appends
//
//	CALL {
//	    WITH node
//	    CALL { WITH node [WITH node AS this] <statement> }
//	    RETURN <finish(column)> AS out
//	}
//
// and returns out. The user statement always sees the owning node as this.
func (l *lowerer) customCall(q *cypher.Query, node cypher.Variable, cf *schema.CustomField, finish func(body *cypher.Query, col cypher.Variable) (cypher.Expr, error)) (cypher.Variable, error) {
	out := l.fresh("var")
	col := cypher.Variable(cf.Column)

	inner := cypher.NewSubquery(node)
	if node != scope.Root {
		inner.With(&cypher.With{Items: []cypher.Item{cypher.As(node, scope.Root)}})
	}
	inner.Raw(&cypher.Raw{Text: cf.Statement, Refs: []cypher.Variable{scope.Root}, Returns: []cypher.Variable{col}})

	body := cypher.NewSubquery(node)
	body.Call(inner)
	value, err := finish(body, col)
	if err != nil {
		return "", err
	}
	body.ReturnItems(cypher.As(value, out))
	q.Call(body)
	return out, nil
}
