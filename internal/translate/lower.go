package translate

import (
	"fmt"

	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
	"github.com/roach88/cypherc/internal/scope"
)

// lowerer turns a planned operation into a clause tree. One lowerer serves
// one compilation: it owns the variable counter, the parameter table, the
// result shape and the mutation events.
type lowerer struct {
	model  *schema.Model
	claims request.Claims
	root   *scope.Context
	params *cypher.Params
	shape  Shape
	events []Event
}

func newLowerer(model *schema.Model, claims request.Claims) *lowerer {
	return &lowerer{
		model:  model,
		claims: claims,
		root:   scope.New(),
		params: cypher.NewParams(),
	}
}

func (l *lowerer) fresh(hint string) cypher.Variable {
	return l.root.Fresh(hint)
}

func (l *lowerer) operation(op queryir.Operation) (*cypher.Query, error) {
	var (
		q   *cypher.Query
		err error
	)
	switch op := op.(type) {
	case *queryir.ReadOperation:
		q, err = l.read(op)
	case *queryir.ConnectionOperation:
		q, err = l.rootConnection(op)
	case *queryir.AggregateOperation:
		q, err = l.rootAggregate(op)
	case *queryir.CreateOperation:
		q, err = l.create(op)
	case *queryir.UpdateOperation:
		q, err = l.update(op)
	case *queryir.DeleteOperation:
		q, err = l.delete(op)
	default:
		return nil, compileErr(ErrUnsupported, "", "", "unsupported operation %T", op)
	}
	if err != nil {
		return nil, err
	}
	if err := q.Err(); err != nil {
		return nil, buildErr(err)
	}
	return q, nil
}

// bound pairs a filter with the variable it constrains.
type bound struct {
	filter queryir.Filter
	node   cypher.Variable
}

// conjunction lowers every bound filter and ANDs the results. Filters that
// need computed values append their CALLs to q.
func (l *lowerer) conjunction(q *cypher.Query, filters ...bound) (cypher.Expr, error) {
	var preds []cypher.Expr
	for _, b := range filters {
		e, err := l.filter(q, b.node, b.filter)
		if err != nil {
			return nil, err
		}
		preds = append(preds, e)
	}
	return cypher.AndOf(preds...), nil
}

// attach makes pred the WHERE of the clause at mark. When clauses were
// appended after mark the predicate moves to a WITH * WHERE so that it can
// read their results.
func attach(q *cypher.Query, mark int, pred cypher.Expr) {
	if pred == nil {
		return
	}
	if len(q.Clauses()) > mark {
		q.With(&cypher.With{Star: true, Where: pred})
		return
	}
	q.Where(pred)
}

// where lowers and attaches filters to the clause just appended to q.
func (l *lowerer) where(q *cypher.Query, filters ...bound) error {
	mark := len(q.Clauses())
	pred, err := l.conjunction(q, filters...)
	if err != nil {
		return err
	}
	attach(q, mark, pred)
	return nil
}

// relPattern is (from)-[r:TYPE]->(to:Labels) oriented by the relationship
// direction as declared on the owning entity.
func relPattern(from cypher.Variable, rel *schema.Relationship, r, to cypher.Variable, labels []string) cypher.Pattern {
	dir := cypher.Outgoing
	if rel.Direction == schema.DirectionIn {
		dir = cypher.Incoming
	}
	return cypher.Path(cypher.Node(from)).Related(
		cypher.RelPattern{Var: r, Type: rel.Type, Direction: dir},
		cypher.Node(to, labels...),
	)
}

// paging returns ORDER BY items and SKIP/LIMIT expressions. subject maps a
// sort onto the expression it orders by.
func (l *lowerer) paging(sorts []*queryir.Sort, page *queryir.Pagination, subject func(*queryir.Sort) cypher.Expr) ([]cypher.Order, cypher.Expr, cypher.Expr) {
	var order []cypher.Order
	for _, s := range sorts {
		order = append(order, cypher.Order{Expr: subject(s), Descending: s.Descending})
	}
	var skip, limit cypher.Expr
	if page != nil {
		if page.Offset > 0 {
			skip = l.params.Add(page.Offset)
		}
		if page.Limit != nil {
			limit = l.params.Add(*page.Limit)
		}
	}
	return order, skip, limit
}

func countAll() cypher.Func {
	return cypher.Fn("count", cypher.Star{})
}

func collect(e cypher.Expr) cypher.Func {
	return cypher.Fn("collect", e)
}

// event records one mutation branch.
func (l *lowerer) event(entity *schema.Entity, op schema.Operation, rel string, writes []queryir.PropertyWrite) {
	var props []string
	for _, w := range writes {
		props = append(props, w.Attribute.Stored())
	}
	l.events = append(l.events, Event{Type: entity.Name, Operation: op, Relationship: rel, Properties: props})
}

func unexpected(v any) error {
	return compileErr(ErrUnsupported, "", "", "%s", fmt.Sprintf("unexpected IR node %T", v))
}
