package translate

import (
	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/schema"
	"github.com/roach88/cypherc/internal/scope"
)

// rootMatch binds this to every node of entity, or to the fulltext index
// hits when ft is set. The returned anchor is invalid for fulltext reads.
func (l *lowerer) rootMatch(q *cypher.Query, entity *schema.Entity, ft *queryir.Fulltext) cypher.Anchor {
	if ft == nil {
		return q.Match(nil, cypher.Path(cypher.Node(scope.Root, entity.NodeLabels()...)))
	}
	q.CallProcedure(&cypher.CallProcedure{
		Name:  "db.index.fulltext.queryNodes",
		Args:  []cypher.Expr{cypher.Literal{Value: ft.Index.Name}, l.params.Add(ft.Phrase)},
		Yield: []cypher.YieldItem{{Column: "node", As: scope.Root}},
		Where: cypher.HasLabels{Subject: scope.Root, Labels: entity.NodeLabels()},
	})
	return cypher.Anchor{}
}

// read lowers a root list read:
//
//	MATCH (this:Label)
//	WHERE ...
//	[WITH * ORDER BY ... SKIP ... LIMIT ...]
//	...
//	RETURN this { ... } AS this
func (l *lowerer) read(op *queryir.ReadOperation) (*cypher.Query, error) {
	q := cypher.NewQuery()
	anchor := l.rootMatch(q, op.Entity, op.Fulltext)
	if err := l.match(q, anchor, scope.Root, op.Auth, bound{op.Filter, scope.Root}); err != nil {
		return nil, err
	}
	if len(op.Sort) > 0 || op.Page != nil {
		order, skip, limit := l.paging(op.Sort, op.Page, func(s *queryir.Sort) cypher.Expr {
			return cypher.Prop(scope.Root, s.Attribute.Stored())
		})
		q.With(&cypher.With{Star: true, OrderBy: order, Skip: skip, Limit: limit})
	}

	proj, err := l.project(q, l.root, op.Selections, nil)
	if err != nil {
		return nil, err
	}
	q.ReturnItems(cypher.As(proj, scope.Root))
	l.shape = Shape{Kind: ShapeList, Root: op.Key, Column: ColumnThis, Connections: l.shape.Connections}
	return q, nil
}

// rootConnection lowers entitiesConnection into a single row holding the
// connection.
func (l *lowerer) rootConnection(op *queryir.ConnectionOperation) (*cypher.Query, error) {
	sel := op.Selection
	q := cypher.NewQuery()
	anchor := l.rootMatch(q, sel.Target, op.Fulltext)
	if err := l.match(q, anchor, scope.Root, sel.Auth, bound{sel.NodeFilter, scope.Root}); err != nil {
		return nil, err
	}
	value, err := l.connectionValue(q, l.root, sel, nil)
	if err != nil {
		return nil, err
	}
	q.ReturnItems(cypher.As(value, scope.Root))
	l.shape = Shape{Kind: ShapeConnection, Root: sel.Key, Column: ColumnThis, Connections: l.shape.Connections}
	return q, nil
}
