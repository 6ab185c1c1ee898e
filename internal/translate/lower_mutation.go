package translate

import (
	"slices"

	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/schema"
	"github.com/roach88/cypherc/internal/scope"
)

// create lowers one CALL per input, then projects the created nodes:
//
//	CALL { CREATE (this0:Label) SET ... RETURN this0 }
//	CALL { CREATE (this1:Label) SET ... RETURN this1 }
//	WITH this0, this1
//	UNWIND [this0, this1] AS this
//	...
//	RETURN collect(this { ... }) AS data
func (l *lowerer) create(op *queryir.CreateOperation) (*cypher.Query, error) {
	q := cypher.NewQuery()
	created := make([]cypher.Variable, 0, len(op.Inputs))
	for _, in := range op.Inputs {
		node := l.fresh("this")
		body := cypher.NewSubquery()
		if err := l.createNode(body, node, in, cypher.Path(cypher.Node(node, in.Entity.NodeLabels()...)), nil); err != nil {
			return nil, err
		}
		body.ReturnItems(cypher.Pass(node))
		q.Call(body)
		created = append(created, node)
	}

	if op.Response.DataKey == "" {
		q.ReturnItems(cypher.As(countAll(), ColumnData))
	} else {
		items := make([]cypher.Expr, len(created))
		for i, v := range created {
			items[i] = v
		}
		q.WithVars(created...)
		q.Unwind(cypher.ListLiteral{Items: items}, scope.Root)
		if err := l.respond(q, op.Response); err != nil {
			return nil, err
		}
	}
	l.shape = mutationShape(op.Key, op.Response, ColumnData, l.shape.Connections)
	return q, nil
}

// update lowers
//
//	MATCH (this:Label)
//	WHERE ...
//	<before guards>
//	SET ...
//	<nested writes>
//	<after guards>
//	RETURN collect(this { ... }) AS data
func (l *lowerer) update(op *queryir.UpdateOperation) (*cypher.Query, error) {
	q := cypher.NewQuery()
	anchor := q.Match(nil, cypher.Path(cypher.Node(scope.Root, op.Entity.NodeLabels()...)))
	if err := l.where(q, append([]bound{{op.Filter, scope.Root}}, preAuth(op.Update.Auth, scope.Root)...)...); err != nil {
		return nil, err
	}
	if err := l.guards(q, anchor, scope.Root, op.Update.Auth, queryir.PositionValidateBefore); err != nil {
		return nil, err
	}
	if err := l.updateNode(q, scope.Root, op.Update, anchor); err != nil {
		return nil, err
	}

	if op.Response.DataKey == "" {
		q.ReturnItems(cypher.As(countAll(), ColumnData))
	} else if err := l.respond(q, op.Response); err != nil {
		return nil, err
	}
	l.shape = mutationShape(op.Key, op.Response, ColumnData, l.shape.Connections)
	return q, nil
}

// delete lowers
//
//	MATCH (this:Label)
//	WHERE ...
//	<before guards>
//	<nested deletes>
//	DETACH DELETE this
//
// The statement returns no rows; the response is read from the counters.
func (l *lowerer) delete(op *queryir.DeleteOperation) (*cypher.Query, error) {
	q := cypher.NewQuery()
	q.Match(nil, cypher.Path(cypher.Node(scope.Root, op.Entity.NodeLabels()...)))
	if err := l.where(q, append([]bound{{op.Filter, scope.Root}}, preAuth(op.Auth, scope.Root)...)...); err != nil {
		return nil, err
	}
	if err := l.guards(q, cypher.Anchor{}, scope.Root, op.Auth, queryir.PositionValidateBefore); err != nil {
		return nil, err
	}
	for _, d := range op.Nested {
		if err := l.nestedDelete(q, scope.Root, d); err != nil {
			return nil, err
		}
	}
	q.Delete(true, scope.Root)
	l.event(op.Entity, schema.OpDelete, "", nil)
	l.shape = mutationShape(op.Key, op.Response, "", nil)
	return q, nil
}

// respond projects this into the data column. READ rules of the mutated
// nodes themselves are not applied; nested selections apply their own.
func (l *lowerer) respond(q *cypher.Query, resp *queryir.MutationResponse) error {
	proj, err := l.project(q, l.root, resp.Selections, nil)
	if err != nil {
		return err
	}
	q.ReturnItems(cypher.As(collect(proj), ColumnData))
	return nil
}

func mutationShape(root string, resp *queryir.MutationResponse, column string, conns []ConnectionShape) Shape {
	ms := &MutationShape{DataKey: resp.DataKey, InfoKey: resp.InfoKey}
	for _, f := range resp.Info {
		ms.Counters = append(ms.Counters, CounterField{Key: f.Key, Counter: f.Counter})
	}
	return Shape{Kind: ShapeMutation, Root: root, Column: column, Connections: conns, Mutation: ms}
}

func setItems(v cypher.Variable, writes []queryir.PropertyWrite, params *cypher.Params) []cypher.SetItem {
	items := make([]cypher.SetItem, 0, len(writes))
	for _, w := range writes {
		prop := cypher.Prop(v, w.Attribute.Stored())
		var value cypher.Expr = params.Add(w.Value)
		switch w.Op {
		case queryir.WriteIncrement, queryir.WritePush:
			value = cypher.Binary{Op: cypher.OpAdd, Left: prop, Right: value}
		case queryir.WriteDecrement:
			value = cypher.Binary{Op: cypher.OpSub, Left: prop, Right: value}
		}
		items = append(items, cypher.SetItem{Target: prop, Value: value})
	}
	return items
}

// createNode appends CREATE pattern, where pattern binds node and, for
// nested creates, the relationship rel. Nested writes follow, then AFTER
// rules and required relationship checks.
func (l *lowerer) createNode(q *cypher.Query, node cypher.Variable, in *queryir.CreateInput, pattern cypher.Pattern, edge *edgeWrite) error {
	anchor := q.Create(pattern)
	items := setItems(node, in.Properties, l.params)
	if edge != nil {
		items = append(items, setItems(edge.rel, edge.writes, l.params)...)
	}
	if len(items) > 0 {
		anchor = q.Set(items...)
	}
	l.event(in.Entity, schema.OpCreate, "", in.Properties)

	if err := l.relationshipWrites(q, node, in.Entity, in.Relationships); err != nil {
		return err
	}
	if edge != nil {
		if err := l.guards(q, anchor, node, edge.auth, queryir.PositionValidateAfter); err != nil {
			return err
		}
	}
	if err := l.guards(q, anchor, node, in.Auth, queryir.PositionValidateAfter); err != nil {
		return err
	}
	l.integrity(q, anchor, node, in.Entity, nil)
	return nil
}

// edgeWrite carries the relationship half of a nested create.
type edgeWrite struct {
	rel    cypher.Variable
	writes []queryir.PropertyWrite
	auth   []*queryir.AuthorizationFilter
}

// updateNode applies an update input to node, already matched and filtered
// in q. anchor is the match; guards after the SET anchor to it instead.
func (l *lowerer) updateNode(q *cypher.Query, node cypher.Variable, in *queryir.UpdateInput, anchor cypher.Anchor) error {
	if len(in.Properties) > 0 {
		anchor = q.Set(setItems(node, in.Properties, l.params)...)
	}
	l.event(in.Entity, schema.OpUpdate, "", in.Properties)
	if err := l.relationshipWrites(q, node, in.Entity, in.Relationships); err != nil {
		return err
	}
	if err := l.guards(q, anchor, node, in.Auth, queryir.PositionValidateAfter); err != nil {
		return err
	}
	if len(in.Relationships) == 0 {
		return nil
	}
	touched := make([]*schema.Relationship, 0, len(in.Relationships))
	for _, rw := range in.Relationships {
		touched = append(touched, rw.Relationship)
	}
	l.integrity(q, anchor, node, in.Entity, touched)
	return nil
}

// integrity guards that every required to-one relationship of node holds
// exactly one related node. When only is non-nil, only those relationships
// are checked.
func (l *lowerer) integrity(q *cypher.Query, anchor cypher.Anchor, node cypher.Variable, entity *schema.Entity, only []*schema.Relationship) {
	for _, rel := range entity.Relationships {
		if !rel.Required || rel.Many {
			continue
		}
		if only != nil && !slices.Contains(only, rel) {
			continue
		}
		var counts []cypher.Expr
		for _, t := range l.model.Concrete(rel.Target) {
			inner := cypher.NewInnerQuery(node)
			inner.Match(nil, relPattern(node, rel, "", "", t.NodeLabels()))
			counts = append(counts, cypher.Count{Query: inner})
		}
		if len(counts) == 0 {
			continue
		}
		q.GuardAfter(anchor, cypher.Eq(sum(counts), cypher.Literal{Value: 1}), entity.Name+"."+rel.Name+" required exactly once")
	}
}

// relationshipWrites appends the nested writes of node in a fixed order:
// updates, disconnects, deletes, creates, connects.
func (l *lowerer) relationshipWrites(q *cypher.Query, node cypher.Variable, entity *schema.Entity, writes []*queryir.RelationshipWrite) error {
	for _, rw := range writes {
		for _, u := range rw.Update {
			if err := l.nestedUpdate(q, node, rw, u); err != nil {
				return err
			}
		}
		for _, d := range rw.Disconnect {
			if err := l.disconnect(q, node, entity, rw, d); err != nil {
				return err
			}
		}
		for _, d := range rw.Delete {
			if err := l.nestedDelete(q, node, d); err != nil {
				return err
			}
		}
		for _, c := range rw.Create {
			if err := l.nestedCreate(q, node, entity, rw, c); err != nil {
				return err
			}
		}
		for _, c := range rw.Connect {
			if err := l.connect(q, node, entity, rw, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// finish ends a nested write subquery with a single row so the enclosing
// row count is unchanged, and calls it from q.
func (l *lowerer) finish(q, body *cypher.Query) {
	body.ReturnItems(cypher.As(countAll(), l.fresh("var")))
	q.Call(body)
}

func (l *lowerer) nestedCreate(q *cypher.Query, parent cypher.Variable, entity *schema.Entity, rw *queryir.RelationshipWrite, c *queryir.NestedCreate) error {
	body := cypher.NewSubquery(parent)
	node := l.fresh("this")
	rel := l.fresh("rel")
	pattern := relPattern(parent, rw.Relationship, rel, node, rw.Target.NodeLabels())
	if err := l.createNode(body, node, c.Node, pattern, &edgeWrite{rel: rel, writes: c.Edge, auth: c.Auth}); err != nil {
		return err
	}
	l.event(entity, schema.OpCreateRelationship, rw.Relationship.Name, c.Edge)
	l.finish(q, body)
	return nil
}

// connect lowers
//
//	CALL {
//	    WITH parent
//	    MATCH (n:Label)
//	    WHERE ...
//	    <before guards>
//	    MERGE (parent)-[r:TYPE]->(n)
//	    SET r.x = ...
//	    <after guards>
//	    RETURN count(*) AS var
//	}
func (l *lowerer) connect(q *cypher.Query, parent cypher.Variable, entity *schema.Entity, rw *queryir.RelationshipWrite, c *queryir.Connect) error {
	body := cypher.NewSubquery(parent)
	node := l.fresh("this")
	body.Match(nil, cypher.Path(cypher.Node(node, rw.Target.NodeLabels()...)))
	if err := l.where(body, append([]bound{{c.Where, node}}, preAuth(c.Auth, node)...)...); err != nil {
		return err
	}
	if err := l.guards(body, cypher.Anchor{}, node, c.Auth, queryir.PositionValidateBefore); err != nil {
		return err
	}
	rel := l.fresh("rel")
	anchor := body.Merge(relPattern(parent, rw.Relationship, rel, node, nil))
	if len(c.Edge) > 0 {
		anchor = body.Set(setItems(rel, c.Edge, l.params)...)
	}
	if err := l.guards(body, anchor, node, c.Auth, queryir.PositionValidateAfter); err != nil {
		return err
	}
	l.event(entity, schema.OpCreateRelationship, rw.Relationship.Name, c.Edge)
	l.finish(q, body)
	return nil
}

// disconnect lowers MATCH (parent)-[r:TYPE]->(n) WHERE ... DELETE r.
func (l *lowerer) disconnect(q *cypher.Query, parent cypher.Variable, entity *schema.Entity, rw *queryir.RelationshipWrite, d *queryir.Disconnect) error {
	body := cypher.NewSubquery(parent)
	node := l.fresh("this")
	rel := l.fresh("rel")
	body.Match(nil, relPattern(parent, rw.Relationship, rel, node, rw.Target.NodeLabels()))
	if err := l.where(body, append([]bound{{d.Where, node}, {d.EdgeWhere, rel}}, preAuth(d.Auth, node)...)...); err != nil {
		return err
	}
	if err := l.guards(body, cypher.Anchor{}, node, d.Auth, queryir.PositionValidateBefore); err != nil {
		return err
	}
	anchor := body.Delete(false, rel)
	if err := l.guards(body, anchor, node, d.Auth, queryir.PositionValidateAfter); err != nil {
		return err
	}
	l.event(entity, schema.OpDeleteRelationship, rw.Relationship.Name, nil)
	l.finish(q, body)
	return nil
}

func (l *lowerer) nestedUpdate(q *cypher.Query, parent cypher.Variable, rw *queryir.RelationshipWrite, u *queryir.NestedUpdate) error {
	body := cypher.NewSubquery(parent)
	node := l.fresh("this")
	rel := l.fresh("rel")
	anchor := body.Match(nil, relPattern(parent, rw.Relationship, rel, node, rw.Target.NodeLabels()))
	if err := l.where(body, append([]bound{{u.Where, node}, {u.EdgeWhere, rel}}, preAuth(u.Update.Auth, node)...)...); err != nil {
		return err
	}
	if err := l.guards(body, anchor, node, u.Update.Auth, queryir.PositionValidateBefore); err != nil {
		return err
	}
	if len(u.Edge) > 0 {
		anchor = body.Set(setItems(rel, u.Edge, l.params)...)
	}
	if err := l.updateNode(body, node, u.Update, anchor); err != nil {
		return err
	}
	l.finish(q, body)
	return nil
}

// nestedDelete deletes the related nodes of parent after their own nested
// deletes.
func (l *lowerer) nestedDelete(q *cypher.Query, parent cypher.Variable, d *queryir.NestedDelete) error {
	body := cypher.NewSubquery(parent)
	node := l.fresh("this")
	body.Match(nil, relPattern(parent, d.Relationship, "", node, d.Target.NodeLabels()))
	if err := l.where(body, append([]bound{{d.Where, node}}, preAuth(d.Auth, node)...)...); err != nil {
		return err
	}
	if err := l.guards(body, cypher.Anchor{}, node, d.Auth, queryir.PositionValidateBefore); err != nil {
		return err
	}
	for _, nested := range d.Nested {
		if err := l.nestedDelete(body, node, nested); err != nil {
			return err
		}
	}
	body.Delete(true, node)
	l.event(d.Target, schema.OpDelete, "", nil)
	l.finish(q, body)
	return nil
}
