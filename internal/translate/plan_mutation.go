package translate

import (
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
)

// Counters reported by mutation responses.
var counterNames = []string{"nodesCreated", "nodesDeleted", "relationshipsCreated", "relationshipsDeleted"}

func (p *planner) create(entity *schema.Entity, f *request.Field) (*queryir.CreateOperation, error) {
	raw, ok := f.Arg("input")
	if !ok || raw == nil {
		return nil, compileErr(ErrInvalidMutation, entity.Name, f.Name, "input is required")
	}
	op := &queryir.CreateOperation{Key: f.Key(), Entity: entity}
	for i, item := range asList(raw) {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, f.Name, "input[%d] must be an object", i)
		}
		in, err := p.createInput(entity, m)
		if err != nil {
			return nil, err
		}
		op.Inputs = append(op.Inputs, in)
	}
	if len(op.Inputs) == 0 {
		return nil, compileErr(ErrInvalidMutation, entity.Name, f.Name, "input is empty")
	}

	var err error
	if op.Response, err = p.response(entity, f, true); err != nil {
		return nil, err
	}
	return op, nil
}

func (p *planner) update(entity *schema.Entity, f *request.Field) (*queryir.UpdateOperation, error) {
	op := &queryir.UpdateOperation{Key: f.Key(), Entity: entity}
	where, err := argMap(entity, f, "where")
	if err != nil {
		return nil, err
	}
	if op.Filter, err = p.filter(entity, where, false); err != nil {
		return nil, err
	}
	update, err := argMap(entity, f, "update")
	if err != nil {
		return nil, err
	}
	if op.Update, err = p.updateInput(entity, update); err != nil {
		return nil, err
	}
	if op.Response, err = p.response(entity, f, true); err != nil {
		return nil, err
	}
	return op, nil
}

func (p *planner) delete(entity *schema.Entity, f *request.Field) (*queryir.DeleteOperation, error) {
	op := &queryir.DeleteOperation{Key: f.Key(), Entity: entity}
	where, err := argMap(entity, f, "where")
	if err != nil {
		return nil, err
	}
	if op.Filter, err = p.filter(entity, where, false); err != nil {
		return nil, err
	}
	if op.Auth, err = p.writeAuth(entity, entityRules(entity, nil), schema.OpDelete, schema.TimingAfter); err != nil {
		return nil, err
	}
	nested, err := argMap(entity, f, "delete")
	if err != nil {
		return nil, err
	}
	if op.Nested, err = p.nestedDeletes(entity, nested); err != nil {
		return nil, err
	}
	if op.Response, err = p.response(entity, f, false); err != nil {
		return nil, err
	}
	return op, nil
}

// response plans { <plural> { ... } info { ... } } for create and update,
// and the bare counters of a delete.
func (p *planner) response(entity *schema.Entity, f *request.Field, data bool) (*queryir.MutationResponse, error) {
	resp := &queryir.MutationResponse{}
	plural := schema.NamesFor(entity.Name).Plural
	for _, sub := range f.Selections {
		switch {
		case sub.Name == "__typename":
		case data && sub.Name == plural:
			if resp.DataKey != "" {
				continue
			}
			if err := requireSelections(entity, sub); err != nil {
				return nil, err
			}
			sels, err := p.selections(entity, sub.Selections)
			if err != nil {
				return nil, err
			}
			resp.DataKey, resp.Selections = sub.Key(), sels
		case data && sub.Name == "info":
			resp.InfoKey = sub.Key()
			for _, c := range sub.Selections {
				if c.Name == "__typename" {
					continue
				}
				if !slices.Contains(counterNames, c.Name) {
					return nil, compileErr(ErrUnknownField, entity.Name, "info."+c.Name, "unknown counter")
				}
				resp.Info = append(resp.Info, queryir.InfoField{Key: c.Key(), Counter: c.Name})
			}
		case !data && slices.Contains(counterNames, sub.Name):
			resp.Info = append(resp.Info, queryir.InfoField{Key: sub.Key(), Counter: sub.Name})
		default:
			return nil, compileErr(ErrUnknownField, entity.Name, f.Name+"."+sub.Name, "unknown response field")
		}
	}
	return resp, nil
}

func (p *planner) createInput(entity *schema.Entity, m map[string]any) (*queryir.CreateInput, error) {
	in := &queryir.CreateInput{Entity: entity}
	var writes []queryir.PropertyWrite
	for _, key := range sortedKeys(m) {
		if a, ok := entity.Attribute(key); ok {
			writes = append(writes, queryir.PropertyWrite{Field: key, Attribute: a, Op: queryir.WriteSet, Value: m[key]})
			continue
		}
		rel, ok := entity.Relationship(key)
		if !ok {
			return nil, compileErr(ErrUnknownField, entity.Name, key, "unknown input field")
		}
		rw, err := p.createRelationship(entity, rel, m[key])
		if err != nil {
			return nil, err
		}
		in.Relationships = append(in.Relationships, rw)
	}

	var err error
	if in.Properties, err = checkWrites(entity, writes); err != nil {
		return nil, err
	}
	if err := requireAttributes(entity, in.Properties); err != nil {
		return nil, err
	}
	for _, rel := range entity.Relationships {
		if !rel.Required || rel.Many {
			continue
		}
		linked := slices.ContainsFunc(in.Relationships, func(rw *queryir.RelationshipWrite) bool {
			return rw.Relationship == rel && len(rw.Create)+len(rw.Connect) > 0
		})
		if !linked {
			return nil, compileErr(ErrInvalidMutation, entity.Name, rel.Name, "required relationship needs a create or connect")
		}
	}
	if in.Auth, err = p.writeAuth(entity, entityRules(entity, writtenAttributes(in.Properties)), schema.OpCreate, schema.TimingBefore); err != nil {
		return nil, err
	}
	return in, nil
}

func (p *planner) updateInput(entity *schema.Entity, m map[string]any) (*queryir.UpdateInput, error) {
	in := &queryir.UpdateInput{Entity: entity}
	var writes []queryir.PropertyWrite
	for _, key := range sortedKeys(m) {
		name, op := splitWriteKey(key)
		if a, ok := entity.Attribute(name); ok {
			w, err := propertyWrite(entity, a, key, op, m[key])
			if err != nil {
				return nil, err
			}
			writes = append(writes, w)
			continue
		}
		rel, ok := entity.Relationship(key)
		if !ok {
			return nil, compileErr(ErrUnknownField, entity.Name, key, "unknown update field")
		}
		rw, err := p.updateRelationship(entity, rel, m[key])
		if err != nil {
			return nil, err
		}
		in.Relationships = append(in.Relationships, rw)
	}

	var err error
	if in.Properties, err = checkWrites(entity, writes); err != nil {
		return nil, err
	}
	if in.Auth, err = p.writeAuth(entity, entityRules(entity, writtenAttributes(in.Properties)), schema.OpUpdate, ""); err != nil {
		return nil, err
	}
	return in, nil
}

var writeSuffixes = map[string]queryir.WriteOp{
	"_INCREMENT": queryir.WriteIncrement,
	"_DECREMENT": queryir.WriteDecrement,
	"_PUSH":      queryir.WritePush,
}

func splitWriteKey(key string) (string, queryir.WriteOp) {
	for suffix, op := range writeSuffixes {
		if name, ok := strings.CutSuffix(key, suffix); ok && name != "" {
			return name, op
		}
	}
	return key, queryir.WriteSet
}

func propertyWrite(entity *schema.Entity, a *schema.Attribute, key string, op queryir.WriteOp, value any) (queryir.PropertyWrite, error) {
	w := queryir.PropertyWrite{Field: key, Attribute: a, Op: op, Value: value}
	switch op {
	case queryir.WriteIncrement, queryir.WriteDecrement:
		if !a.Type.Numeric() || a.List {
			return w, compileErr(ErrInvalidMutation, entity.Name, key, "%s applies to numeric attributes", op)
		}
		if value == nil {
			return w, compileErr(ErrBadArgument, entity.Name, key, "%s does not accept null", op)
		}
	case queryir.WritePush:
		if !a.List {
			return w, compileErr(ErrInvalidMutation, entity.Name, key, "PUSH applies to list attributes")
		}
		if value == nil {
			return w, compileErr(ErrBadArgument, entity.Name, key, "PUSH does not accept null")
		}
		w.Value = asList(value)
	case queryir.WriteSet:
		if value == nil && a.Required {
			return w, compileErr(ErrInvalidMutation, entity.Name, key, "required attribute cannot be set to null")
		}
	}
	return w, nil
}

// checkWrites rejects two fields writing one stored property with different
// values. Identical writes collapse into the first.
func checkWrites(entity *schema.Entity, writes []queryir.PropertyWrite) ([]queryir.PropertyWrite, error) {
	var out []queryir.PropertyWrite
	seen := make(map[string]queryir.PropertyWrite)
	for _, w := range writes {
		stored := w.Attribute.Stored()
		prev, ok := seen[stored]
		if !ok {
			seen[stored] = w
			out = append(out, w)
			continue
		}
		if prev.Op != w.Op || !reflect.DeepEqual(prev.Value, w.Value) {
			return nil, compileErr(ErrAmbiguousWrite, entity.Name, w.Field,
				"%s and %s both write property %s with different values", prev.Field, w.Field, stored)
		}
	}
	return out, nil
}

func requireAttributes(entity *schema.Entity, writes []queryir.PropertyWrite) error {
	for _, a := range entity.Attributes {
		if !a.Required {
			continue
		}
		if !slices.ContainsFunc(writes, func(w queryir.PropertyWrite) bool { return w.Attribute.Stored() == a.Stored() }) {
			return compileErr(ErrInvalidMutation, entity.Name, a.Name, "required attribute is missing")
		}
	}
	return nil
}

func writtenAttributes(writes []queryir.PropertyWrite) []*schema.Attribute {
	out := make([]*schema.Attribute, 0, len(writes))
	for _, w := range writes {
		out = append(out, w.Attribute)
	}
	return out
}

// relationshipRules are the rules guarding a relationship write. They are
// read from the related entity and the relationship field and evaluated
// against the related node.
func relationshipRules(entity *schema.Entity, rel *schema.Relationship, target *schema.Entity) []ruleSource {
	return []ruleSource{
		{owner: target.Name, rules: target.Rules},
		{owner: entity.Name + "." + rel.Name, rules: rel.Rules},
	}
}

func (p *planner) writeTarget(entity *schema.Entity, rel *schema.Relationship) (*schema.Entity, error) {
	target, ok := p.model.Entity(rel.Target)
	if !ok {
		return nil, compileErr(ErrUnsupported, entity.Name, rel.Name, "nested writes to polymorphic relationships are not supported")
	}
	return target, nil
}

// createRelationship plans rel: {create: [...], connect: [...]} of a create
// input.
func (p *planner) createRelationship(entity *schema.Entity, rel *schema.Relationship, value any) (*queryir.RelationshipWrite, error) {
	target, err := p.writeTarget(entity, rel)
	if err != nil {
		return nil, err
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, compileErr(ErrBadArgument, entity.Name, rel.Name, "relationship input must be an object")
	}
	rw := &queryir.RelationshipWrite{Relationship: rel, Target: target}
	for _, k := range sortedKeys(m) {
		if err := p.relationshipOp(entity, rel, rw, k, m[k], false); err != nil {
			return nil, err
		}
	}
	return rw, p.checkCardinality(entity, rw)
}

// updateRelationship plans rel: [{where, update, create, connect,
// disconnect, delete}] of an update input. A single object is accepted for
// to-one relationships.
func (p *planner) updateRelationship(entity *schema.Entity, rel *schema.Relationship, value any) (*queryir.RelationshipWrite, error) {
	target, err := p.writeTarget(entity, rel)
	if err != nil {
		return nil, err
	}
	rw := &queryir.RelationshipWrite{Relationship: rel, Target: target}
	for i, item := range asList(value) {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, rel.Name, "update[%d] must be an object", i)
		}
		var where, edgeWhere queryir.Filter
		if w, ok := m["where"].(map[string]any); ok {
			if where, edgeWhere, err = p.nodeEdgeWhere(entity, rel, target, w); err != nil {
				return nil, err
			}
		}
		for _, k := range sortedKeys(m) {
			switch k {
			case "where":
			case "update":
				u, err := p.nestedUpdate(entity, rel, target, m[k], where, edgeWhere)
				if err != nil {
					return nil, err
				}
				rw.Update = append(rw.Update, u)
			case "delete":
				for _, d := range asList(m[k]) {
					dm, ok := d.(map[string]any)
					if !ok {
						return nil, compileErr(ErrBadArgument, entity.Name, rel.Name+".delete", "delete entries must be objects")
					}
					nd, err := p.deleteEntry(entity, rel, target, dm)
					if err != nil {
						return nil, err
					}
					rw.Delete = append(rw.Delete, nd)
				}
			default:
				if err := p.relationshipOp(entity, rel, rw, k, m[k], true); err != nil {
					return nil, err
				}
			}
		}
	}
	return rw, p.checkCardinality(entity, rw)
}

// checkCardinality rejects creating or connecting more than one node
// through a to-one relationship in one input.
func (p *planner) checkCardinality(entity *schema.Entity, rw *queryir.RelationshipWrite) error {
	if rw.Relationship.Many {
		return nil
	}
	if len(rw.Create)+len(rw.Connect) > 1 {
		return compileErr(ErrInvalidMutation, entity.Name, rw.Relationship.Name, "to-one relationship takes at most one create or connect")
	}
	return nil
}

func (p *planner) relationshipOp(entity *schema.Entity, rel *schema.Relationship, rw *queryir.RelationshipWrite, op string, value any, update bool) error {
	for i, item := range asList(value) {
		m, ok := item.(map[string]any)
		if !ok {
			return compileErr(ErrBadArgument, entity.Name, rel.Name+"."+op, "entry %d must be an object", i)
		}
		switch {
		case op == "create":
			c, err := p.nestedCreate(entity, rel, rw.Target, m)
			if err != nil {
				return err
			}
			rw.Create = append(rw.Create, c)
		case op == "connect":
			c, err := p.connect(entity, rel, rw.Target, m)
			if err != nil {
				return err
			}
			rw.Connect = append(rw.Connect, c)
		case update && op == "disconnect":
			d, err := p.disconnect(entity, rel, rw.Target, m)
			if err != nil {
				return err
			}
			rw.Disconnect = append(rw.Disconnect, d)
		default:
			return compileErr(ErrUnknownField, entity.Name, rel.Name+"."+op, "unknown relationship operation")
		}
	}
	return nil
}

func (p *planner) nodeEdgeWhere(entity *schema.Entity, rel *schema.Relationship, target *schema.Entity, w map[string]any) (queryir.Filter, queryir.Filter, error) {
	var node, edge queryir.Filter
	for _, k := range sortedKeys(w) {
		var err error
		switch k {
		case "node":
			m, _ := w[k].(map[string]any)
			node, err = p.filter(target, m, false)
		case "edge":
			edge, err = p.edgeFilter(entity, rel, w[k], false)
		default:
			err = compileErr(ErrUnknownField, entity.Name, rel.Name+".where."+k, "relationship wheres take node and edge")
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return node, edge, nil
}

func (p *planner) edgeWrites(entity *schema.Entity, rel *schema.Relationship, value any, create bool) ([]queryir.PropertyWrite, error) {
	edge, ok := p.model.Edge(rel.Properties)
	if !ok {
		if value != nil {
			return nil, compileErr(ErrUnknownField, entity.Name, rel.Name+".edge", "relationship has no properties")
		}
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok && value != nil {
		return nil, compileErr(ErrBadArgument, entity.Name, rel.Name+".edge", "edge must be an object")
	}
	var writes []queryir.PropertyWrite
	for _, key := range sortedKeys(m) {
		name, op := splitWriteKey(key)
		a, ok := edge.Attribute(name)
		if !ok || (create && op != queryir.WriteSet) {
			return nil, compileErr(ErrUnknownField, edge.Name, key, "unknown relationship property")
		}
		w, err := propertyWrite(edge, a, key, op, m[key])
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
	}
	writes, err := checkWrites(edge, writes)
	if err != nil {
		return nil, err
	}
	if create {
		if err := requireAttributes(edge, writes); err != nil {
			return nil, err
		}
	}
	return writes, nil
}

func (p *planner) nestedCreate(entity *schema.Entity, rel *schema.Relationship, target *schema.Entity, m map[string]any) (*queryir.NestedCreate, error) {
	for _, k := range sortedKeys(m) {
		if k != "node" && k != "edge" {
			return nil, compileErr(ErrUnknownField, entity.Name, rel.Name+".create."+k, "create takes node and edge")
		}
	}
	node, ok := m["node"].(map[string]any)
	if !ok {
		return nil, compileErr(ErrInvalidMutation, entity.Name, rel.Name+".create", "node is required")
	}
	c := &queryir.NestedCreate{}
	var err error
	if c.Node, err = p.createInput(target, node); err != nil {
		return nil, err
	}
	if c.Edge, err = p.edgeWrites(entity, rel, m["edge"], true); err != nil {
		return nil, err
	}
	if c.Auth, err = p.writeAuth(target, relationshipRules(entity, rel, target), schema.OpCreateRelationship, schema.TimingBefore); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *planner) connect(entity *schema.Entity, rel *schema.Relationship, target *schema.Entity, m map[string]any) (*queryir.Connect, error) {
	c := &queryir.Connect{}
	for _, k := range sortedKeys(m) {
		var err error
		switch k {
		case "where":
			w, _ := m[k].(map[string]any)
			var edge queryir.Filter
			if c.Where, edge, err = p.nodeEdgeWhere(entity, rel, target, w); err == nil && edge != nil {
				err = compileErr(ErrBadArgument, entity.Name, rel.Name+".connect.where.edge", "connect matches nodes only")
			}
		case "edge":
			c.Edge, err = p.edgeWrites(entity, rel, m[k], true)
		default:
			err = compileErr(ErrUnknownField, entity.Name, rel.Name+".connect."+k, "connect takes where and edge")
		}
		if err != nil {
			return nil, err
		}
	}
	if c.Where == nil {
		p.warn("%s.%s: connect without where connects every %s", entity.Name, rel.Name, target.Name)
	}
	if _, ok := m["edge"]; !ok {
		var err error
		if c.Edge, err = p.edgeWrites(entity, rel, nil, true); err != nil {
			return nil, err
		}
	}
	var err error
	if c.Auth, err = p.writeAuth(target, relationshipRules(entity, rel, target), schema.OpCreateRelationship, ""); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *planner) disconnect(entity *schema.Entity, rel *schema.Relationship, target *schema.Entity, m map[string]any) (*queryir.Disconnect, error) {
	d := &queryir.Disconnect{}
	for _, k := range sortedKeys(m) {
		if k != "where" {
			return nil, compileErr(ErrUnknownField, entity.Name, rel.Name+".disconnect."+k, "disconnect takes where")
		}
		w, _ := m[k].(map[string]any)
		var err error
		if d.Where, d.EdgeWhere, err = p.nodeEdgeWhere(entity, rel, target, w); err != nil {
			return nil, err
		}
	}
	var err error
	if d.Auth, err = p.writeAuth(target, relationshipRules(entity, rel, target), schema.OpDeleteRelationship, ""); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *planner) nestedUpdate(entity *schema.Entity, rel *schema.Relationship, target *schema.Entity, value any, where, edgeWhere queryir.Filter) (*queryir.NestedUpdate, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, compileErr(ErrBadArgument, entity.Name, rel.Name+".update", "update must be an object")
	}
	u := &queryir.NestedUpdate{Where: where, EdgeWhere: edgeWhere}
	for _, k := range sortedKeys(m) {
		if k != "node" && k != "edge" {
			return nil, compileErr(ErrUnknownField, entity.Name, rel.Name+".update."+k, "update takes node and edge")
		}
	}
	node, _ := m["node"].(map[string]any)
	var err error
	if u.Update, err = p.updateInput(target, node); err != nil {
		return nil, err
	}
	if m["edge"] != nil {
		if u.Edge, err = p.edgeWrites(entity, rel, m["edge"], false); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// nestedDeletes plans delete: {rel: [{where: {node}, delete: {...}}]}.
func (p *planner) nestedDeletes(entity *schema.Entity, m map[string]any) ([]*queryir.NestedDelete, error) {
	var out []*queryir.NestedDelete
	for _, key := range sortedKeys(m) {
		rel, ok := entity.Relationship(key)
		if !ok {
			return nil, compileErr(ErrUnknownField, entity.Name, "delete."+key, "unknown relationship")
		}
		target, err := p.writeTarget(entity, rel)
		if err != nil {
			return nil, err
		}
		for _, item := range asList(m[key]) {
			dm, ok := item.(map[string]any)
			if !ok {
				return nil, compileErr(ErrBadArgument, entity.Name, "delete."+key, "delete entries must be objects")
			}
			nd, err := p.deleteEntry(entity, rel, target, dm)
			if err != nil {
				return nil, err
			}
			out = append(out, nd)
		}
	}
	return out, nil
}

func (p *planner) deleteEntry(entity *schema.Entity, rel *schema.Relationship, target *schema.Entity, m map[string]any) (*queryir.NestedDelete, error) {
	var where queryir.Filter
	if w, ok := m["where"].(map[string]any); ok {
		var (
			edge queryir.Filter
			err  error
		)
		if where, edge, err = p.nodeEdgeWhere(entity, rel, target, w); err != nil {
			return nil, err
		}
		if edge != nil {
			return nil, compileErr(ErrUnsupported, entity.Name, rel.Name+".delete.where.edge", "nested deletes match nodes only")
		}
	}
	return p.nestedDelete(entity, rel, target, m, where)
}

func (p *planner) nestedDelete(entity *schema.Entity, rel *schema.Relationship, target *schema.Entity, m map[string]any, where queryir.Filter) (*queryir.NestedDelete, error) {
	for _, k := range sortedKeys(m) {
		if k != "where" && k != "delete" {
			return nil, compileErr(ErrUnknownField, entity.Name, rel.Name+".delete."+k, "delete takes where and delete")
		}
	}
	d := &queryir.NestedDelete{Relationship: rel, Target: target, Where: where}
	var err error
	if d.Auth, err = p.writeAuth(target, entityRules(target, nil), schema.OpDelete, schema.TimingAfter); err != nil {
		return nil, err
	}
	nested, _ := m["delete"].(map[string]any)
	if d.Nested, err = p.nestedDeletes(target, nested); err != nil {
		return nil, err
	}
	return d, nil
}
