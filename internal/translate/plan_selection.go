package translate

import (
	"slices"
	"strings"

	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
)

// appliesTo reports whether a field restricted to cond is selected on
// entity.
func (p *planner) appliesTo(entity *schema.Entity, cond string) bool {
	if cond == "" || cond == entity.Name || slices.Contains(entity.Implements, cond) {
		return true
	}
	if u, ok := p.model.Union(cond); ok {
		return slices.Contains(u.Members, entity.Name)
	}
	return false
}

// selectedAttributes returns the attributes of entity a selection reads.
func selectedAttributes(entity *schema.Entity, fields []*request.Field) []*schema.Attribute {
	var out []*schema.Attribute
	for _, f := range fields {
		if a, ok := entity.Attribute(f.Name); ok && !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}

// selections plans the sub-selection of entity. Fields restricted to other
// types are dropped. A response key seen twice keeps its first field.
func (p *planner) selections(entity *schema.Entity, fields []*request.Field) ([]queryir.Selection, error) {
	var out []queryir.Selection
	seen := make(map[string]bool)
	for _, f := range fields {
		if !p.appliesTo(entity, f.TypeCondition) {
			continue
		}
		if seen[f.Key()] {
			p.warn("%s.%s: response key %q selected more than once; first selection kept", entity.Name, f.Name, f.Key())
			continue
		}
		seen[f.Key()] = true

		sel, err := p.selection(entity, f)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

func (p *planner) selection(entity *schema.Entity, f *request.Field) (queryir.Selection, error) {
	if f.Name == "__typename" {
		return &queryir.TypenameSelection{Key: f.Key(), Type: entity.Name}, nil
	}
	if a, ok := entity.Attribute(f.Name); ok {
		return &queryir.AttributeSelection{Key: f.Key(), Attribute: a}, nil
	}
	if rel, ok := entity.Relationship(f.Name); ok {
		if p.model.Polymorphic(rel.Target) {
			return p.polymorphic(entity, rel, f)
		}
		return p.relationship(entity, rel, f)
	}
	if base, ok := strings.CutSuffix(f.Name, "Connection"); ok {
		if rel, ok := entity.Relationship(base); ok {
			return p.connection(entity, rel, f)
		}
	}
	if base, ok := strings.CutSuffix(f.Name, "Aggregate"); ok {
		if rel, ok := entity.Relationship(base); ok {
			target, err := p.concreteTarget(entity, rel, f.Name)
			if err != nil {
				return nil, err
			}
			return p.aggregation(entity, rel, target, f)
		}
	}
	if cf, ok := entity.CustomField(f.Name); ok {
		return p.customField(entity, cf, f)
	}
	return nil, compileErr(ErrUnknownField, entity.Name, f.Name, "unknown field")
}

func (p *planner) concreteTarget(entity *schema.Entity, rel *schema.Relationship, field string) (*schema.Entity, error) {
	target, ok := p.model.Entity(rel.Target)
	if !ok {
		return nil, compileErr(ErrUnsupported, entity.Name, field, "not supported on polymorphic relationship %s", rel.Name)
	}
	return target, nil
}

func requireSelections(entity *schema.Entity, f *request.Field) error {
	if len(f.Selections) == 0 {
		return compileErr(ErrBadArgument, entity.Name, f.Name, "a selection set is required")
	}
	return nil
}

func (p *planner) relationship(entity *schema.Entity, rel *schema.Relationship, f *request.Field) (*queryir.RelationshipSelection, error) {
	if err := requireSelections(entity, f); err != nil {
		return nil, err
	}
	target, err := p.concreteTarget(entity, rel, f.Name)
	if err != nil {
		return nil, err
	}
	sel := &queryir.RelationshipSelection{Key: f.Key(), Relationship: rel, Target: target}

	where, err := argMap(target, f, "where")
	if err != nil {
		return nil, err
	}
	if sel.Filter, err = p.filter(target, where, false); err != nil {
		return nil, err
	}
	if sel.Sort, sel.Page, err = p.options(target, f); err != nil {
		return nil, err
	}
	if sel.Selections, err = p.selections(target, f.Selections); err != nil {
		return nil, err
	}
	if sel.Auth, err = p.readAuth(target, selectedAttributes(target, f.Selections)); err != nil {
		return nil, err
	}
	return sel, nil
}

// polymorphic plans one branch per concrete type. Interface wheres apply to
// every branch; union wheres are keyed by member and select the members
// they name.
func (p *planner) polymorphic(entity *schema.Entity, rel *schema.Relationship, f *request.Field) (*queryir.PolymorphicSelection, error) {
	if err := requireSelections(entity, f); err != nil {
		return nil, err
	}
	sel := &queryir.PolymorphicSelection{Key: f.Key(), Relationship: rel, Type: rel.Target}

	where, err := argMap(entity, f, "where")
	if err != nil {
		return nil, err
	}
	targets, err := p.targets(entity, rel, where, false, false)
	if err != nil {
		return nil, err
	}

	iface, isInterface := p.model.Interface(rel.Target)
	if opts, err := argMap(entity, f, "options"); err != nil {
		return nil, err
	} else if opts != nil {
		if !isInterface && opts["sort"] != nil {
			return nil, compileErr(ErrUnsupported, entity.Name, f.Name, "union relationships cannot be sorted")
		}
		shared := &schema.Entity{Name: rel.Target}
		if isInterface {
			shared.Attributes = iface.Attributes
		}
		if sel.Sort, sel.Page, err = p.options(shared, f); err != nil {
			return nil, err
		}
	}

	for _, t := range targets {
		b := &queryir.PolymorphicBranch{Target: t.Entity, Filter: t.Node}
		if b.Selections, err = p.selections(t.Entity, f.Selections); err != nil {
			return nil, err
		}
		// sort keys are read, so their attribute rules apply even when the
		// attribute is not selected
		read := selectedAttributes(t.Entity, f.Selections)
		for _, s := range sel.Sort {
			concrete, ok := t.Entity.Attribute(s.Attribute.Name)
			if !ok {
				return nil, compileErr(ErrUnknownField, t.Entity.Name, s.Attribute.Name, "sort attribute is not implemented")
			}
			b.SortBy = append(b.SortBy, concrete)
			if !slices.Contains(read, concrete) {
				read = append(read, concrete)
			}
		}
		if b.Auth, err = p.readAuth(t.Entity, read); err != nil {
			return nil, err
		}
		sel.Branches = append(sel.Branches, b)
	}
	return sel, nil
}

// connection plans a relationship connection, or the root connection of
// entity when rel is nil.
func (p *planner) connection(entity *schema.Entity, rel *schema.Relationship, f *request.Field) (*queryir.ConnectionSelection, error) {
	if err := requireSelections(entity, f); err != nil {
		return nil, err
	}
	target := entity
	if rel != nil {
		var err error
		if target, err = p.concreteTarget(entity, rel, f.Name); err != nil {
			return nil, err
		}
	}
	sel := &queryir.ConnectionSelection{Key: f.Key(), Relationship: rel, Target: target}

	where, err := argMap(target, f, "where")
	if err != nil {
		return nil, err
	}
	if rel == nil {
		if sel.NodeFilter, err = p.filter(target, where, false); err != nil {
			return nil, err
		}
	} else if where != nil {
		for _, k := range sortedKeys(where) {
			switch k {
			case "node":
				m, _ := where[k].(map[string]any)
				if sel.NodeFilter, err = p.filter(target, m, false); err != nil {
					return nil, err
				}
			case "edge":
				if sel.EdgeFilter, err = p.edgeFilter(entity, rel, where[k], false); err != nil {
					return nil, err
				}
			default:
				return nil, compileErr(ErrUnknownField, entity.Name, f.Name+".where."+k, "connection wheres take node and edge")
			}
		}
	}

	if sel.Sort, err = p.connectionSort(target, rel, f); err != nil {
		return nil, err
	}
	if sel.Page, err = connectionPage(target, f); err != nil {
		return nil, err
	}

	var nodeFields []*request.Field
	for _, sub := range f.Selections {
		switch sub.Name {
		case "totalCount":
			sel.TotalCount = sub.Key()
		case "pageInfo":
			if sel.PageInfo, err = pageInfo(target, sub); err != nil {
				return nil, err
			}
		case "edges":
			if sel.Edges, err = p.edges(target, rel, sub); err != nil {
				return nil, err
			}
			if node, ok := sub.Selection("node"); ok {
				nodeFields = node.Selections
			}
		case "__typename":
		default:
			return nil, compileErr(ErrUnknownField, target.Name, f.Name+"."+sub.Name, "connections select edges, totalCount and pageInfo")
		}
	}
	if sel.Auth, err = p.readAuth(target, selectedAttributes(target, nodeFields)); err != nil {
		return nil, err
	}
	return sel, nil
}

// connectionSort reads sort: [{node: {title: ASC}}, {edge: {year: DESC}}]
// on relationship connections and sort: [{title: ASC}] at the root.
func (p *planner) connectionSort(target *schema.Entity, rel *schema.Relationship, f *request.Field) ([]*queryir.Sort, error) {
	raw, ok := f.Arg("sort")
	if !ok || raw == nil {
		return nil, nil
	}
	if rel == nil {
		return p.sort(target, raw, false)
	}
	var out []*queryir.Sort
	for _, item := range asList(raw) {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, compileErr(ErrBadArgument, target.Name, f.Name+".sort", "sort entries must be objects")
		}
		for _, k := range sortedKeys(m) {
			var (
				s   []*queryir.Sort
				err error
			)
			switch k {
			case "node":
				s, err = p.sort(target, m[k], false)
			case "edge":
				edge, ok := p.model.Edge(rel.Properties)
				if !ok {
					return nil, compileErr(ErrUnknownField, target.Name, f.Name+".sort.edge", "relationship has no properties")
				}
				s, err = p.sort(edge, m[k], true)
			default:
				return nil, compileErr(ErrUnknownField, target.Name, f.Name+".sort."+k, "connection sorts take node and edge")
			}
			if err != nil {
				return nil, err
			}
			out = append(out, s...)
		}
	}
	return out, nil
}

// connectionPage reads first and after. A cursor at offset n resumes at
// n+1.
func connectionPage(target *schema.Entity, f *request.Field) (*queryir.Pagination, error) {
	var page *queryir.Pagination
	if raw, ok := f.Arg("first"); ok && raw != nil {
		n, err := nonNegative(target, f.Name+".first", raw)
		if err != nil {
			return nil, err
		}
		page = &queryir.Pagination{Limit: &n}
	}
	if raw, ok := f.Arg("after"); ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return nil, compileErr(ErrBadCursor, target.Name, f.Name+".after", "cursor must be a string")
		}
		offset, err := DecodeCursor(s)
		if err != nil {
			return nil, compileErr(ErrBadCursor, target.Name, f.Name+".after", "%v", err)
		}
		if page == nil {
			page = &queryir.Pagination{}
		}
		page.Offset = offset + 1
	}
	return page, nil
}

var pageInfoFields = []string{"hasNextPage", "hasPreviousPage", "startCursor", "endCursor"}

func pageInfo(target *schema.Entity, f *request.Field) (*queryir.PageInfoSelection, error) {
	sel := &queryir.PageInfoSelection{Key: f.Key()}
	for _, sub := range f.Selections {
		if sub.Name == "__typename" {
			continue
		}
		if !slices.Contains(pageInfoFields, sub.Name) {
			return nil, compileErr(ErrUnknownField, target.Name, "pageInfo."+sub.Name, "unknown pageInfo field")
		}
		sel.Fields = append(sel.Fields, queryir.PageInfoField{Key: sub.Key(), Name: sub.Name})
	}
	return sel, nil
}

func (p *planner) edges(target *schema.Entity, rel *schema.Relationship, f *request.Field) (*queryir.EdgeSelection, error) {
	sel := &queryir.EdgeSelection{Key: f.Key()}
	for _, sub := range f.Selections {
		switch sub.Name {
		case "cursor":
			sel.CursorKey = sub.Key()
		case "node":
			if err := requireSelections(target, sub); err != nil {
				return nil, err
			}
			sels, err := p.selections(target, sub.Selections)
			if err != nil {
				return nil, err
			}
			sel.NodeKey, sel.Node = sub.Key(), sels
		case "properties":
			if rel == nil {
				return nil, compileErr(ErrUnknownField, target.Name, "edges.properties", "root connections have no relationship properties")
			}
			edge, ok := p.model.Edge(rel.Properties)
			if !ok {
				return nil, compileErr(ErrUnknownField, target.Name, "edges.properties", "relationship %s has no properties", rel.Name)
			}
			sels, err := p.edgeSelections(edge, sub.Selections)
			if err != nil {
				return nil, err
			}
			sel.PropertiesKey, sel.Properties = sub.Key(), sels
		case "__typename":
		default:
			return nil, compileErr(ErrUnknownField, target.Name, "edges."+sub.Name, "edges select cursor, node and properties")
		}
	}
	return sel, nil
}

func (p *planner) edgeSelections(edge *schema.Entity, fields []*request.Field) ([]queryir.Selection, error) {
	var out []queryir.Selection
	for _, f := range fields {
		if f.Name == "__typename" {
			out = append(out, &queryir.TypenameSelection{Key: f.Key(), Type: edge.Name})
			continue
		}
		a, ok := edge.Attribute(f.Name)
		if !ok {
			return nil, compileErr(ErrUnknownField, edge.Name, f.Name, "unknown relationship property")
		}
		out = append(out, &queryir.AttributeSelection{Key: f.Key(), Attribute: a})
	}
	return out, nil
}

// aggregation plans relAggregate { count node { a { min } } edge { ... } }.
// Root aggregations (rel nil) select attribute fields directly.
func (p *planner) aggregation(entity *schema.Entity, rel *schema.Relationship, target *schema.Entity, f *request.Field) (*queryir.AggregationSelection, error) {
	if err := requireSelections(entity, f); err != nil {
		return nil, err
	}
	sel := &queryir.AggregationSelection{Key: f.Key(), Relationship: rel, Target: target}

	where, err := argMap(target, f, "where")
	if err != nil {
		return nil, err
	}
	if sel.Filter, err = p.filter(target, where, false); err != nil {
		return nil, err
	}

	var attrs []*schema.Attribute
	for _, sub := range f.Selections {
		switch {
		case sub.Name == "count":
			sel.CountKey = sub.Key()
		case sub.Name == "__typename":
		case rel != nil && sub.Name == "node":
			if sel.Node, err = aggregateFields(target, sub.Selections); err != nil {
				return nil, err
			}
			sel.NodeKey = sub.Key()
		case rel != nil && sub.Name == "edge":
			edge, ok := p.model.Edge(rel.Properties)
			if !ok {
				return nil, compileErr(ErrUnknownField, entity.Name, f.Name+".edge", "relationship %s has no properties", rel.Name)
			}
			if sel.Edge, err = aggregateFields(edge, sub.Selections); err != nil {
				return nil, err
			}
			sel.EdgeKey = sub.Key()
		case rel == nil:
			fields, err := aggregateFields(target, []*request.Field{sub})
			if err != nil {
				return nil, err
			}
			sel.Node = append(sel.Node, fields...)
		default:
			return nil, compileErr(ErrUnknownField, entity.Name, f.Name+"."+sub.Name, "aggregations select count, node and edge")
		}
	}
	for _, af := range sel.Node {
		attrs = append(attrs, af.Attribute)
	}
	if sel.Auth, err = p.readAuth(target, attrs); err != nil {
		return nil, err
	}
	return sel, nil
}

func aggregateFields(entity *schema.Entity, fields []*request.Field) ([]queryir.AggregateField, error) {
	var out []queryir.AggregateField
	for _, f := range fields {
		if f.Name == "__typename" {
			continue
		}
		a, ok := entity.Attribute(f.Name)
		if !ok {
			return nil, compileErr(ErrUnknownField, entity.Name, f.Name, "unknown aggregate field")
		}
		if !a.Aggregatable || a.List {
			return nil, compileErr(ErrNotAggregatable, entity.Name, f.Name, "attribute is not aggregatable")
		}
		af := queryir.AggregateField{Key: f.Key(), Attribute: a}
		for _, m := range f.Selections {
			if m.Name == "__typename" {
				continue
			}
			fn, ok := queryir.ParseAggregateFunc(m.Name)
			if !ok || !measurable(a.Type, fn) {
				return nil, compileErr(ErrNotAggregatable, entity.Name, f.Name+"."+m.Name, "%s cannot be measured on %s", m.Name, a.Type)
			}
			af.Measures = append(af.Measures, queryir.Measure{Key: m.Key(), Func: fn})
		}
		if len(af.Measures) == 0 {
			return nil, compileErr(ErrBadArgument, entity.Name, f.Name, "a selection set is required")
		}
		out = append(out, af)
	}
	return out, nil
}

func measurable(t schema.ScalarType, fn queryir.AggregateFunc) bool {
	switch fn {
	case queryir.AggShortest, queryir.AggLongest:
		return t.Textual()
	case queryir.AggMin, queryir.AggMax:
		return t.Numeric() || t.Temporal()
	case queryir.AggAverage, queryir.AggSum:
		return t.Numeric()
	default:
		return false
	}
}

func (p *planner) customField(entity *schema.Entity, cf *schema.CustomField, f *request.Field) (*queryir.CustomFieldSelection, error) {
	sel := &queryir.CustomFieldSelection{Key: f.Key(), Field: cf}
	if cf.Target == "" {
		return sel, nil
	}
	target, ok := p.model.Entity(cf.Target)
	if !ok {
		return nil, compileErr(ErrUnknownField, entity.Name, f.Name, "computed target %s is not an entity", cf.Target)
	}
	if err := requireSelections(entity, f); err != nil {
		return nil, err
	}
	sels, err := p.selections(target, f.Selections)
	if err != nil {
		return nil, err
	}
	sel.Target, sel.Selections = target, sels
	return sel, nil
}
