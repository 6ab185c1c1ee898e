package translate

import (
	"slices"
	"strings"

	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/schema"
)

// keySuffixes are the where-key suffixes, longest first so that
// "DISTANCE_LTE" wins over "LTE".
var keySuffixes = func() []string {
	s := []string{"SOME", "ALL", "NONE", "SINGLE"}
	for op := queryir.OpEq; op <= queryir.OpDistanceGte; op++ {
		s = append(s, op.String())
	}
	slices.SortFunc(s, func(a, b string) int { return len(b) - len(a) })
	return s
}()

// splitKey splits a where key into field name and operator or quantifier
// suffix. Keys without a known suffix return an empty suffix.
func splitKey(key string) (string, string) {
	for _, s := range keySuffixes {
		if name, ok := strings.CutSuffix(key, "_"+s); ok && name != "" {
			return name, s
		}
	}
	return key, ""
}

// filter plans a where input over entity. Keys are planned in sorted order
// and AND-combined. Claim references are honored only when rules is set:
// user input never reaches the claims bag.
func (p *planner) filter(entity *schema.Entity, where map[string]any, rules bool) (queryir.Filter, error) {
	var parts []queryir.Filter
	for _, key := range sortedKeys(where) {
		value := where[key]
		var (
			f   queryir.Filter
			err error
		)
		switch key {
		case "AND", "OR":
			f, err = p.logical(entity, key, value, rules)
		case "NOT":
			m, ok := value.(map[string]any)
			if !ok {
				return nil, compileErr(ErrBadArgument, entity.Name, key, "NOT takes an object")
			}
			if f, err = p.filter(entity, m, rules); err == nil {
				f = queryir.Not(f)
			}
		default:
			f, err = p.fieldFilter(entity, key, value, rules)
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}
	return queryir.And(parts...), nil
}

func (p *planner) logical(entity *schema.Entity, key string, value any, rules bool) (queryir.Filter, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, compileErr(ErrBadArgument, entity.Name, key, "%s takes a list of objects", key)
	}
	subs := make([]queryir.Filter, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, key, "%s takes a list of objects", key)
		}
		f, err := p.filter(entity, m, rules)
		if err != nil {
			return nil, err
		}
		subs = append(subs, f)
	}
	if key == "OR" {
		// An empty operand matches everything, so the disjunction does too.
		if slices.Contains(subs, nil) {
			return nil, nil
		}
		return queryir.Or(subs...), nil
	}
	return queryir.And(subs...), nil
}

func (p *planner) fieldFilter(entity *schema.Entity, key string, value any, rules bool) (queryir.Filter, error) {
	name, suffix := splitKey(key)

	if rel, ok := entity.Relationship(name); ok {
		if suffix == "" && value == nil {
			return &queryir.ExistenceFilter{Relationship: rel, Targets: p.model.Concrete(rel.Target)}, nil
		}
		q, err := quantifier(entity, key, suffix)
		if err != nil {
			return nil, err
		}
		return p.relationshipFilter(entity, rel, q, value, false, rules)
	}

	if base, ok := strings.CutSuffix(name, "Connection"); ok {
		if rel, ok := entity.Relationship(base); ok {
			q, err := quantifier(entity, key, suffix)
			if err != nil {
				return nil, err
			}
			return p.relationshipFilter(entity, rel, q, value, true, rules)
		}
	}

	if base, ok := strings.CutSuffix(key, "Aggregate"); ok {
		if rel, ok := entity.Relationship(base); ok {
			return p.countFilter(entity, rel, value)
		}
	}

	if cf, ok := entity.CustomField(name); ok {
		return p.customFieldFilter(entity, cf, key, suffix, value, rules)
	}

	attr, ok := entity.Attribute(name)
	if !ok {
		return nil, compileErr(ErrUnknownField, entity.Name, key, "unknown filter field")
	}
	if !attr.Filterable && !rules {
		return nil, compileErr(ErrNotFilterable, entity.Name, attr.Name, "attribute is not filterable")
	}
	op := queryir.OpEq
	if suffix != "" {
		if op, ok = queryir.ParseOperator(suffix); !ok {
			return nil, compileErr(ErrUnknownOperator, entity.Name, key, "unknown operator %s", suffix)
		}
	}
	return p.propertyFilter(entity, attr, key, op, value, rules)
}

func quantifier(entity *schema.Entity, key, suffix string) (queryir.Quantifier, error) {
	if suffix == "" {
		return queryir.QuantifierSome, nil
	}
	q, ok := queryir.ParseQuantifier(suffix)
	if !ok {
		return 0, compileErr(ErrUnknownOperator, entity.Name, key, "relationship filters take SOME, ALL, NONE or SINGLE")
	}
	return q, nil
}

// propertyFilter checks op against the attribute type and the value shape.
func (p *planner) propertyFilter(entity *schema.Entity, attr *schema.Attribute, key string, op queryir.Operator, value any, rules bool) (queryir.Filter, error) {
	bad := func(format string, args ...any) error {
		return compileErr(ErrUnknownOperator, entity.Name, key, format, args...)
	}
	switch {
	case op.Distance() && attr.Type != schema.TypePoint:
		return nil, bad("distance operators apply to Point attributes")
	case op.Ordering() && !(attr.Type.Numeric() || attr.Type.Temporal() || attr.Type.Textual()):
		return nil, bad("%s does not apply to %s", op, attr.Type)
	case op.Textual() && !attr.Type.Textual():
		return nil, bad("%s applies to text attributes", op)
	case op == queryir.OpIncludes && !attr.List:
		return nil, bad("INCLUDES applies to list attributes")
	case attr.List && op != queryir.OpEq && op != queryir.OpIncludes:
		return nil, bad("%s does not apply to list attributes", op)
	}

	if rules {
		if path, ok := claimPath(value); ok {
			if err := p.checkClaim(entity, attr, op, path); err != nil {
				return nil, err
			}
			return &queryir.PropertyFilter{Attribute: attr, Operator: op, Value: queryir.ClaimRef{Path: path}}, nil
		}
	}

	switch {
	case op.Distance():
		m, ok := value.(map[string]any)
		if !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, key, "distance filters take {point, distance}")
		}
		point, ok := m["point"].(map[string]any)
		if !ok || m["distance"] == nil {
			return nil, compileErr(ErrBadArgument, entity.Name, key, "distance filters take {point, distance}")
		}
		value = queryir.DistanceValue{Point: point, Distance: m["distance"]}
	case op == queryir.OpIn:
		if _, ok := value.([]any); !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, key, "IN takes a list")
		}
	case value == nil && op != queryir.OpEq:
		return nil, compileErr(ErrBadArgument, entity.Name, key, "%s does not accept null", op)
	}
	return &queryir.PropertyFilter{Attribute: attr, Operator: op, Value: value}, nil
}

func claimPath(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.CutPrefix(s, schema.ClaimPrefix)
}

// relationshipFilter plans a quantified filter. Plain filters take a node
// where; connection filters take {node, edge}. Union node wheres are keyed
// by member name and only the named members are matched.
func (p *planner) relationshipFilter(entity *schema.Entity, rel *schema.Relationship, q queryir.Quantifier, value any, connection, rules bool) (queryir.Filter, error) {
	field := rel.Name
	if connection {
		field += "Connection"
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, compileErr(ErrBadArgument, entity.Name, field, "relationship filters take an object")
	}

	out := &queryir.RelationshipFilter{Relationship: rel, Quantifier: q, Connection: connection}
	nodeWhere := m
	if connection {
		nodeWhere = nil
		for _, k := range sortedKeys(m) {
			switch k {
			case "node":
				if nodeWhere, ok = m[k].(map[string]any); !ok && m[k] != nil {
					return nil, compileErr(ErrBadArgument, entity.Name, field+".node", "node takes an object")
				}
			case "edge":
				edge, err := p.edgeFilter(entity, rel, m[k], rules)
				if err != nil {
					return nil, err
				}
				out.Edge = edge
			default:
				return nil, compileErr(ErrUnknownField, entity.Name, field+"."+k, "connection filters take node and edge")
			}
		}
	}

	targets, err := p.targets(entity, rel, nodeWhere, rules, true)
	if err != nil {
		return nil, err
	}
	out.Targets = targets
	return out, nil
}

// targets resolves the concrete targets of rel with their node filters. A
// union where is keyed by member; members it does not name are dropped when
// restrict is set and kept unfiltered otherwise.
func (p *planner) targets(entity *schema.Entity, rel *schema.Relationship, where map[string]any, rules, restrict bool) ([]queryir.RelationshipTarget, error) {
	if u, ok := p.model.Union(rel.Target); ok {
		for _, k := range sortedKeys(where) {
			if !slices.Contains(u.Members, k) {
				return nil, compileErr(ErrUnknownTypeCond, entity.Name, rel.Name+"."+k, "%s is not a member of %s", k, u.Name)
			}
		}
		var out []queryir.RelationshipTarget
		for _, member := range p.model.Concrete(u.Name) {
			sub, named := where[member.Name]
			if restrict && len(where) > 0 && !named {
				continue
			}
			m, _ := sub.(map[string]any)
			f, err := p.filter(member, m, rules)
			if err != nil {
				return nil, err
			}
			out = append(out, queryir.RelationshipTarget{Entity: member, Node: f})
		}
		return out, nil
	}

	var out []queryir.RelationshipTarget
	for _, target := range p.model.Concrete(rel.Target) {
		f, err := p.filter(target, where, rules)
		if err != nil {
			return nil, err
		}
		out = append(out, queryir.RelationshipTarget{Entity: target, Node: f})
	}
	return out, nil
}

func (p *planner) edgeFilter(entity *schema.Entity, rel *schema.Relationship, value any, rules bool) (queryir.Filter, error) {
	if value == nil {
		return nil, nil
	}
	edge, ok := p.model.Edge(rel.Properties)
	if !ok {
		return nil, compileErr(ErrUnknownField, entity.Name, rel.Name+".edge", "relationship has no properties")
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, compileErr(ErrBadArgument, entity.Name, rel.Name+".edge", "edge takes an object")
	}
	return p.filter(edge, m, rules)
}

// countFilter plans relAggregate: {count: n, count_GT: n, ...}.
func (p *planner) countFilter(entity *schema.Entity, rel *schema.Relationship, value any) (queryir.Filter, error) {
	field := rel.Name + "Aggregate"
	m, ok := value.(map[string]any)
	if !ok {
		return nil, compileErr(ErrBadArgument, entity.Name, field, "aggregate filters take an object")
	}
	var parts []queryir.Filter
	for _, k := range sortedKeys(m) {
		name, suffix := splitKey(k)
		if name != "count" {
			return nil, compileErr(ErrUnknownField, entity.Name, field+"."+k, "aggregate filters support count only")
		}
		op := queryir.OpEq
		if suffix != "" {
			var ok bool
			if op, ok = queryir.ParseOperator(suffix); !ok || (op != queryir.OpEq && !op.Ordering()) {
				return nil, compileErr(ErrUnknownOperator, entity.Name, field+"."+k, "count takes EQ, LT, LTE, GT or GTE")
			}
		}
		if _, ok := toInt64(m[k]); !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, field+"."+k, "count must be an integer")
		}
		parts = append(parts, &queryir.CountFilter{
			Relationship: rel,
			Targets:      p.model.Concrete(rel.Target),
			Operator:     op,
			Value:        m[k],
		})
	}
	return queryir.And(parts...), nil
}

func (p *planner) customFieldFilter(entity *schema.Entity, cf *schema.CustomField, key, suffix string, value any, rules bool) (queryir.Filter, error) {
	if cf.Target != "" {
		target, ok := p.model.Entity(cf.Target)
		if !ok {
			return nil, compileErr(ErrUnknownField, entity.Name, key, "computed target %s is not an entity", cf.Target)
		}
		q, err := quantifier(entity, key, suffix)
		if err != nil {
			return nil, err
		}
		m, ok := value.(map[string]any)
		if !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, key, "computed entity filters take an object")
		}
		f, err := p.filter(target, m, rules)
		if err != nil {
			return nil, err
		}
		return &queryir.CustomFieldFilter{Field: cf, Target: target, Quantifier: q, Node: f}, nil
	}

	op := queryir.OpEq
	if suffix != "" {
		var ok bool
		if op, ok = queryir.ParseOperator(suffix); !ok || op.Distance() {
			return nil, compileErr(ErrUnknownOperator, entity.Name, key, "unsupported operator %s on computed field", suffix)
		}
	}
	switch {
	case op == queryir.OpIncludes && !cf.List,
		cf.List && op != queryir.OpIncludes:
		return nil, compileErr(ErrUnknownOperator, entity.Name, key, "list computed fields take INCLUDES only")
	case op.Textual() && !cf.Type.Textual():
		return nil, compileErr(ErrUnknownOperator, entity.Name, key, "%s applies to text fields", op)
	case op == queryir.OpIn:
		if _, ok := value.([]any); !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, key, "IN takes a list")
		}
	}
	return &queryir.CustomFieldFilter{Field: cf, Operator: op, Value: value}, nil
}
