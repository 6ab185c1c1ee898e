package translate

import (
	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
)

// ruleSource is a set of rules declared on one owner: an entity, an
// attribute or a relationship field.
type ruleSource struct {
	owner string
	rules []schema.Rule
}

func entityRules(entity *schema.Entity, attrs []*schema.Attribute) []ruleSource {
	sources := []ruleSource{{owner: entity.Name, rules: entity.Rules}}
	for _, a := range attrs {
		if len(a.Rules) > 0 {
			sources = append(sources, ruleSource{owner: entity.Name + "." + a.Name, rules: a.Rules})
		}
	}
	return sources
}

// readAuth plans READ authorization: filter rules become PRE filters and
// validate rules POST guards. Attribute rules apply only to attrs.
func (p *planner) readAuth(entity *schema.Entity, attrs []*schema.Attribute) ([]*queryir.AuthorizationFilter, error) {
	var out []*queryir.AuthorizationFilter
	for _, src := range entityRules(entity, attrs) {
		pre, err := p.authFilter(entity, src, schema.OpRead, schema.RuleFilter, "", queryir.PositionPre)
		if err != nil {
			return nil, err
		}
		post, err := p.authFilter(entity, src, schema.OpRead, schema.RuleValidate, "", queryir.PositionPost)
		if err != nil {
			return nil, err
		}
		out = appendAuth(out, pre, post)
	}
	return out, nil
}

// writeAuth plans authorization for op on entity. Filter rules become PRE
// filters; validate rules become guards at their declared timings. Timings
// the statement cannot honor are reported in skip and produce a warning.
func (p *planner) writeAuth(entity *schema.Entity, sources []ruleSource, op schema.Operation, skip schema.Timing) ([]*queryir.AuthorizationFilter, error) {
	var out []*queryir.AuthorizationFilter
	for _, src := range sources {
		var pre *queryir.AuthorizationFilter
		if op != schema.OpCreate && op != schema.OpCreateRelationship {
			var err error
			if pre, err = p.authFilter(entity, src, op, schema.RuleFilter, "", queryir.PositionPre); err != nil {
				return nil, err
			}
		}
		before, err := p.authFilter(entity, src, op, schema.RuleValidate, schema.TimingBefore, queryir.PositionValidateBefore)
		if err != nil {
			return nil, err
		}
		after, err := p.authFilter(entity, src, op, schema.RuleValidate, schema.TimingAfter, queryir.PositionValidateAfter)
		if err != nil {
			return nil, err
		}
		switch skip {
		case schema.TimingBefore:
			if before != nil {
				p.warn("%s: %s BEFORE rules cannot run before the node exists; skipped", src.owner, op)
			}
			before = nil
		case schema.TimingAfter:
			if after != nil {
				p.warn("%s: %s AFTER rules cannot run once the node is gone; skipped", src.owner, op)
			}
			after = nil
		}
		out = appendAuth(out, pre, before, after)
	}
	return out, nil
}

func appendAuth(out []*queryir.AuthorizationFilter, auth ...*queryir.AuthorizationFilter) []*queryir.AuthorizationFilter {
	for _, a := range auth {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}

// authFilter OR-combines the rules of src that match kind, op and timing.
// It returns nil when no rule matches or when one matching rule holds
// unconditionally.
func (p *planner) authFilter(entity *schema.Entity, src ruleSource, op schema.Operation, kind schema.RuleKind, at schema.Timing, pos queryir.Position) (*queryir.AuthorizationFilter, error) {
	var preds []queryir.Filter
	for _, r := range src.rules {
		if r.Kind != kind || !r.Applies(op) {
			continue
		}
		if at != "" && !r.At(at) {
			continue
		}
		pred, err := p.rulePredicate(entity, r)
		if err != nil {
			return nil, err
		}
		if pred == nil {
			return nil, nil
		}
		preds = append(preds, pred)
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return &queryir.AuthorizationFilter{
		Position:  pos,
		Operation: op,
		Entity:    entity.Name,
		Predicate: queryir.Or(preds...),
	}, nil
}

func (p *planner) rulePredicate(entity *schema.Entity, r schema.Rule) (queryir.Filter, error) {
	var parts []queryir.Filter
	if r.RequireAuthenticated {
		parts = append(parts, &queryir.AuthenticatedFilter{})
	}
	if r.Where != nil {
		f, err := p.ruleWhere(entity, r.Where)
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}
	return queryir.And(parts...), nil
}

func (p *planner) ruleWhere(entity *schema.Entity, w *schema.RuleWhere) (queryir.Filter, error) {
	var parts []queryir.Filter
	if w.Node != nil {
		node, _ := request.Normalize(w.Node).(map[string]any)
		f, err := p.filter(entity, node, true)
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}
	if w.JWT != nil {
		jwt, _ := request.Normalize(w.JWT).(map[string]any)
		f, err := p.jwtFilter(entity, jwt)
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}
	var and []queryir.Filter
	for _, sub := range w.AND {
		f, err := p.ruleWhere(entity, sub)
		if err != nil {
			return nil, err
		}
		and = append(and, f)
	}
	parts = append(parts, queryir.And(and...))
	if len(w.OR) > 0 {
		var or []queryir.Filter
		for _, sub := range w.OR {
			f, err := p.ruleWhere(entity, sub)
			if err != nil {
				return nil, err
			}
			if f == nil {
				or = nil
				break
			}
			or = append(or, f)
		}
		parts = append(parts, queryir.Or(or...))
	}
	if w.NOT != nil {
		f, err := p.ruleWhere(entity, w.NOT)
		if err != nil {
			return nil, err
		}
		if f != nil {
			parts = append(parts, queryir.Not(f))
		}
	}
	return queryir.And(parts...), nil
}

// jwtFilter plans a where input over the claims bag, e.g.
// {roles_INCLUDES: "admin"}.
func (p *planner) jwtFilter(entity *schema.Entity, where map[string]any) (queryir.Filter, error) {
	var parts []queryir.Filter
	for _, key := range sortedKeys(where) {
		path, suffix := splitKey(key)
		op := queryir.OpEq
		if suffix != "" {
			var ok bool
			if op, ok = queryir.ParseOperator(suffix); !ok || op.Distance() {
				return nil, compileErr(ErrUnknownOperator, entity.Name, "jwt."+key, "unsupported claim operator %s", suffix)
			}
		}
		value := where[key]
		if ct, ok := p.claimType(path); ok {
			if op == queryir.OpIncludes && !ct.List {
				return nil, compileErr(ErrClaimTypeMismatch, entity.Name, "jwt."+key, "claim %s is not a list", path)
			}
			if op == queryir.OpIn {
				if _, ok := value.([]any); !ok {
					return nil, compileErr(ErrBadArgument, entity.Name, "jwt."+key, "IN takes a list")
				}
			}
		}
		parts = append(parts, &queryir.ClaimFilter{Path: path, Operator: op, Value: value})
	}
	return queryir.And(parts...), nil
}

// claimType returns the declared claim type, or the type of the value
// present in the request when the claim is undeclared.
func (p *planner) claimType(path string) (schema.ClaimType, bool) {
	if ct, ok := p.model.Claim(path); ok {
		return ct, true
	}
	v, ok := p.claims.Lookup(path)
	if !ok {
		return schema.ClaimType{}, false
	}
	return inferClaimType(v)
}

func inferClaimType(v any) (schema.ClaimType, bool) {
	switch x := request.Normalize(v).(type) {
	case string:
		return schema.ClaimType{Type: schema.TypeString}, true
	case bool:
		return schema.ClaimType{Type: schema.TypeBoolean}, true
	case int64:
		return schema.ClaimType{Type: schema.TypeInt}, true
	case float64:
		return schema.ClaimType{Type: schema.TypeFloat}, true
	case []any:
		if len(x) == 0 {
			return schema.ClaimType{}, false
		}
		ct, ok := inferClaimType(x[0])
		ct.List = true
		return ct, ok
	default:
		return schema.ClaimType{}, false
	}
}

// checkClaim verifies that a claim reference compared with attr under op
// has a compatible type.
func (p *planner) checkClaim(entity *schema.Entity, attr *schema.Attribute, op queryir.Operator, path string) error {
	ct, ok := p.claimType(path)
	if !ok {
		return nil
	}
	var wantList bool
	switch {
	case op == queryir.OpIn:
		wantList = true
	case op == queryir.OpIncludes:
		wantList = false
	default:
		wantList = attr.List
	}
	if ct.List != wantList || !claimCompatible(attr.Type, ct.Type) {
		return compileErr(ErrClaimTypeMismatch, entity.Name, attr.Name,
			"claim %s (%s) cannot be compared with %s using %s", path, claimTypeString(ct), attr.Type, op)
	}
	return nil
}

func claimCompatible(attr, claim schema.ScalarType) bool {
	switch {
	case attr.Textual():
		return claim.Textual() || (attr == schema.TypeID && claim == schema.TypeInt)
	case attr.Numeric():
		return claim.Numeric()
	case attr.Temporal():
		return claim == attr || claim == schema.TypeString
	case attr == schema.TypeBoolean:
		return claim == schema.TypeBoolean
	default:
		return false
	}
}

func claimTypeString(ct schema.ClaimType) string {
	if ct.List {
		return "[" + string(ct.Type) + "]"
	}
	return string(ct.Type)
}
