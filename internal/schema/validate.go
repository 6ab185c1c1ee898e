package schema

import (
	"fmt"
	"maps"
	"slices"
)

// Validation error codes (E100-E199)
const (
	ErrDuplicateName        = "E101" // duplicate type or field name
	ErrUnknownScalar        = "E102" // attribute type is not a known scalar
	ErrUnknownTarget        = "E103" // relationship/computed target does not exist
	ErrBadDirection         = "E104" // relationship direction is not IN or OUT
	ErrUnknownEdge          = "E105" // relationship properties type does not exist
	ErrRequiredMany         = "E106" // required is only meaningful on to-one relationships
	ErrUnknownImplementer   = "E107" // interface implementation / union member is not an entity
	ErrMissingInterfaceAttr = "E108" // implementation lacks an interface attribute
	ErrBadRule              = "E109" // malformed authorization rule
	ErrBadFulltext          = "E110" // fulltext index references unknown or non-text attribute
	ErrBadCustomField       = "E111" // computed field has neither or both of type and target
)

// ValidationError is a data model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the model for internal consistency. It returns every
// problem found rather than stopping at the first.
func Validate(m *Model) []ValidationError {
	v := &validator{model: m}
	v.validate()
	return v.errs
}

type validator struct {
	model *Model
	errs  []ValidationError
}

func (v *validator) add(code, field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
}

func (v *validator) validate() {
	seen := make(map[string]bool)
	declare := func(kind, name string) {
		if seen[name] {
			v.add(ErrDuplicateName, kind+"."+name, "type name %q declared more than once", name)
		}
		seen[name] = true
	}
	for _, e := range v.model.Entities {
		declare("entity", e.Name)
	}
	for _, e := range v.model.Edges {
		declare("edge", e.Name)
	}
	for _, i := range v.model.Interfaces {
		declare("interface", i.Name)
	}
	for _, u := range v.model.Unions {
		declare("union", u.Name)
	}

	for _, e := range v.model.Entities {
		v.validateEntity(e)
	}
	for _, e := range v.model.Edges {
		v.validateAttributes("edge."+e.Name, e.Attributes)
	}
	for _, i := range v.model.Interfaces {
		v.validateInterface(i)
	}
	for _, u := range v.model.Unions {
		for _, member := range u.Members {
			if _, ok := v.model.Entity(member); !ok {
				v.add(ErrUnknownImplementer, "union."+u.Name, "member %q is not an entity", member)
			}
		}
	}
	for _, path := range slices.Sorted(maps.Keys(v.model.Claims)) {
		if ct := v.model.Claims[path]; !ct.Type.Valid() {
			v.add(ErrUnknownScalar, "claims."+path, "unknown claim type %q", ct.Type)
		}
	}
}

func (v *validator) validateEntity(e *Entity) {
	prefix := "entity." + e.Name
	v.validateAttributes(prefix, e.Attributes)
	v.validateRules(prefix, e.Rules)

	fields := make(map[string]bool)
	for _, a := range e.Attributes {
		fields[a.Name] = true
	}
	for _, r := range e.Relationships {
		path := prefix + ".relationships." + r.Name
		if fields[r.Name] {
			v.add(ErrDuplicateName, path, "field %q declared more than once", r.Name)
		}
		fields[r.Name] = true

		if r.Direction != DirectionIn && r.Direction != DirectionOut {
			v.add(ErrBadDirection, path, "direction must be IN or OUT, got %q", r.Direction)
		}
		if _, ok := v.model.Entity(r.Target); !ok && !v.model.Polymorphic(r.Target) {
			v.add(ErrUnknownTarget, path, "target %q is not a declared type", r.Target)
		}
		if r.Properties != "" {
			if _, ok := v.model.Edge(r.Properties); !ok {
				v.add(ErrUnknownEdge, path, "properties type %q is not a declared edge", r.Properties)
			}
		}
		if r.Required && r.Many {
			v.add(ErrRequiredMany, path, "required applies to to-one relationships only")
		}
		v.validateRules(path, r.Rules)
	}

	for _, c := range e.CustomFields {
		path := prefix + ".computed." + c.Name
		if fields[c.Name] {
			v.add(ErrDuplicateName, path, "field %q declared more than once", c.Name)
		}
		fields[c.Name] = true

		switch {
		case c.Type == "" && c.Target == "", c.Type != "" && c.Target != "":
			v.add(ErrBadCustomField, path, "exactly one of type and target must be set")
		case c.Type != "" && !c.Type.Valid():
			v.add(ErrUnknownScalar, path, "unknown type %q", c.Type)
		case c.Target != "":
			if _, ok := v.model.Entity(c.Target); !ok {
				v.add(ErrUnknownTarget, path, "target %q is not an entity", c.Target)
			}
		}
	}

	for _, idx := range e.Fulltext {
		for _, f := range idx.Fields {
			a, ok := e.Attribute(f)
			if !ok || !a.Type.Textual() {
				v.add(ErrBadFulltext, prefix+".fulltext."+idx.Name, "field %q is not a text attribute", f)
			}
		}
	}
}

func (v *validator) validateAttributes(prefix string, attrs []*Attribute) {
	seen := make(map[string]bool)
	for _, a := range attrs {
		path := prefix + ".attributes." + a.Name
		if seen[a.Name] {
			v.add(ErrDuplicateName, path, "attribute %q declared more than once", a.Name)
		}
		seen[a.Name] = true
		if !a.Type.Valid() {
			v.add(ErrUnknownScalar, path, "unknown type %q", a.Type)
		}
		v.validateRules(path, a.Rules)
	}
}

func (v *validator) validateInterface(i *Interface) {
	prefix := "interface." + i.Name
	v.validateAttributes(prefix, i.Attributes)
	for _, impl := range i.Implementations {
		e, ok := v.model.Entity(impl)
		if !ok {
			v.add(ErrUnknownImplementer, prefix, "implementation %q is not an entity", impl)
			continue
		}
		for _, a := range i.Attributes {
			ea, ok := e.Attribute(a.Name)
			if !ok || ea.Type != a.Type || ea.List != a.List {
				v.add(ErrMissingInterfaceAttr, prefix, "%s does not declare %s %s", impl, a.Name, a.Type)
			}
		}
	}
}

func (v *validator) validateRules(prefix string, rules []Rule) {
	for i, r := range rules {
		path := fmt.Sprintf("%s.rules[%d]", prefix, i)
		if r.Kind != RuleFilter && r.Kind != RuleValidate {
			v.add(ErrBadRule, path, "kind must be filter or validate, got %q", r.Kind)
		}
		for _, op := range r.Operations {
			if !slices.Contains(AllOperations, op) {
				v.add(ErrBadRule, path, "unknown operation %q", op)
			}
		}
		for _, t := range r.When {
			if t != TimingBefore && t != TimingAfter {
				v.add(ErrBadRule, path, "unknown timing %q", t)
			}
		}
		if r.Kind == RuleFilter && len(r.When) > 0 {
			v.add(ErrBadRule, path, "filter rules do not take a timing")
		}
		if r.Where == nil && !r.RequireAuthenticated {
			v.add(ErrBadRule, path, "rule has no predicate and does not require authentication")
		}
	}
}
