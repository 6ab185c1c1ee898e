package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/bmatcuk/doublestar/v4"
)

// LoadError is a schema loading error with source position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FindFiles returns the .cue files under dir matching pattern (relative to
// dir, doublestar syntax), sorted. An empty pattern means "**/*.cue".
func FindFiles(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "**/*.cue"
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory: not a directory: %s", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if filepath.Ext(m) == ".cue" {
			files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}
	slices.Sort(files)
	return files, nil
}

// LoadDir loads every .cue file under dir (recursively), unifies them into
// one value and builds the model from it.
func LoadDir(dir string) (*Model, error) {
	files, err := FindFiles(dir, "")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	var value cue.Value
	sources := make(map[string]string, len(files))
	for i, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			return nil, err
		}
		sources[filepath.ToSlash(rel)] = string(data)
		fv := ctx.CompileBytes(data, cue.Filename(f))
		if err := fv.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		if i == 0 {
			value = fv
			continue
		}
		value = value.Unify(fv)
	}
	m, err := FromValue(value)
	if err != nil {
		return nil, err
	}
	m.Sources = sources
	return m, nil
}

// LoadSource builds a model from CUE source text.
func LoadSource(src string) (*Model, error) {
	value := cuecontext.New().CompileString(src)
	m, err := FromValue(value)
	if err != nil {
		return nil, err
	}
	m.Sources = map[string]string{"source.cue": src}
	return m, nil
}

// FromValue builds a model from a CUE value holding entity / edge /
// interface / union / claims declarations.
func FromValue(v cue.Value) (*Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &Model{Claims: make(map[string]ClaimType)}

	err := eachField(v, "entity", func(name string, ev cue.Value) error {
		e, err := parseEntity(name, ev)
		if err != nil {
			return err
		}
		m.Entities = append(m.Entities, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(v, "edge", func(name string, ev cue.Value) error {
		attrs, err := parseAttributes(ev)
		if err != nil {
			return err
		}
		m.Edges = append(m.Edges, &Entity{Name: name, Edge: true, Attributes: attrs})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(v, "interface", func(name string, iv cue.Value) error {
		attrs, err := parseAttributes(iv)
		if err != nil {
			return err
		}
		impls, err := stringList(iv, "implementations")
		if err != nil {
			return err
		}
		m.Interfaces = append(m.Interfaces, &Interface{Name: name, Attributes: attrs, Implementations: impls})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(v, "union", func(name string, uv cue.Value) error {
		members, err := stringList(uv, "members")
		if err != nil {
			return err
		}
		m.Unions = append(m.Unions, &Union{Name: name, Members: members})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(v, "claims", func(path string, cv cue.Value) error {
		s, err := cv.String()
		if err != nil {
			return formatCUEError(err)
		}
		ct, ok := parseClaimType(s)
		if !ok {
			return &LoadError{Field: "claims." + path, Message: fmt.Sprintf("unknown claim type %q", s), Pos: cv.Pos()}
		}
		m.Claims[path] = ct
		return nil
	})
	if err != nil {
		return nil, err
	}

	// implements is derived from interface declarations
	for _, i := range m.Interfaces {
		for _, impl := range i.Implementations {
			if e, ok := m.Entity(impl); ok {
				e.Implements = append(e.Implements, i.Name)
			}
		}
	}

	return m, nil
}

func parseEntity(name string, v cue.Value) (*Entity, error) {
	e := &Entity{Name: name}

	labels, err := stringList(v, "labels")
	if err != nil {
		return nil, err
	}
	e.Labels = labels

	if e.Attributes, err = parseAttributes(v); err != nil {
		return nil, err
	}

	err = eachField(v, "relationships", func(field string, rv cue.Value) error {
		r := &Relationship{Name: field, Direction: DirectionOut}
		var err error
		if r.Type, err = requiredString(rv, "type", "entity."+name+".relationships."+field); err != nil {
			return err
		}
		if r.Target, err = requiredString(rv, "target", "entity."+name+".relationships."+field); err != nil {
			return err
		}
		dir, err := optionalString(rv, "direction")
		if err != nil {
			return err
		}
		if dir != "" {
			r.Direction = Direction(strings.ToUpper(dir))
		}
		if r.Many, err = optionalBool(rv, "many", false); err != nil {
			return err
		}
		if r.Required, err = optionalBool(rv, "required", false); err != nil {
			return err
		}
		if r.Properties, err = optionalString(rv, "properties"); err != nil {
			return err
		}
		if r.Rules, err = parseRules(rv); err != nil {
			return err
		}
		e.Relationships = append(e.Relationships, r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(v, "computed", func(field string, cv cue.Value) error {
		c := &CustomField{Name: field}
		var err error
		path := "entity." + name + ".computed." + field
		if c.Statement, err = requiredString(cv, "statement", path); err != nil {
			return err
		}
		if c.Column, err = requiredString(cv, "column", path); err != nil {
			return err
		}
		typ, err := optionalString(cv, "type")
		if err != nil {
			return err
		}
		c.Type = ScalarType(typ)
		if c.Target, err = optionalString(cv, "target"); err != nil {
			return err
		}
		if c.List, err = optionalBool(cv, "list", false); err != nil {
			return err
		}
		e.CustomFields = append(e.CustomFields, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(v, "fulltext", func(index string, fv cue.Value) error {
		fields, err := decodeStrings(fv)
		if err != nil {
			return err
		}
		e.Fulltext = append(e.Fulltext, FulltextIndex{Name: index, Fields: fields})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.Rules, err = parseRules(v); err != nil {
		return nil, err
	}
	return e, nil
}

func parseAttributes(v cue.Value) ([]*Attribute, error) {
	var attrs []*Attribute
	err := eachField(v, "attributes", func(field string, av cue.Value) error {
		a := &Attribute{Name: field}
		typ, err := optionalString(av, "type")
		if err != nil {
			return err
		}
		if typ == "" {
			typ = string(TypeString)
		}
		a.Type = ScalarType(typ)
		if a.DBName, err = optionalString(av, "db"); err != nil {
			return err
		}
		if a.List, err = optionalBool(av, "list", false); err != nil {
			return err
		}
		if a.Required, err = optionalBool(av, "required", false); err != nil {
			return err
		}
		if a.Filterable, err = optionalBool(av, "filterable", true); err != nil {
			return err
		}
		if a.Sortable, err = optionalBool(av, "sortable", true); err != nil {
			return err
		}
		if a.Aggregatable, err = optionalBool(av, "aggregatable", true); err != nil {
			return err
		}
		if a.Rules, err = parseRules(av); err != nil {
			return err
		}
		attrs = append(attrs, a)
		return nil
	})
	return attrs, err
}

func parseRules(v cue.Value) ([]Rule, error) {
	rv := v.LookupPath(cue.ParsePath("rules"))
	if !rv.Exists() {
		return nil, nil
	}
	iter, err := rv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []Rule
	for iter.Next() {
		item := iter.Value()
		r := Rule{Kind: RuleFilter}

		kind, err := optionalString(item, "kind")
		if err != nil {
			return nil, err
		}
		if kind != "" {
			r.Kind = RuleKind(strings.ToLower(kind))
		}

		ops, err := stringList(item, "operations")
		if err != nil {
			return nil, err
		}
		if len(ops) == 0 {
			r.Operations = slices.Clone(AllOperations)
		}
		for _, op := range ops {
			r.Operations = append(r.Operations, Operation(strings.ToUpper(op)))
		}

		when, err := stringList(item, "when")
		if err != nil {
			return nil, err
		}
		for _, t := range when {
			r.When = append(r.When, Timing(strings.ToUpper(t)))
		}
		if r.Kind == RuleValidate && len(r.When) == 0 {
			r.When = []Timing{TimingBefore, TimingAfter}
		}

		if r.RequireAuthenticated, err = optionalBool(item, "requireAuthenticated", true); err != nil {
			return nil, err
		}

		wv := item.LookupPath(cue.ParsePath("where"))
		if wv.Exists() {
			var raw map[string]any
			if err := wv.Decode(&raw); err != nil {
				return nil, formatCUEError(err)
			}
			where, err := ParseRuleWhere(raw)
			if err != nil {
				return nil, &LoadError{Field: "rules.where", Message: err.Error(), Pos: wv.Pos()}
			}
			r.Where = where
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// ParseRuleWhere converts a decoded rule predicate into a RuleWhere.
func ParseRuleWhere(raw map[string]any) (*RuleWhere, error) {
	w := &RuleWhere{}
	for key, value := range raw {
		switch key {
		case "node":
			m, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("node must be an object")
			}
			w.Node = m
		case "jwt":
			m, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("jwt must be an object")
			}
			w.JWT = m
		case "AND", "OR":
			list, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("%s must be a list", key)
			}
			for _, item := range list {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%s items must be objects", key)
				}
				sub, err := ParseRuleWhere(m)
				if err != nil {
					return nil, err
				}
				if key == "AND" {
					w.AND = append(w.AND, sub)
				} else {
					w.OR = append(w.OR, sub)
				}
			}
		case "NOT":
			m, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("NOT must be an object")
			}
			sub, err := ParseRuleWhere(m)
			if err != nil {
				return nil, err
			}
			w.NOT = sub
		default:
			return nil, fmt.Errorf("unknown rule predicate key %q", key)
		}
	}
	return w, nil
}

func parseClaimType(s string) (ClaimType, bool) {
	ct := ClaimType{Type: ScalarType(s)}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		ct = ClaimType{Type: ScalarType(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")), List: true}
	}
	return ct, ct.Type.Valid()
}

// eachField calls fn for every field of the struct at path, in declaration
// order. A missing path is not an error.
func eachField(v cue.Value, path string, fn func(name string, value cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Selector().Unquoted(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func requiredString(v cue.Value, field, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &LoadError{Field: path + "." + field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, field string, def bool) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	return decodeStrings(fv)
}

func decodeStrings(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
