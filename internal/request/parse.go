package request

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseError is a request document error.
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

// ParseOperation parses a GraphQL document and returns the named operation
// (or the only one when name is empty) with variables substituted. Named
// fragments are inlined; fields reached through a type condition carry it
// in TypeCondition.
func ParseOperation(src, name string, variables map[string]any) (*Operation, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "request", Input: src})
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}

	var op *ast.OperationDefinition
	switch {
	case name != "":
		op = doc.Operations.ForName(name)
		if op == nil {
			return nil, &ParseError{Message: fmt.Sprintf("operation %q not found", name)}
		}
	case len(doc.Operations) == 1:
		op = doc.Operations[0]
	default:
		return nil, &ParseError{Message: fmt.Sprintf("document has %d operations, name one", len(doc.Operations))}
	}

	out := &Operation{}
	switch op.Operation {
	case ast.Query, "":
		out.Kind = KindQuery
	case ast.Mutation:
		out.Kind = KindMutation
	default:
		return nil, errorAt(op.Position, "%s operations are not supported", op.Operation)
	}

	vars := make(map[string]any, len(variables))
	for k, v := range variables {
		vars[k] = Normalize(v)
	}
	for _, def := range op.VariableDefinitions {
		if _, ok := vars[def.Variable]; ok || def.DefaultValue == nil {
			continue
		}
		v, err := def.DefaultValue.Value(nil)
		if err != nil {
			return nil, errorAt(def.Position, "default for $%s: %v", def.Variable, err)
		}
		vars[def.Variable] = Normalize(v)
	}

	c := &converter{doc: doc, vars: vars}
	fields, err := c.selections(op.SelectionSet, "", nil)
	if err != nil {
		return nil, err
	}
	if len(fields) != 1 {
		return nil, errorAt(op.Position, "operation must select exactly one root field, got %d", len(fields))
	}
	out.Field = fields[0]
	return out, nil
}

type converter struct {
	doc  *ast.QueryDocument
	vars map[string]any
}

// selections flattens a selection set. visiting guards against fragment
// spread cycles.
func (c *converter) selections(set ast.SelectionSet, typeCondition string, visiting []string) ([]*Field, error) {
	var out []*Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			f, err := c.field(s, typeCondition, visiting)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		case *ast.InlineFragment:
			cond := typeCondition
			if s.TypeCondition != "" {
				cond = s.TypeCondition
			}
			fields, err := c.selections(s.SelectionSet, cond, visiting)
			if err != nil {
				return nil, err
			}
			out = append(out, fields...)
		case *ast.FragmentSpread:
			def := c.doc.Fragments.ForName(s.Name)
			if def == nil {
				return nil, errorAt(s.Position, "unknown fragment %q", s.Name)
			}
			for _, v := range visiting {
				if v == s.Name {
					return nil, errorAt(s.Position, "fragment %q spreads itself", s.Name)
				}
			}
			cond := typeCondition
			if def.TypeCondition != "" {
				cond = def.TypeCondition
			}
			fields, err := c.selections(def.SelectionSet, cond, append(visiting, s.Name))
			if err != nil {
				return nil, err
			}
			out = append(out, fields...)
		}
	}
	return out, nil
}

func (c *converter) field(f *ast.Field, typeCondition string, visiting []string) (*Field, error) {
	out := &Field{Name: f.Name, TypeCondition: typeCondition}
	if f.Alias != f.Name {
		out.Alias = f.Alias
	}
	if len(f.Arguments) > 0 {
		out.Args = make(map[string]any, len(f.Arguments))
		for _, arg := range f.Arguments {
			v, err := arg.Value.Value(c.vars)
			if err != nil {
				return nil, errorAt(arg.Position, "argument %s: %v", arg.Name, err)
			}
			out.Args[arg.Name] = Normalize(v)
		}
	}
	// type conditions scope the field they appear on, not its children
	children, err := c.selections(f.SelectionSet, "", visiting)
	if err != nil {
		return nil, err
	}
	out.Selections = children
	return out, nil
}

func errorAt(pos *ast.Position, format string, args ...any) *ParseError {
	e := &ParseError{Message: fmt.Sprintf(format, args...)}
	if pos != nil {
		e.Line, e.Column = pos.Line, pos.Column
	}
	return e
}
