// Package request holds the normalized request tree the translator consumes
// and an adapter that builds it from GraphQL operation text.
//
// A request is one root field with arguments and a nested selection. Argument
// values are normalized to nil, bool, int64, float64, string, []any and
// map[string]any so the translator never sees driver or decoder types.
package request

import (
	"fmt"
	"strings"
)

// Kind is the kind of a request operation.
type Kind int

const (
	KindQuery Kind = iota
	KindMutation
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindMutation:
		return "mutation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Operation is a request with exactly one root field.
type Operation struct {
	Kind  Kind
	Field *Field
}

// Field is a requested field with its arguments and sub-selection.
type Field struct {
	Name       string
	Alias      string
	Args       map[string]any
	Selections []*Field
	// TypeCondition is the concrete type an inline fragment restricted this
	// field to, "" when unrestricted.
	TypeCondition string
}

// Key returns the response key: the alias if set, otherwise the name.
func (f *Field) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Arg returns an argument value.
func (f *Field) Arg(name string) (any, bool) {
	v, ok := f.Args[name]
	return v, ok
}

// Selection returns the first selected sub-field with the given name.
func (f *Field) Selection(name string) (*Field, bool) {
	for _, s := range f.Selections {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Claims is the claims bag of an authenticated request. A nil Claims means
// the request is unauthenticated.
type Claims map[string]any

// Lookup resolves a dotted claim path such as "sub" or "org.id".
func (c Claims) Lookup(path string) (any, bool) {
	var cur any = map[string]any(c)
	for part := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Authenticated reports whether claims were supplied.
func (c Claims) Authenticated() bool {
	return c != nil
}

// Normalize converts decoded values (JSON, YAML, CUE or Go literals) into
// the value set the translator accepts.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = item
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[fmt.Sprint(k)] = Normalize(item)
		}
		return out
	default:
		return x
	}
}
