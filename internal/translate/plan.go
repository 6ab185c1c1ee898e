package translate

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
)

// planner resolves a request against the model. It owns the warnings of one
// compilation.
type planner struct {
	model    *schema.Model
	claims   request.Claims
	warnings []string
}

func newPlanner(model *schema.Model, claims request.Claims) *planner {
	return &planner{model: model, claims: claims}
}

func (p *planner) warn(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *planner) operation(op *request.Operation) (queryir.Operation, error) {
	if op == nil || op.Field == nil {
		return nil, compileErr(ErrBadArgument, "", "", "operation has no root field")
	}
	f := op.Field
	entity, kind, ok := p.model.RootField(f.Name)
	if !ok {
		return nil, compileErr(ErrUnknownRootField, "", f.Name, "no entity operation is named %q", f.Name)
	}

	mutation := kind == schema.RootCreate || kind == schema.RootUpdate || kind == schema.RootDelete
	if mutation != (op.Kind == request.KindMutation) {
		return nil, compileErr(ErrUnknownRootField, "", f.Name, "%s is not a %s field", f.Name, op.Kind)
	}

	switch kind {
	case schema.RootRead:
		return p.read(entity, f)
	case schema.RootConnection:
		return p.rootConnection(entity, f)
	case schema.RootAggregate:
		sel, err := p.aggregation(entity, nil, entity, f)
		if err != nil {
			return nil, err
		}
		return &queryir.AggregateOperation{Selection: sel}, nil
	case schema.RootCreate:
		return p.create(entity, f)
	case schema.RootUpdate:
		return p.update(entity, f)
	case schema.RootDelete:
		return p.delete(entity, f)
	default:
		return nil, compileErr(ErrUnknownRootField, "", f.Name, "unsupported root kind %d", kind)
	}
}

func (p *planner) read(entity *schema.Entity, f *request.Field) (*queryir.ReadOperation, error) {
	op := &queryir.ReadOperation{Key: f.Key(), Entity: entity}

	where, err := argMap(entity, f, "where")
	if err != nil {
		return nil, err
	}
	if op.Filter, err = p.filter(entity, where, false); err != nil {
		return nil, err
	}
	if op.Fulltext, err = p.fulltext(entity, f); err != nil {
		return nil, err
	}
	if op.Sort, op.Page, err = p.options(entity, f); err != nil {
		return nil, err
	}
	if op.Selections, err = p.selections(entity, f.Selections); err != nil {
		return nil, err
	}
	if op.Auth, err = p.readAuth(entity, selectedAttributes(entity, f.Selections)); err != nil {
		return nil, err
	}
	return op, nil
}

func (p *planner) rootConnection(entity *schema.Entity, f *request.Field) (*queryir.ConnectionOperation, error) {
	sel, err := p.connection(entity, nil, f)
	if err != nil {
		return nil, err
	}
	ft, err := p.fulltext(entity, f)
	if err != nil {
		return nil, err
	}
	return &queryir.ConnectionOperation{Selection: sel, Fulltext: ft}, nil
}

func (p *planner) fulltext(entity *schema.Entity, f *request.Field) (*queryir.Fulltext, error) {
	m, err := argMap(entity, f, "fulltext")
	if err != nil || m == nil {
		return nil, err
	}
	if len(m) != 1 {
		return nil, compileErr(ErrBadArgument, entity.Name, "fulltext", "exactly one index must be named")
	}
	for name, v := range m {
		idx, ok := entity.FulltextIndex(name)
		if !ok {
			return nil, compileErr(ErrUnknownIndex, entity.Name, name, "no fulltext index named %q", name)
		}
		args, ok := v.(map[string]any)
		if !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, name, "fulltext arguments must be an object")
		}
		phrase, ok := args["phrase"].(string)
		if !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, name, "phrase must be a string")
		}
		return &queryir.Fulltext{Index: idx, Phrase: phrase}, nil
	}
	return nil, nil
}

// options reads options: {sort, limit, offset}.
func (p *planner) options(entity *schema.Entity, f *request.Field) ([]*queryir.Sort, *queryir.Pagination, error) {
	m, err := argMap(entity, f, "options")
	if err != nil || m == nil {
		return nil, nil, err
	}
	for _, k := range sortedKeys(m) {
		if k != "sort" && k != "limit" && k != "offset" {
			return nil, nil, compileErr(ErrUnknownField, entity.Name, "options."+k, "unknown option")
		}
	}

	var sorts []*queryir.Sort
	if raw, ok := m["sort"]; ok {
		if sorts, err = p.sort(entity, raw, false); err != nil {
			return nil, nil, err
		}
	}

	var page *queryir.Pagination
	if raw, ok := m["limit"]; ok && raw != nil {
		n, err := nonNegative(entity, "options.limit", raw)
		if err != nil {
			return nil, nil, err
		}
		page = &queryir.Pagination{Limit: &n}
	}
	if raw, ok := m["offset"]; ok && raw != nil {
		n, err := nonNegative(entity, "options.offset", raw)
		if err != nil {
			return nil, nil, err
		}
		if page == nil {
			page = &queryir.Pagination{}
		}
		page.Offset = n
	}
	return sorts, page, nil
}

// sort reads a list of {field: ASC|DESC} objects. Keys of one object are
// applied in sorted order.
func (p *planner) sort(entity *schema.Entity, raw any, edge bool) ([]*queryir.Sort, error) {
	list, ok := raw.([]any)
	if !ok {
		list = []any{raw}
	}
	var out []*queryir.Sort
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, compileErr(ErrBadArgument, entity.Name, "sort", "sort entries must be objects")
		}
		for _, k := range sortedKeys(m) {
			attr, ok := entity.Attribute(k)
			if !ok {
				return nil, compileErr(ErrUnknownField, entity.Name, k, "cannot sort on unknown attribute")
			}
			if !attr.Sortable || attr.List {
				return nil, compileErr(ErrNotSortable, entity.Name, k, "attribute is not sortable")
			}
			var desc bool
			switch m[k] {
			case "ASC":
			case "DESC":
				desc = true
			default:
				return nil, compileErr(ErrBadArgument, entity.Name, k, "sort direction must be ASC or DESC")
			}
			out = append(out, &queryir.Sort{Attribute: attr, Descending: desc, Edge: edge})
		}
	}
	return out, nil
}

func argMap(entity *schema.Entity, f *request.Field, name string) (map[string]any, error) {
	v, ok := f.Arg(name)
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, compileErr(ErrBadArgument, entity.Name, f.Name+"."+name, "argument must be an object")
	}
	return m, nil
}

// asList wraps a single object in a list; lists pass through.
func asList(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	default:
		return []any{x}
	}
}

func nonNegative(entity *schema.Entity, field string, v any) (int64, error) {
	n, ok := toInt64(v)
	if !ok || n < 0 {
		return 0, compileErr(ErrBadArgument, entity.Name, field, "must be a non-negative integer")
	}
	return n, nil
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
