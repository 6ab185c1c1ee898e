package schema

import "github.com/go-openapi/inflect"

// Names are the root operation names derived from an entity name.
type Names struct {
	Plural     string // movies
	Connection string // moviesConnection
	Aggregate  string // moviesAggregate
	Create     string // createMovies
	Update     string // updateMovies
	Delete     string // deleteMovies
}

// NamesFor derives root operation names for an entity.
func NamesFor(entity string) Names {
	plural := inflect.Pluralize(entity)
	lower := inflect.CamelizeDownFirst(plural)
	upper := inflect.Camelize(plural)
	return Names{
		Plural:     lower,
		Connection: lower + "Connection",
		Aggregate:  lower + "Aggregate",
		Create:     "create" + upper,
		Update:     "update" + upper,
		Delete:     "delete" + upper,
	}
}

// RootKind is the kind of root field a name resolves to.
type RootKind int

const (
	RootRead RootKind = iota
	RootConnection
	RootAggregate
	RootCreate
	RootUpdate
	RootDelete
)

// RootField resolves a root operation field name to its entity.
func (m *Model) RootField(name string) (*Entity, RootKind, bool) {
	for _, e := range m.Entities {
		n := NamesFor(e.Name)
		switch name {
		case n.Plural:
			return e, RootRead, true
		case n.Connection:
			return e, RootConnection, true
		case n.Aggregate:
			return e, RootAggregate, true
		case n.Create:
			return e, RootCreate, true
		case n.Update:
			return e, RootUpdate, true
		case n.Delete:
			return e, RootDelete, true
		}
	}
	return nil, 0, false
}
