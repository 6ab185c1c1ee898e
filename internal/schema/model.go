package schema

import "slices"

// ScalarType is the declared type of an attribute.
type ScalarType string

const (
	TypeID       ScalarType = "ID"
	TypeString   ScalarType = "String"
	TypeInt      ScalarType = "Int"
	TypeBigInt   ScalarType = "BigInt"
	TypeFloat    ScalarType = "Float"
	TypeBoolean  ScalarType = "Boolean"
	TypeDateTime ScalarType = "DateTime"
	TypeDate     ScalarType = "Date"
	TypePoint    ScalarType = "Point"
)

var scalarTypes = []ScalarType{
	TypeID, TypeString, TypeInt, TypeBigInt, TypeFloat,
	TypeBoolean, TypeDateTime, TypeDate, TypePoint,
}

// Valid reports whether t is a known scalar type.
func (t ScalarType) Valid() bool {
	return slices.Contains(scalarTypes, t)
}

// Numeric reports whether values of t are numbers.
func (t ScalarType) Numeric() bool {
	return t == TypeInt || t == TypeBigInt || t == TypeFloat
}

// Textual reports whether values of t are strings.
func (t ScalarType) Textual() bool {
	return t == TypeID || t == TypeString
}

// Temporal reports whether values of t are dates or date-times.
func (t ScalarType) Temporal() bool {
	return t == TypeDateTime || t == TypeDate
}

// Attribute is a scalar field of an entity.
type Attribute struct {
	Name     string
	DBName   string // stored property name, defaults to Name
	Type     ScalarType
	List     bool
	Required bool

	Filterable   bool
	Sortable     bool
	Aggregatable bool

	Rules []Rule
}

// Stored returns the property name used in the database.
func (a *Attribute) Stored() string {
	if a.DBName != "" {
		return a.DBName
	}
	return a.Name
}

// Direction is the direction of a relationship read from its owning entity.
type Direction string

const (
	DirectionOut Direction = "OUT"
	DirectionIn  Direction = "IN"
)

// Relationship is a field that traverses a relationship type.
type Relationship struct {
	Name       string
	Type       string // relationship type in the database, e.g. ACTED_IN
	Direction  Direction
	Target     string // entity, interface or union name
	Many       bool
	Required   bool   // to-one relationships only
	Properties string // edge type carrying relationship properties, "" for none

	Rules []Rule
}

// CustomField is a computed field backed by a user statement. The statement
// refers to the owning node as "this" and returns Column.
type CustomField struct {
	Name      string
	Statement string
	Column    string
	Type      ScalarType // scalar result type, empty when Target is set
	Target    string     // entity result type, empty for scalars
	List      bool
}

// FulltextIndex is a named fulltext index over entity attributes.
type FulltextIndex struct {
	Name   string
	Fields []string
}

// Entity is a node type, or a relationship-property type when Edge is set.
type Entity struct {
	Name   string
	Labels []string
	Edge   bool

	Attributes    []*Attribute
	Relationships []*Relationship
	CustomFields  []*CustomField
	Fulltext      []FulltextIndex
	Implements    []string
	Rules         []Rule
}

// Attribute returns the named attribute.
func (e *Entity) Attribute(name string) (*Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Relationship returns the named relationship field.
func (e *Entity) Relationship(name string) (*Relationship, bool) {
	for _, r := range e.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// CustomField returns the named computed field.
func (e *Entity) CustomField(name string) (*CustomField, bool) {
	for _, c := range e.CustomFields {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// FulltextIndex returns the named fulltext index.
func (e *Entity) FulltextIndex(name string) (FulltextIndex, bool) {
	for _, idx := range e.Fulltext {
		if idx.Name == name {
			return idx, true
		}
	}
	return FulltextIndex{}, false
}

// NodeLabels returns the labels matched for the entity.
func (e *Entity) NodeLabels() []string {
	if len(e.Labels) > 0 {
		return e.Labels
	}
	return []string{e.Name}
}

// AttributesStoredAs returns every attribute whose stored name is stored, in
// declaration order.
func (e *Entity) AttributesStoredAs(stored string) []*Attribute {
	var out []*Attribute
	for _, a := range e.Attributes {
		if a.Stored() == stored {
			out = append(out, a)
		}
	}
	return out
}

// Interface is an abstract type implemented by entities.
type Interface struct {
	Name            string
	Attributes      []*Attribute
	Implementations []string // declaration order
}

// Union is a set of entity types.
type Union struct {
	Name    string
	Members []string // declaration order
}

// ClaimType is the declared type of a claim, e.g. "String" or "[String]".
type ClaimType struct {
	Type ScalarType
	List bool
}

// Model is the complete data model.
type Model struct {
	Entities   []*Entity
	Edges      []*Entity
	Interfaces []*Interface
	Unions     []*Union
	Claims     map[string]ClaimType
	// Sources holds the description the model was loaded from, keyed by
	// file path relative to the load directory.
	Sources map[string]string
}

// Entity returns the named node entity.
func (m *Model) Entity(name string) (*Entity, bool) {
	for _, e := range m.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Edge returns the named relationship-property type.
func (m *Model) Edge(name string) (*Entity, bool) {
	for _, e := range m.Edges {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Interface returns the named interface.
func (m *Model) Interface(name string) (*Interface, bool) {
	for _, i := range m.Interfaces {
		if i.Name == name {
			return i, true
		}
	}
	return nil, false
}

// Union returns the named union.
func (m *Model) Union(name string) (*Union, bool) {
	for _, u := range m.Unions {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// Polymorphic reports whether name is an interface or union.
func (m *Model) Polymorphic(name string) bool {
	if _, ok := m.Interface(name); ok {
		return true
	}
	_, ok := m.Union(name)
	return ok
}

// Concrete returns the entities a type name can resolve to: the entity
// itself, an interface's implementations or a union's members, in
// declaration order. Unknown names resolve to nothing.
func (m *Model) Concrete(name string) []*Entity {
	var names []string
	switch {
	case m.isEntity(name):
		names = []string{name}
	default:
		if i, ok := m.Interface(name); ok {
			names = i.Implementations
		} else if u, ok := m.Union(name); ok {
			names = u.Members
		}
	}

	out := make([]*Entity, 0, len(names))
	for _, n := range names {
		if e, ok := m.Entity(n); ok {
			out = append(out, e)
		}
	}
	return out
}

func (m *Model) isEntity(name string) bool {
	_, ok := m.Entity(name)
	return ok
}

// Claim returns the declared type of a claim path.
func (m *Model) Claim(path string) (ClaimType, bool) {
	c, ok := m.Claims[path]
	return c, ok
}
