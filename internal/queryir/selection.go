package queryir

import (
	"fmt"

	"github.com/roach88/cypherc/internal/schema"
)

// Selection is a projected field.
//
// This is a sealed interface - only types in this package implement it.
type Selection interface {
	Node
	selectionNode()
	// ResponseKey is the key the field is returned under.
	ResponseKey() string
}

// AttributeSelection projects a stored attribute.
type AttributeSelection struct {
	Key       string
	Attribute *schema.Attribute
}

func (*AttributeSelection) selectionNode()        {}
func (s *AttributeSelection) ResponseKey() string { return s.Key }
func (*AttributeSelection) Children() []Node      { return nil }

// TypenameSelection projects the concrete type name as a literal.
type TypenameSelection struct {
	Key  string
	Type string
}

func (*TypenameSelection) selectionNode()        {}
func (s *TypenameSelection) ResponseKey() string { return s.Key }
func (*TypenameSelection) Children() []Node      { return nil }

// RelationshipSelection projects related nodes of one concrete type.
type RelationshipSelection struct {
	Key          string
	Relationship *schema.Relationship
	Target       *schema.Entity
	Filter       Filter
	Auth         []*AuthorizationFilter
	Sort         []*Sort
	Page         *Pagination
	Selections   []Selection
}

func (*RelationshipSelection) selectionNode()        {}
func (s *RelationshipSelection) ResponseKey() string { return s.Key }

func (s *RelationshipSelection) Children() []Node {
	return nodes(nil).filter(s.Filter).auth(s.Auth).sort(s.Sort).page(s.Page).selections(s.Selections)
}

// PageInfoField is one requested pageInfo field.
type PageInfoField struct {
	Key  string
	Name string // hasNextPage, hasPreviousPage, startCursor, endCursor
}

// PageInfoSelection is the pageInfo part of a connection.
type PageInfoSelection struct {
	Key    string
	Fields []PageInfoField
}

// EdgeSelection is the edges part of a connection.
type EdgeSelection struct {
	Key           string
	CursorKey     string // "" when not requested
	NodeKey       string
	Node          []Selection
	PropertiesKey string
	Properties    []Selection
}

// ConnectionSelection projects a connection over a relationship, or over
// every node of Target when Relationship is nil. TotalCount counts matching
// edges before pagination.
type ConnectionSelection struct {
	Key          string
	Relationship *schema.Relationship
	Target       *schema.Entity
	NodeFilter   Filter
	EdgeFilter   Filter
	Auth         []*AuthorizationFilter
	Sort         []*Sort
	Page         *Pagination
	TotalCount   string // response key, "" when not requested
	PageInfo     *PageInfoSelection
	Edges        *EdgeSelection
}

func (*ConnectionSelection) selectionNode()        {}
func (s *ConnectionSelection) ResponseKey() string { return s.Key }

func (s *ConnectionSelection) Children() []Node {
	ns := nodes(nil).filter(s.NodeFilter).filter(s.EdgeFilter).auth(s.Auth).sort(s.Sort).page(s.Page)
	if s.Edges != nil {
		ns = ns.selections(s.Edges.Node).selections(s.Edges.Properties)
	}
	return ns
}

// PolymorphicBranch is the part of a polymorphic selection that applies to
// one concrete type.
type PolymorphicBranch struct {
	Target     *schema.Entity
	Filter     Filter
	Auth       []*AuthorizationFilter
	Selections []Selection
	// SortBy holds the concrete attribute behind each sort of the selection.
	SortBy []*schema.Attribute
}

func (b *PolymorphicBranch) Children() []Node {
	return nodes(nil).filter(b.Filter).auth(b.Auth).selections(b.Selections)
}

// PolymorphicSelection projects related nodes of an interface or union type
// with one branch per concrete type in declared order.
type PolymorphicSelection struct {
	Key          string
	Relationship *schema.Relationship
	Type         string
	Branches     []*PolymorphicBranch
	Sort         []*Sort
	Page         *Pagination
}

func (*PolymorphicSelection) selectionNode()        {}
func (s *PolymorphicSelection) ResponseKey() string { return s.Key }

func (s *PolymorphicSelection) Children() []Node {
	var ns nodes
	for _, b := range s.Branches {
		ns = append(ns, b)
	}
	return ns.sort(s.Sort).page(s.Page)
}

// AggregateFunc is an aggregation over attribute values.
type AggregateFunc int

const (
	AggMin AggregateFunc = iota
	AggMax
	AggAverage
	AggSum
	AggShortest
	AggLongest
)

var aggregateNames = map[AggregateFunc]string{
	AggMin:      "min",
	AggMax:      "max",
	AggAverage:  "average",
	AggSum:      "sum",
	AggShortest: "shortest",
	AggLongest:  "longest",
}

func (f AggregateFunc) String() string {
	if s, ok := aggregateNames[f]; ok {
		return s
	}
	return fmt.Sprintf("AggregateFunc(%d)", int(f))
}

// ParseAggregateFunc resolves a measure field name.
func ParseAggregateFunc(name string) (AggregateFunc, bool) {
	for f, s := range aggregateNames {
		if s == name {
			return f, true
		}
	}
	return 0, false
}

// Measure is one requested aggregate of an attribute.
type Measure struct {
	Key  string
	Func AggregateFunc
}

// AggregateField aggregates one attribute.
type AggregateField struct {
	Key       string
	Attribute *schema.Attribute
	Measures  []Measure
}

// AggregationSelection aggregates related nodes, or every node of Target
// when Relationship is nil.
type AggregationSelection struct {
	Key          string
	Relationship *schema.Relationship
	Target       *schema.Entity
	Filter       Filter
	Auth         []*AuthorizationFilter
	CountKey     string
	NodeKey      string
	Node         []AggregateField
	EdgeKey      string
	Edge         []AggregateField
}

func (*AggregationSelection) selectionNode()        {}
func (s *AggregationSelection) ResponseKey() string { return s.Key }

func (s *AggregationSelection) Children() []Node {
	return nodes(nil).filter(s.Filter).auth(s.Auth)
}

// CustomFieldSelection projects a computed field. Entity-typed fields carry
// Target and a nested selection.
type CustomFieldSelection struct {
	Key        string
	Field      *schema.CustomField
	Target     *schema.Entity
	Selections []Selection
}

func (*CustomFieldSelection) selectionNode()        {}
func (s *CustomFieldSelection) ResponseKey() string { return s.Key }

func (s *CustomFieldSelection) Children() []Node {
	return nodes(nil).selections(s.Selections)
}

// Sort is one sort key.
type Sort struct {
	Attribute  *schema.Attribute
	Descending bool
	Edge       bool // relationship property of a connection
}

func (*Sort) Children() []Node { return nil }

// Pagination is an offset window. Limit is nil for no limit.
type Pagination struct {
	Offset int64
	Limit  *int64
}

func (*Pagination) Children() []Node { return nil }
