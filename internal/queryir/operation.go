package queryir

import (
	"fmt"

	"github.com/roach88/cypherc/internal/schema"
)

// Operation is a planned root operation.
//
// This is a sealed interface - only types in this package implement it.
type Operation interface {
	Node
	operationNode()
	// RootKey is the response key of the root field.
	RootKey() string
}

// Fulltext is a fulltext index lookup that replaces the root match.
type Fulltext struct {
	Index  schema.FulltextIndex
	Phrase any
}

// ReadOperation lists nodes of one entity.
type ReadOperation struct {
	Key        string
	Entity     *schema.Entity
	Fulltext   *Fulltext
	Filter     Filter
	Auth       []*AuthorizationFilter
	Sort       []*Sort
	Page       *Pagination
	Selections []Selection
}

func (*ReadOperation) operationNode()    {}
func (o *ReadOperation) RootKey() string { return o.Key }

func (o *ReadOperation) Children() []Node {
	return nodes(nil).filter(o.Filter).auth(o.Auth).sort(o.Sort).page(o.Page).selections(o.Selections)
}

// ConnectionOperation is a root connection.
type ConnectionOperation struct {
	Selection *ConnectionSelection
	Fulltext  *Fulltext
}

func (*ConnectionOperation) operationNode()    {}
func (o *ConnectionOperation) RootKey() string { return o.Selection.Key }
func (o *ConnectionOperation) Children() []Node {
	return []Node{o.Selection}
}

// AggregateOperation is a root aggregation.
type AggregateOperation struct {
	Selection *AggregationSelection
}

func (*AggregateOperation) operationNode()    {}
func (o *AggregateOperation) RootKey() string { return o.Selection.Key }
func (o *AggregateOperation) Children() []Node {
	return []Node{o.Selection}
}

// WriteOp is how a property write combines with the stored value.
type WriteOp int

const (
	WriteSet WriteOp = iota
	WriteIncrement
	WriteDecrement
	WritePush
)

var writeOpNames = map[WriteOp]string{
	WriteSet:       "SET",
	WriteIncrement: "INCREMENT",
	WriteDecrement: "DECREMENT",
	WritePush:      "PUSH",
}

func (op WriteOp) String() string {
	if s, ok := writeOpNames[op]; ok {
		return s
	}
	return fmt.Sprintf("WriteOp(%d)", int(op))
}

// PropertyWrite assigns one attribute. Field is the input key it came from.
type PropertyWrite struct {
	Field     string
	Attribute *schema.Attribute
	Op        WriteOp
	Value     any
}

// InfoField is a requested mutation counter.
type InfoField struct {
	Key     string
	Counter string // nodesCreated, nodesDeleted, relationshipsCreated, relationshipsDeleted
}

// MutationResponse is the requested result of a mutation. DataKey is ""
// when no nodes are projected.
type MutationResponse struct {
	DataKey    string
	Selections []Selection
	InfoKey    string // "" when counters sit at the top of the response
	Info       []InfoField
}

// CreateInput creates one node. Auth holds the CREATE rules of the entity
// and of the written attributes.
type CreateInput struct {
	Entity        *schema.Entity
	Properties    []PropertyWrite
	Auth          []*AuthorizationFilter
	Relationships []*RelationshipWrite
}

func (c *CreateInput) Children() []Node {
	ns := nodes(nil).auth(c.Auth)
	for _, r := range c.Relationships {
		ns = append(ns, r)
	}
	return ns
}

// UpdateInput updates a matched node.
type UpdateInput struct {
	Entity        *schema.Entity
	Properties    []PropertyWrite
	Auth          []*AuthorizationFilter
	Relationships []*RelationshipWrite
}

func (u *UpdateInput) Children() []Node {
	ns := nodes(nil).auth(u.Auth)
	for _, r := range u.Relationships {
		ns = append(ns, r)
	}
	return ns
}

// RelationshipWrite groups the nested writes through one relationship
// field, applied in the order create, connect, update, disconnect, delete.
type RelationshipWrite struct {
	Relationship *schema.Relationship
	Target       *schema.Entity
	Create       []*NestedCreate
	Connect      []*Connect
	Update       []*NestedUpdate
	Disconnect   []*Disconnect
	Delete       []*NestedDelete
}

func (r *RelationshipWrite) Children() []Node {
	var ns nodes
	for _, c := range r.Create {
		ns = append(ns, c)
	}
	for _, c := range r.Connect {
		ns = append(ns, c)
	}
	for _, u := range r.Update {
		ns = append(ns, u)
	}
	for _, d := range r.Disconnect {
		ns = append(ns, d)
	}
	for _, d := range r.Delete {
		ns = append(ns, d)
	}
	return ns
}

// NestedCreate creates a node and relates it to the parent.
type NestedCreate struct {
	Node *CreateInput
	Edge []PropertyWrite
	Auth []*AuthorizationFilter // CREATE_RELATIONSHIP
}

func (c *NestedCreate) Children() []Node {
	return nodes(nil).auth(c.Auth).append(c.Node)
}

// Connect relates existing nodes matching Where to the parent.
type Connect struct {
	Where Filter
	Edge  []PropertyWrite
	Auth  []*AuthorizationFilter // CREATE_RELATIONSHIP, on the connected node
}

func (c *Connect) Children() []Node {
	return nodes(nil).filter(c.Where).auth(c.Auth)
}

// Disconnect deletes relationships to related nodes matching Where.
type Disconnect struct {
	Where     Filter
	EdgeWhere Filter
	Auth      []*AuthorizationFilter // DELETE_RELATIONSHIP, on the related node
}

func (d *Disconnect) Children() []Node {
	return nodes(nil).filter(d.Where).filter(d.EdgeWhere).auth(d.Auth)
}

// NestedUpdate updates related nodes matching Where, and optionally the
// properties of the relationship that reaches them.
type NestedUpdate struct {
	Where     Filter
	EdgeWhere Filter
	Update    *UpdateInput
	Edge      []PropertyWrite
}

func (u *NestedUpdate) Children() []Node {
	return nodes(nil).filter(u.Where).filter(u.EdgeWhere).append(u.Update)
}

// NestedDelete deletes related nodes matching Where, after their own nested
// deletes.
type NestedDelete struct {
	Relationship *schema.Relationship
	Target       *schema.Entity
	Where        Filter
	Auth         []*AuthorizationFilter // DELETE, on the deleted node
	Nested       []*NestedDelete
}

func (d *NestedDelete) Children() []Node {
	ns := nodes(nil).filter(d.Where).auth(d.Auth)
	for _, n := range d.Nested {
		ns = append(ns, n)
	}
	return ns
}

// CreateOperation creates one node per input.
type CreateOperation struct {
	Key      string
	Entity   *schema.Entity
	Inputs   []*CreateInput
	Response *MutationResponse
}

func (*CreateOperation) operationNode()    {}
func (o *CreateOperation) RootKey() string { return o.Key }

func (o *CreateOperation) Children() []Node {
	var ns nodes
	for _, in := range o.Inputs {
		ns = append(ns, in)
	}
	return ns.response(o.Response)
}

// UpdateOperation updates every node matching Filter.
type UpdateOperation struct {
	Key      string
	Entity   *schema.Entity
	Filter   Filter
	Update   *UpdateInput
	Response *MutationResponse
}

func (*UpdateOperation) operationNode()    {}
func (o *UpdateOperation) RootKey() string { return o.Key }

func (o *UpdateOperation) Children() []Node {
	return nodes(nil).filter(o.Filter).append(o.Update).response(o.Response)
}

// DeleteOperation deletes every node matching Filter.
type DeleteOperation struct {
	Key      string
	Entity   *schema.Entity
	Filter   Filter
	Auth     []*AuthorizationFilter
	Nested   []*NestedDelete
	Response *MutationResponse
}

func (*DeleteOperation) operationNode()    {}
func (o *DeleteOperation) RootKey() string { return o.Key }

func (o *DeleteOperation) Children() []Node {
	ns := nodes(nil).filter(o.Filter).auth(o.Auth)
	for _, n := range o.Nested {
		ns = append(ns, n)
	}
	return ns
}
