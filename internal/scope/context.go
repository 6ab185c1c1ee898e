// Package scope tracks variable bindings while an operation is lowered.
//
// A Context is an immutable snapshot: the focal target variable, a set of
// named roles, and a counter shared by every Context derived from the same
// root. Deriving a child never changes the parent. Fresh names are minted
// from the shared counter, so allocation order equals call order and the
// same compilation always yields the same names.
package scope

import (
	"maps"
	"strconv"

	"github.com/roach88/cypherc/internal/cypher"
)

// Root is the variable bound to the top-level entity of every statement. It
// carries no numeric suffix, so Fresh can never produce it.
const Root cypher.Variable = "this"

// Role names a binding other than the target.
type Role string

const (
	RoleParent       Role = "parent"
	RoleEdge         Role = "edge"
	RoleRelationship Role = "relationship"
)

type counter struct {
	next int
}

// Context is one lowering scope.
type Context struct {
	counter *counter
	target  cypher.Variable
	roles   map[Role]cypher.Variable
}

// New returns a root Context targeting Root with a fresh counter.
func New() *Context {
	return &Context{counter: &counter{}, target: Root}
}

// Fresh mints a variable named hint followed by the next counter value.
func (c *Context) Fresh(hint string) cypher.Variable {
	name := hint + strconv.Itoa(c.counter.next)
	c.counter.next++
	return cypher.Variable(name)
}

// Target returns the focal variable.
func (c *Context) Target() cypher.Variable {
	return c.target
}

// Role returns the variable bound to role, if any.
func (c *Context) Role(role Role) (cypher.Variable, bool) {
	v, ok := c.roles[role]
	return v, ok
}

// WithTarget returns a child focused on v. The previous target becomes the
// child's parent role.
func (c *Context) WithTarget(v cypher.Variable) *Context {
	child := c.clone()
	child.roles[RoleParent] = c.target
	child.target = v
	return child
}

// WithRole returns a child with role bound to v.
func (c *Context) WithRole(role Role, v cypher.Variable) *Context {
	child := c.clone()
	child.roles[role] = v
	return child
}

// Allocated returns how many names have been minted from the shared counter.
func (c *Context) Allocated() int {
	return c.counter.next
}

func (c *Context) clone() *Context {
	roles := make(map[Role]cypher.Variable, len(c.roles)+1)
	maps.Copy(roles, c.roles)
	return &Context{counter: c.counter, target: c.target, roles: roles}
}
