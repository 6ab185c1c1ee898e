package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/cypherc/internal/cypher"
)

func TestContext_FreshIsSharedAcrossChildren(t *testing.T) {
	root := New()
	assert.Equal(t, Root, root.Target())

	a := root.Fresh("this")
	child := root.WithTarget(a)
	b := child.Fresh("var")
	c := root.Fresh("this")

	assert.Equal(t, cypher.Variable("this0"), a)
	assert.Equal(t, cypher.Variable("var1"), b)
	assert.Equal(t, cypher.Variable("this2"), c)
	assert.Equal(t, 3, root.Allocated())
	assert.Equal(t, 3, child.Allocated())
}

func TestContext_NeverMintsRoot(t *testing.T) {
	ctx := New()
	for i := 0; i < 20; i++ {
		assert.NotEqual(t, Root, ctx.Fresh("this"))
	}
}

func TestContext_ChildrenDoNotAffectParent(t *testing.T) {
	root := New()
	child := root.WithTarget("this0").WithRole(RoleEdge, "this1")

	assert.Equal(t, Root, root.Target())
	_, ok := root.Role(RoleEdge)
	assert.False(t, ok)
	_, ok = root.Role(RoleParent)
	assert.False(t, ok)

	assert.Equal(t, cypher.Variable("this0"), child.Target())
	parent, ok := child.Role(RoleParent)
	assert.True(t, ok)
	assert.Equal(t, Root, parent)
	edge, ok := child.Role(RoleEdge)
	assert.True(t, ok)
	assert.Equal(t, cypher.Variable("this1"), edge)
}

func TestContext_Deterministic(t *testing.T) {
	run := func() []cypher.Variable {
		ctx := New()
		var out []cypher.Variable
		out = append(out, ctx.Fresh("this"))
		nested := ctx.WithTarget(out[0])
		out = append(out, nested.Fresh("var"), ctx.Fresh("edges"))
		return out
	}
	assert.Equal(t, run(), run())
}
