package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_AddAndValue(t *testing.T) {
	params := NewParams()
	a := params.Add("a")
	b := params.Add(int64(2))

	assert.Equal(t, 0, a.ID())
	assert.Equal(t, 1, b.ID())
	assert.Equal(t, 2, params.Len())
	assert.Equal(t, "a", params.Value(a))
	assert.Equal(t, int64(2), params.Value(b))
}

func TestParams_KeyedIsShared(t *testing.T) {
	params := NewParams()
	first := params.Keyed("jwt.sub", "user-1")
	params.Add("other")
	second := params.Keyed("jwt.sub", "user-2")

	assert.Equal(t, first, second)
	assert.Equal(t, "user-1", params.Value(second))
	assert.Equal(t, 2, params.Len())
}
