package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainTree(t *testing.T) {
	out, err := execute(t, "explain", "--model", testModel, "testdata/requests/movies.graphql")
	require.NoError(t, err)

	assert.Contains(t, out, "Read movies (Movie)")
	assert.Contains(t, out, "Property title")
	assert.Contains(t, out, "Attribute released")
	assert.NotContains(t, out, "MATCH")
}

func TestExplainWithCypher(t *testing.T) {
	out, err := execute(t, "explain", "--model", testModel, "--cypher", "-q", `{ movies(where: {title: "Up"}) { title } }`)
	require.NoError(t, err)

	assert.Contains(t, out, "Read movies (Movie)")
	assert.Contains(t, out, "MATCH (this:Movie)\nWHERE this.title = $param0\nRETURN this { .title } AS this")
}

func TestExplainAuthorization(t *testing.T) {
	out, err := execute(t, "explain", "--model", testModel, "--claims", "testdata/claims.yaml",
		"--format", "json", "testdata/requests/posts.graphql")
	require.NoError(t, err)

	var result Explanation
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, result.Tree, "Read posts (Post)")
	assert.Contains(t, result.Tree, "Authorization")
	assert.Empty(t, result.Text)
}

func TestExplainRejectedRequest(t *testing.T) {
	out, err := execute(t, "explain", "--model", testModel, "testdata/requests/bad/unknown.graphql")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E202]")
}

func TestExplainNoRequest(t *testing.T) {
	out, err := execute(t, "explain", "--model", testModel)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNoFiles+"]")
}

func TestExplainRejectsSeveralRequests(t *testing.T) {
	_, err := execute(t, "explain", "--model", testModel, "-q", "{ movies { title } }", "testdata/requests/movies.graphql")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
