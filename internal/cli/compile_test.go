package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/schema"
	"github.com/roach88/cypherc/internal/translate"
)

func TestCompileFile(t *testing.T) {
	out, err := execute(t, "compile", "--model", testModel, "testdata/requests/movies.graphql")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ testdata/requests/movies.graphql (list)")
	assert.Contains(t, out, "MATCH (this:Movie)\nWHERE this.title = $param0\nRETURN this { .title, .released } AS this")
	assert.Contains(t, out, `params: {"param0":"The Matrix"}`)
	assert.Contains(t, out, "Compiled 1 request(s), 0 failed")
}

func TestCompileGlobJSON(t *testing.T) {
	out, err := execute(t, "compile", "--model", testModel, "--format", "json", "testdata/requests/*.graphql")
	require.NoError(t, err)

	var result CompilationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Requests, 2)
	assert.Equal(t, 2, result.Compiled)
	assert.Zero(t, result.Failed)

	movies := result.Requests[0]
	assert.Equal(t, filepath.Join("testdata", "requests", "movies.graphql"), movies.Source)
	assert.Equal(t, "list", movies.Shape)
	assert.Equal(t, map[string]any{"param0": "The Matrix"}, movies.Params)
	assert.Len(t, movies.Fingerprint, 64)
	assert.True(t, strings.HasSuffix(result.Requests[1].Source, "posts.graphql"))
}

func TestCompileRecursivePattern(t *testing.T) {
	out, err := execute(t, "compile", "--model", testModel, "--format", "json", "testdata/requests/**/*.graphql")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result CompilationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, translate.ErrUnknownField, resp.Error.Code)
	assert.Len(t, result.Requests, 3)
	assert.Equal(t, 2, result.Compiled)
	assert.Equal(t, 1, result.Failed)
}

func TestCompileRejectedRequest(t *testing.T) {
	out, err := execute(t, "compile", "--model", testModel, "testdata/requests/bad/unknown.graphql")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ testdata/requests/bad/unknown.graphql")
	assert.Contains(t, out, "E202")
	assert.Contains(t, out, "Compiled 0 request(s), 1 failed")
}

func TestCompileParseError(t *testing.T) {
	out, err := execute(t, "compile", "--model", testModel, "-q", "{ movies { title ")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ <query>")
	assert.Contains(t, out, ErrCodeParse)
}

func TestCompileInlineQueryWithClaims(t *testing.T) {
	out, err := execute(t, "compile", "--model", testModel, "--claims", "testdata/claims.yaml",
		"-q", "{ posts { title } }")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ <query> (list)")
	assert.Contains(t, out, `"u1"`)
}

func TestCompileVariables(t *testing.T) {
	vars := filepath.Join(t.TempDir(), "vars.yaml")
	require.NoError(t, os.WriteFile(vars, []byte("n: 2\n"), 0o644))

	out, err := execute(t, "compile", "--model", testModel, "--vars", vars,
		"-q", "query Page($n: Int) { movies(options: {limit: $n}) { title } }")
	require.NoError(t, err)
	assert.Contains(t, out, "LIMIT $param0")
	assert.Contains(t, out, `params: {"param0":2}`)
}

func TestCompileOperationName(t *testing.T) {
	out, err := execute(t, "compile", "--model", testModel, "--operation", "OwnedPosts", "testdata/requests/posts.graphql")
	require.NoError(t, err)
	assert.Contains(t, out, "MATCH (this:Post)")

	_, err = execute(t, "compile", "--model", testModel, "--operation", "Missing", "testdata/requests/posts.graphql")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCompileCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"no requests", []string{"compile", "--model", testModel}, ErrCodeNoFiles},
		{"missing model", []string{"compile", "--model", "testdata/nowhere", "-q", "{ movies { title } }"}, ErrCodeNotFound},
		{"invalid model", []string{"compile", "--model", "testdata/badmodel", "-q", "{ movies { title } }"}, ErrCodeInvalidModel},
		{"no matches", []string{"compile", "--model", testModel, "testdata/requests/*.gql"}, ErrCodeNoFiles},
		{"missing file", []string{"compile", "--model", testModel, "testdata/requests/absent.graphql"}, ErrCodeNotFound},
		{"missing claims", []string{"compile", "--model", testModel, "--claims", "testdata/absent.yaml", "-q", "{ movies { title } }"}, ErrCodeInputFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(tt.args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decodeResponse(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCompileJournal(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")
	args := []string{"compile", "--model", testModel, "--journal", journal, "testdata/requests/*.graphql"}

	out, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Journaled 2 new statement(s)")

	out, err = execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Journaled 0 new statement(s)")
}

func TestCompileBatchKeepsInputOrder(t *testing.T) {
	model, err := schema.LoadDir(testModel)
	require.NoError(t, err)
	tr := translate.New(model)

	inputs := []requestInput{
		{Name: "a", Source: "{ movies { title } }"},
		{Name: "b", Source: "{ movies { rating } }"},
		{Name: "c", Source: "{ users { name } }"},
		{Name: "d", Source: "{ posts { title } }"},
	}

	for _, limit := range []int{1, 4} {
		results, err := compileBatch(context.Background(), tr, inputs, "", nil, nil, limit)
		require.NoError(t, err)
		require.Len(t, results, len(inputs))
		for i, r := range results {
			assert.Equal(t, inputs[i].Name, r.Source)
		}
		assert.Nil(t, results[0].Error)
		require.NotNil(t, results[1].Error)
		assert.Equal(t, translate.ErrUnknownField, results[1].Error.Code)
		assert.Equal(t, "MATCH (this:User)\nRETURN this { .name } AS this", results[2].Text)
	}
}

func TestCompileBatchCancelled(t *testing.T) {
	model, err := schema.LoadDir(testModel)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = compileBatch(ctx, translate.New(model), []requestInput{{Name: "a", Source: "{ movies { title } }"}}, "", nil, nil, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
