package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/schema"
)

func TestValidateValidModel(t *testing.T) {
	out, err := execute(t, "validate", testModel)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Model valid: 3 entity(ies), 0 interface(s), 0 union(s)")
	assert.Contains(t, out, "Movie: [movies moviesConnection moviesAggregate createMovies updateMovies deleteMovies]")
	assert.Contains(t, out, "Post: [posts postsConnection postsAggregate createPosts updatePosts deletePosts]")
}

func TestValidateUsesConfiguredModel(t *testing.T) {
	out, err := execute(t, "validate", "--model", testModel)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Model valid")
}

func TestValidateValidModelJSON(t *testing.T) {
	out, err := execute(t, "validate", testModel, "--format", "json")
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	require.Len(t, result.Entities, 3)
	assert.Equal(t, "Movie", result.Entities[0].Name)
	assert.Equal(t, []string{"Movie"}, result.Entities[0].Labels)
	assert.Empty(t, result.Errors)
}

func TestValidateInvalidModel(t *testing.T) {
	out, err := execute(t, "validate", "testdata/badmodel")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, schema.ErrUnknownScalar)
}

func TestValidateInvalidModelJSON(t *testing.T) {
	out, err := execute(t, "validate", "testdata/badmodel", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, schema.ErrUnknownScalar, resp.Error.Code)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
}

func TestValidateCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing directory", "testdata/nowhere", ErrCodeNotFound},
		{"not a directory", "testdata/claims.yaml", ErrCodeNotFound},
		{"no cue files", "testdata/requests", ErrCodeNoFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "validate", tt.dir)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestValidateTooManyArgs(t *testing.T) {
	_, err := execute(t, "validate", testModel, "extra")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg")
}
