package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/movie_catalog.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Trace, 6)
}

func TestRunReportsFailedExpectations(t *testing.T) {
	s := &Scenario{
		Name:        "failing",
		Description: "expectations that do not hold",
		Model:       filepath.Join("testdata", "model"),
		Steps: []Step{
			{
				Name:    "wrong_param",
				Request: `{ movies(where: {title: "Heat"}) { title } }`,
				Expect:  Expect{Params: map[string]any{"param0": "Alien"}},
			},
			{
				Name:    "unexpected_error",
				Request: `{ movies { budget } }`,
			},
			{
				Name:    "wrong_code",
				Request: `{ films { title } }`,
				Expect:  Expect{Error: "E202"},
			},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "step wrong_param: params failed")
	assert.Contains(t, result.Errors[1], "step unexpected_error: compile failed")
	assert.Contains(t, result.Errors[2], "step wrong_code: error failed")

	assert.Equal(t, "E202", result.Trace[1].Error)
	assert.Equal(t, "E201", result.Trace[2].Error)
}

func TestRunParseError(t *testing.T) {
	s := &Scenario{
		Name:        "parse",
		Description: "request that does not parse",
		Model:       filepath.Join("testdata", "model"),
		Steps:       []Step{{Name: "broken", Request: "{ movies {", Expect: Expect{Error: ParseErrorCode}}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunBadModel(t *testing.T) {
	s := &Scenario{
		Name:        "bad",
		Description: "missing model",
		Model:       filepath.Join("testdata", "nowhere"),
		Steps:       []Step{{Name: "a", Request: "{ movies { title } }"}},
	}

	_, err := Run(context.Background(), s)
	assert.ErrorContains(t, err, "load model")
}
