package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/movie_catalog.yaml")
	require.NoError(t, err)

	assert.Equal(t, "movie_catalog", s.Name)
	assert.Equal(t, filepath.Join("testdata", "model"), s.Model)
	assert.Equal(t, map[string]any{"sub": "u1", "roles": []any{"admin"}}, s.Claims)
	require.Len(t, s.Steps, 6)
	assert.Equal(t, "E202", s.Steps[5].Expect.Error)
	assert.True(t, s.Steps[4].Anonymous)
	require.NotNil(t, s.Steps[0].Expect.Warnings)
	assert.Equal(t, 0, *s.Steps[0].Expect.Warnings)
}

func TestLoadScenarioMissingModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: s
description: d
model: nowhere
steps:
  - name: a
    request: "{ movies { title } }"
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model directory")
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: s\ndescription: d\nmodel: m\nstep: []\n",
			want: "field step not found",
		},
		{
			name: "missing name",
			yaml: "description: d\nmodel: m\nsteps: [{name: a, request: x}]\n",
			want: "name is required",
		},
		{
			name: "missing model",
			yaml: "name: s\ndescription: d\nsteps: [{name: a, request: x}]\n",
			want: "model is required",
		},
		{
			name: "no steps",
			yaml: "name: s\ndescription: d\nmodel: m\n",
			want: "steps list is required",
		},
		{
			name: "duplicate step",
			yaml: "name: s\ndescription: d\nmodel: m\nsteps: [{name: a, request: x}, {name: a, request: y}]\n",
			want: `duplicate step name "a"`,
		},
		{
			name: "missing request",
			yaml: "name: s\ndescription: d\nmodel: m\nsteps: [{name: a}]\n",
			want: "steps[0]: request is required",
		},
		{
			name: "error with contains",
			yaml: "name: s\ndescription: d\nmodel: m\nsteps: [{name: a, request: x, expect: {error: E202, contains: [MATCH]}}]\n",
			want: "error cannot be combined",
		},
		{
			name: "unknown shape",
			yaml: "name: s\ndescription: d\nmodel: m\nsteps: [{name: a, request: x, expect: {shape: table}}]\n",
			want: `unknown shape "table"`,
		},
		{
			name: "incomplete event",
			yaml: "name: s\ndescription: d\nmodel: m\nsteps: [{name: a, request: x, expect: {events: [{type: Movie}]}}]\n",
			want: "type and operation are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
