package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
	"github.com/roach88/cypherc/internal/translate"
)

func intPtr(n int) *int { return &n }

func testStatement() *translate.Statement {
	return &translate.Statement{
		Text:     "MATCH (this:Movie)\nWHERE this.title = $param0\nRETURN this { .title } AS this",
		Params:   []cypher.NamedParam{{Name: "param0", Value: "Heat"}, {Name: "param1", Value: int64(3)}},
		Shape:    translate.Shape{Kind: translate.ShapeList},
		Events:   []translate.Event{{Type: "Movie", Operation: schema.OpCreate}},
		Warnings: []string{"movies: paginated without sort; row order is not guaranteed"},
	}
}

func TestCheckStatementPasses(t *testing.T) {
	exp := Expect{
		Shape:       "list",
		Contains:    []string{"WHERE this.title"},
		NotContains: []string{"CALL"},
		Order:       []string{"MATCH", "WHERE", "RETURN"},
		Params:      map[string]any{"param0": "Heat", "param1": 3},
		Warnings:    intPtr(1),
		Events:      []EventExpect{{Type: "Movie", Operation: "CREATE"}},
	}

	assert.Empty(t, checkStatement("s", exp, testStatement()))
}

func TestCheckStatementFailures(t *testing.T) {
	tests := []struct {
		name  string
		exp   Expect
		check string
	}{
		{"shape", Expect{Shape: "connection"}, "shape"},
		{"contains", Expect{Contains: []string{"EXISTS"}}, "contains"},
		{"not contains", Expect{NotContains: []string{"MATCH"}}, "not_contains"},
		{"order", Expect{Order: []string{"RETURN", "MATCH"}}, "order"},
		{"param value", Expect{Params: map[string]any{"param0": "Alien"}}, "params"},
		{"param type", Expect{Params: map[string]any{"param1": 3.0}}, "params"},
		{"param missing", Expect{Params: map[string]any{"param7": 1}}, "params"},
		{"warnings", Expect{Warnings: intPtr(0)}, "warnings"},
		{"event", Expect{Events: []EventExpect{{Type: "Movie", Operation: "DELETE"}}}, "events"},
		{"event count", Expect{Events: []EventExpect{{Type: "Movie", Operation: "CREATE"}, {Type: "Movie", Operation: "CREATE"}}}, "events"},
		{"expected error", Expect{Error: "E202"}, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := checkStatement("s", tt.exp, testStatement())
			require.Len(t, errs, 1)
			var aerr *AssertionError
			require.ErrorAs(t, errs[0], &aerr)
			assert.Equal(t, tt.check, aerr.Check)
			assert.Contains(t, aerr.Error(), "step s: "+tt.check+" failed")
		})
	}
}

func TestCheckCompileError(t *testing.T) {
	compileErr := &translate.CompileError{Code: "E202", Type: "Movie", Field: "budget", Message: "unknown field"}

	assert.NoError(t, checkCompileError("s", Expect{Error: "E202"}, compileErr))
	assert.Error(t, checkCompileError("s", Expect{Error: "E203"}, compileErr))
	assert.Error(t, checkCompileError("s", Expect{}, compileErr))
	assert.NoError(t, checkCompileError("s", Expect{Error: ParseErrorCode}, &request.ParseError{Message: "bad"}))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "E201", errorCode(&translate.CompileError{Code: "E201"}))
	assert.Equal(t, ParseErrorCode, errorCode(&request.ParseError{Message: "x"}))
	assert.Equal(t, "boom", errorCode(errors.New("boom")))
}

func TestCheckOrder(t *testing.T) {
	assert.Empty(t, checkOrder("a b c", []string{"a", "c"}))
	assert.Empty(t, checkOrder("a b c", nil))
	assert.NotEmpty(t, checkOrder("a b c", []string{"c", "a"}))
	assert.NotEmpty(t, checkOrder("a", []string{"a", "a"}), "each needle consumes its occurrence")
}
