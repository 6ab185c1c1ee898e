package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/cypherc/internal/canonical"
	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
	"github.com/roach88/cypherc/internal/store"
	"github.com/roach88/cypherc/internal/translate"
)

// ParseErrorCode is the expectation code of request documents that do not
// parse.
const ParseErrorCode = "parse"

// Harness compiles scenario steps against one model.
type Harness struct {
	translator *translate.Translator
	journal    *store.Store
	modelHash  string
	logger     *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load and validate the model
// 2. Open a fresh in-memory journal
// 3. Compile each step, check expectations, journal the statement
// 4. Replay the journal and report any drift
//
// Expectation failures are reported in the result; the error return is
// reserved for scenarios that cannot run at all.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	model, err := schema.LoadDir(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if verrs := schema.Validate(model); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid model: %w", verrs[0])
	}
	modelHash, err := canonical.ModelFingerprint(model.Sources)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		translator: translate.New(model, translate.WithLogger(logger)),
		journal:    st,
		modelHash:  modelHash,
		logger:     logger,
	}

	result := NewResult()
	for _, step := range scenario.Steps {
		if err := h.runStep(ctx, scenario, step, result); err != nil {
			return nil, err
		}
	}

	report, err := st.Replay(ctx, modelHash, h.recompile)
	if err != nil {
		return nil, err
	}
	for _, r := range report.Results {
		switch r.Status {
		case store.ReplayMismatch:
			result.AddError(fmt.Sprintf("replay: %q recompiled to a different statement:\n%s", r.Entry.Source, r.Text))
		case store.ReplayError:
			result.AddError(fmt.Sprintf("replay: %q: %v", r.Entry.Source, r.Err))
		}
	}
	return result, nil
}

func (h *Harness) runStep(ctx context.Context, scenario *Scenario, step Step, result *Result) error {
	claims := request.Claims(nil)
	if scenario.Claims != nil && !step.Anonymous {
		claims = normalizeMap(scenario.Claims)
	}
	vars := normalizeMap(step.Variables)
	trace := StepTrace{Step: step.Name}

	stmt, err := h.compile(step.Request, step.Operation, vars, claims)
	if err != nil {
		trace.Error = errorCode(err)
		result.Trace = append(result.Trace, trace)
		if aerr := checkCompileError(step.Name, step.Expect, err); aerr != nil {
			result.AddError(aerr.Error())
		}
		return nil
	}

	trace.Text = stmt.Text
	trace.Params = stmt.ParamMap()
	trace.Warnings = stmt.Warnings
	result.Trace = append(result.Trace, trace)
	for _, aerr := range checkStatement(step.Name, step.Expect, stmt) {
		result.AddError(aerr.Error())
	}

	entry, err := store.NewEntry(store.Input{
		Source:    step.Request,
		Operation: step.Operation,
		Variables: vars,
		Claims:    claims,
		ModelHash: h.modelHash,
	}, stmt.Text, stmt.Params)
	if err != nil {
		return fmt.Errorf("step %s: %w", step.Name, err)
	}
	if _, _, err := h.journal.Record(ctx, entry); err != nil {
		return fmt.Errorf("step %s: %w", step.Name, err)
	}
	return nil
}

func (h *Harness) compile(src, operation string, vars map[string]any, claims request.Claims) (*translate.Statement, error) {
	op, err := request.ParseOperation(src, operation, vars)
	if err != nil {
		return nil, err
	}
	return h.translator.Compile(op, claims)
}

func (h *Harness) recompile(_ context.Context, e store.Entry) (string, []cypher.NamedParam, error) {
	stmt, err := h.compile(e.Source, e.Operation, e.Variables, request.Claims(e.Claims))
	if err != nil {
		return "", nil, err
	}
	return stmt.Text, stmt.Params, nil
}

func errorCode(err error) string {
	var ce *translate.CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var pe *request.ParseError
	if errors.As(err, &pe) {
		return ParseErrorCode
	}
	return err.Error()
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := request.Normalize(m).(map[string]any)
	return out
}
