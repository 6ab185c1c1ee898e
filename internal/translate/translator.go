// Package translate compiles a request against the data model into one
// parameterized Cypher statement.
//
// Compilation runs in three steps:
//
//	plan      request.Operation → queryir.Operation (all structural checks)
//	lower     queryir.Operation → cypher.Query (filters, auth, projections)
//	serialize cypher.Query → text + ordered parameter table
//
// A Translator is safe for concurrent use. Each Compile call owns its own
// scope counter, parameter table and warnings.
package translate

import (
	"errors"
	"log/slog"

	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/schema"
)

// ForbiddenMessage is the guard message of authorization failures.
const ForbiddenMessage = "Forbidden"

// Statement is a compiled request.
type Statement struct {
	Text     string
	Params   []cypher.NamedParam
	Shape    Shape
	Events   []Event
	Warnings []string
}

// ParamMap returns the parameters keyed by name, as drivers expect them.
func (s *Statement) ParamMap() map[string]any {
	m := make(map[string]any, len(s.Params))
	for _, p := range s.Params {
		m[p.Name] = p.Value
	}
	return m
}

// Event describes one mutation branch for change publishing after commit.
type Event struct {
	Type         string
	Operation    schema.Operation
	Relationship string   // relationship operations only
	Properties   []string // stored property names written
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		t.logger = l
	}
}

// Translator compiles requests against one data model.
type Translator struct {
	model  *schema.Model
	logger *slog.Logger
}

// New returns a Translator for model. The model must not be modified while
// the Translator is in use.
func New(model *schema.Model, opts ...Option) *Translator {
	t := &Translator{model: model, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Plan resolves a request into its IR tree without lowering it. Warnings
// include planner notes and queryir.Validate results.
func (t *Translator) Plan(op *request.Operation, claims request.Claims) (queryir.Operation, []string, error) {
	p := newPlanner(t.model, claims)
	planned, err := p.operation(op)
	if err != nil {
		return nil, nil, err
	}
	warnings := append(p.warnings, queryir.Validate(planned).Warnings...)
	return planned, warnings, nil
}

// Compile translates a request into a statement. Claims may be nil for an
// unauthenticated request.
func (t *Translator) Compile(op *request.Operation, claims request.Claims) (*Statement, error) {
	planned, warnings, err := t.Plan(op, claims)
	if err != nil {
		return nil, err
	}

	l := newLowerer(t.model, claims)
	q, err := l.operation(planned)
	if err != nil {
		return nil, err
	}

	text, params, err := q.Build(l.params)
	if err != nil {
		return nil, buildErr(err)
	}

	stmt := &Statement{
		Text:     text,
		Params:   params,
		Shape:    l.shape,
		Events:   l.events,
		Warnings: warnings,
	}
	t.logger.Debug("compiled statement",
		"root", planned.RootKey(),
		"kind", stmt.Shape.Kind,
		"params", len(params),
		"warnings", len(warnings),
	)
	return stmt, nil
}

// buildErr wraps a clause builder failure, which always indicates a lowering
// bug rather than a bad request.
func buildErr(err error) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce
	}
	return &CompileError{Code: ErrBuild, Message: err.Error()}
}
