// Package executor runs compiled statements against Neo4j and assembles the
// response value the statement's Shape describes.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/cypherc/internal/translate"
)

var (
	// ErrForbidden reports a failed authorization guard.
	ErrForbidden = errors.New("forbidden")
	// ErrIntegrity reports a required relationship that is missing or
	// duplicated after a mutation.
	ErrIntegrity = errors.New("integrity violation")
)

// integrityMarker ends every relationship cardinality guard message.
const integrityMarker = "required exactly once"

// Counters holds the write counters of one statement, keyed by the names
// mutation responses use (nodesCreated, relationshipsDeleted, ...).
type Counters map[string]int64

// Runner runs one statement in a write transaction and returns its rows and
// counters. The transaction is rolled back when an error is returned.
type Runner interface {
	Run(ctx context.Context, text string, params map[string]any) ([]map[string]any, Counters, error)
}

// Response is the outcome of a successful execution.
type Response struct {
	// Data maps the root response key to its value.
	Data     map[string]any
	Counters Counters
	// Events are the mutation events of the committed statement.
	Events []translate.Event
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithTimeout bounds each execution. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// Executor executes compiled statements.
type Executor struct {
	runner  Runner
	logger  *slog.Logger
	timeout time.Duration
}

// New returns an Executor using runner.
func New(runner Runner, opts ...Option) *Executor {
	e := &Executor{runner: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs stmt and shapes its result. Guard failures are returned as
// errors wrapping ErrForbidden or ErrIntegrity.
func (e *Executor) Execute(ctx context.Context, stmt *translate.Statement) (*Response, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, counters, err := e.runner.Run(ctx, stmt.Text, stmt.ParamMap())
	if err != nil {
		err = classify(err)
		e.logger.Debug("statement failed", "root", stmt.Shape.Root, "error", err)
		return nil, err
	}
	e.logger.Debug("statement executed",
		"root", stmt.Shape.Root,
		"rows", len(rows),
		"duration", time.Since(start),
	)

	value, err := assemble(stmt.Shape, rows, counters)
	if err != nil {
		return nil, err
	}
	decorate(stmt.Shape, value)
	return &Response{
		Data:     map[string]any{stmt.Shape.Root: value},
		Counters: counters,
		Events:   stmt.Events,
	}, nil
}

// classify maps guard failures raised by apoc.util.validate to sentinel
// errors. The database reports them as procedure failures whose message
// carries the guard message.
func classify(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, translate.ForbiddenMessage):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case strings.Contains(msg, integrityMarker):
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	default:
		return fmt.Errorf("execute: %w", err)
	}
}

func assemble(shape translate.Shape, rows []map[string]any, counters Counters) (any, error) {
	switch shape.Kind {
	case translate.ShapeList:
		list := make([]any, 0, len(rows))
		for _, row := range rows {
			list = append(list, row[shape.Column])
		}
		return list, nil
	case translate.ShapeConnection, translate.ShapeAggregate:
		if len(rows) != 1 {
			return nil, fmt.Errorf("execute: %s result has %d rows, want 1", shape.Kind, len(rows))
		}
		return rows[0][shape.Column], nil
	case translate.ShapeMutation:
		return mutationValue(shape, rows, counters), nil
	default:
		return nil, fmt.Errorf("execute: unknown shape %s", shape.Kind)
	}
}

// decorate fills connection cursors. Mutation connection paths start at
// each written node, so only the data list is descended.
func decorate(shape translate.Shape, value any) {
	if len(shape.Connections) == 0 {
		return
	}
	if shape.Kind == translate.ShapeMutation {
		m, _ := value.(map[string]any)
		if shape.Mutation != nil && m != nil {
			shape.Decorate(m[shape.Mutation.DataKey])
		}
		return
	}
	shape.Decorate(value)
}

func mutationValue(shape translate.Shape, rows []map[string]any, counters Counters) map[string]any {
	out := map[string]any{}
	ms := shape.Mutation
	if ms == nil {
		return out
	}
	if ms.DataKey != "" {
		data := []any{}
		if shape.Column != "" && len(rows) > 0 {
			if list, ok := rows[0][shape.Column].([]any); ok {
				data = list
			}
		}
		out[ms.DataKey] = data
	}
	if ms.InfoKey != "" {
		info := map[string]any{}
		for _, c := range ms.Counters {
			info[c.Key] = counters[c.Counter]
		}
		out[ms.InfoKey] = info
	}
	return out
}
