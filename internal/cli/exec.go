package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/cypherc/internal/config"
	"github.com/roach88/cypherc/internal/executor"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/translate"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Query     string
	Operation string
	VarsFile  string
}

// ExecEvent is a mutation event of an executed statement.
type ExecEvent struct {
	Type         string `json:"type"`
	Operation    string `json:"operation"`
	Relationship string `json:"relationship,omitempty"`
}

// ExecResult is the response of an executed request.
type ExecResult struct {
	Data     map[string]any   `json:"data"`
	Counters executor.Counters `json:"counters,omitempty"`
	Events   []ExecEvent      `json:"events,omitempty"`
}

// dialRunner connects to the database. Tests replace it.
var dialRunner = func(ctx context.Context, cfg config.Neo4jConfig) (executor.Runner, func(context.Context) error, error) {
	r, err := executor.Dial(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec [request-file]",
		Short: "Compile a request and run it against Neo4j",
		Long: `Compile one request and run the statement in a write transaction,
printing the shaped response. The password is read from neo4j.password
or CYPHERC_NEO4J_PASSWORD.

Exit codes:
  0 - Statement executed
  1 - Request rejected, or an authorization or integrity guard failed
  2 - Command error (database unreachable, incomplete config)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "inline request document")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation name to execute")
	cmd.Flags().StringVar(&opts.VarsFile, "vars", "", "request variables file (YAML or JSON)")

	return cmd
}

func runExec(opts *ExecOptions, args []string, cmd *cobra.Command) error {
	cfg := opts.config()
	formatter := opts.formatter(cmd)

	if err := cfg.ValidateNeo4j(); err != nil {
		return commandError(formatter, ErrCodeConfig, err.Error(), nil)
	}
	in, lerr := singleRequest(args, opts.Query)
	if lerr != nil {
		return commandError(formatter, lerr.Code, lerr.Message, nil)
	}
	model, _, lerr := loadModel(cfg.Model.Dir)
	if lerr != nil {
		return commandError(formatter, lerr.Code, lerr.Message, lerr.Details)
	}
	claims, lerr := loadClaims(cfg.Compile.ClaimsFile)
	if lerr != nil {
		return commandError(formatter, lerr.Code, lerr.Message, nil)
	}
	vars, lerr := loadVariables(opts.VarsFile)
	if lerr != nil {
		return commandError(formatter, lerr.Code, lerr.Message, nil)
	}

	op, err := request.ParseOperation(in.Source, opts.Operation, vars)
	if err != nil {
		return explainFailed(formatter, err)
	}
	stmt, err := translate.New(model, translate.WithLogger(opts.logger())).Compile(op, claims)
	if err != nil {
		return explainFailed(formatter, err)
	}
	formatter.VerboseLog("Compiled %s statement for %s", stmt.Shape.Kind, stmt.Shape.Root)

	ctx := cmd.Context()
	runner, closeRunner, err := dialRunner(ctx, cfg.Neo4j)
	if err != nil {
		return commandError(formatter, ErrCodeExecFailed, err.Error(), nil)
	}
	defer func() {
		if err := closeRunner(ctx); err != nil {
			opts.logger().Error("error closing driver", "error", err)
		}
	}()

	exec := executor.New(runner,
		executor.WithLogger(opts.logger()),
		executor.WithTimeout(cfg.Neo4j.Timeout),
	)
	resp, err := exec.Execute(ctx, stmt)
	switch {
	case errors.Is(err, executor.ErrForbidden):
		_ = formatter.Error(ErrCodeForbidden, translate.ForbiddenMessage, nil)
		return WrapExitError(ExitFailure, "statement rejected", err)
	case errors.Is(err, executor.ErrIntegrity):
		_ = formatter.Error(ErrCodeIntegrity, err.Error(), nil)
		return WrapExitError(ExitFailure, "statement rejected", err)
	case err != nil:
		return commandError(formatter, ErrCodeExecFailed, err.Error(), nil)
	}

	result := ExecResult{Data: resp.Data, Counters: resp.Counters}
	for _, ev := range resp.Events {
		result.Events = append(result.Events, ExecEvent{
			Type:         ev.Type,
			Operation:    string(ev.Operation),
			Relationship: ev.Relationship,
		})
	}
	return outputExecResult(formatter, result)
}

func outputExecResult(formatter *OutputFormatter, result ExecResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	data, err := json.MarshalIndent(result.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	fmt.Fprintln(w, string(data))

	keys := make([]string, 0, len(result.Counters))
	for k := range result.Counters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if result.Counters[k] != 0 {
			fmt.Fprintf(w, "%s: %d\n", k, result.Counters[k])
		}
	}
	for _, ev := range result.Events {
		if ev.Relationship != "" {
			fmt.Fprintf(w, "event: %s %s %s\n", ev.Operation, ev.Type, ev.Relationship)
			continue
		}
		fmt.Fprintf(w, "event: %s %s\n", ev.Operation, ev.Type)
	}
	return nil
}
