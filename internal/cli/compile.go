package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cypherc/internal/canonical"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/store"
	"github.com/roach88/cypherc/internal/translate"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Query     string // inline request document
	Operation string // operation name in multi-operation documents
	VarsFile  string // request variables (YAML or JSON)
}

// CompiledRequest is the outcome of compiling one request document.
type CompiledRequest struct {
	Source      string         `json:"source"`
	Text        string         `json:"text,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	Shape       string         `json:"shape,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	Error       *CLIError      `json:"error,omitempty"`

	stmt *translate.Statement
	doc  string
}

// CompilationResult holds every compiled request of a batch.
type CompilationResult struct {
	Requests  []CompiledRequest `json:"requests"`
	Compiled  int               `json:"compiled"`
	Failed    int               `json:"failed"`
	Journaled int               `json:"journaled"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [request-file|pattern]...",
		Short: "Compile requests to Cypher statements",
		Long: `Compile GraphQL-style request documents against the model into
parameterized Cypher statements.

Arguments are request files or doublestar patterns ("requests/**/*.graphql").
Files compile concurrently, bounded by compile.parallelism. With a journal
configured, each compiled statement is recorded for later replay.

Examples:
  cypherc compile requests/movies.graphql
  cypherc compile 'requests/**/*.graphql' --claims claims.yaml
  cypherc compile -q '{ movies { title } }' --format json`,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "inline request document")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation name to compile")
	cmd.Flags().StringVar(&opts.VarsFile, "vars", "", "request variables file (YAML or JSON)")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	cfg := opts.config()
	formatter := opts.formatter(cmd)

	if opts.Query == "" && len(args) == 0 {
		return commandError(formatter, ErrCodeNoFiles, "no requests: pass request files or --query", nil)
	}

	model, modelHash, lerr := loadModel(cfg.Model.Dir)
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
	inputs, lerr := collectRequests(args, opts.Query)
	if lerr != nil {
		return commandError(formatter, lerr.Code, lerr.Message, nil)
	}

	formatter.VerboseLog("Compiling %d request(s) against %s", len(inputs), cfg.Model.Dir)

	tr := translate.New(model, translate.WithLogger(opts.logger()))
	requests, err := compileBatch(cmd.Context(), tr, inputs, opts.Operation, vars, claims, cfg.Compile.Parallelism)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	result := CompilationResult{Requests: requests}
	for _, r := range requests {
		if r.Error != nil {
			result.Failed++
		} else {
			result.Compiled++
		}
	}

	if cfg.Journal.Path != "" {
		n, err := journalBatch(cmd.Context(), cfg.Journal.Path, store.Input{
			Operation: opts.Operation,
			Variables: vars,
			Claims:    claims,
			ModelHash: modelHash,
		}, requests)
		if err != nil {
			return commandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("journal %s: %v", cfg.Journal.Path, err), nil)
		}
		result.Journaled = n
		formatter.VerboseLog("Journaled %d new statement(s) to %s", n, cfg.Journal.Path)
	}

	return outputCompileResult(formatter, result, cfg.Journal.Path)
}

// compileBatch compiles inputs concurrently, at most limit at a time. The
// result order follows inputs. Per-request failures are reported in the
// results; the error return is reserved for cancellation.
func compileBatch(ctx context.Context, tr *translate.Translator, inputs []requestInput, operation string, vars map[string]any, claims request.Claims, limit int) ([]CompiledRequest, error) {
	results := make([]CompiledRequest, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = compileOne(tr, in, operation, vars, claims)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func compileOne(tr *translate.Translator, in requestInput, operation string, vars map[string]any, claims request.Claims) CompiledRequest {
	out := CompiledRequest{Source: in.Name, doc: in.Source}
	op, err := request.ParseOperation(in.Source, operation, vars)
	if err != nil {
		out.Error = describeError(err)
		return out
	}
	stmt, err := tr.Compile(op, claims)
	if err != nil {
		out.Error = describeError(err)
		return out
	}
	fp, err := canonical.StatementFingerprint(stmt.Text, stmt.Params)
	if err != nil {
		out.Error = describeError(err)
		return out
	}
	out.Text = stmt.Text
	out.Params = stmt.ParamMap()
	out.Shape = stmt.Shape.Kind.String()
	out.Fingerprint = fp
	out.Warnings = stmt.Warnings
	out.stmt = stmt
	return out
}

// journalBatch records every successfully compiled request and returns how
// many were new.
func journalBatch(ctx context.Context, path string, base store.Input, requests []CompiledRequest) (int, error) {
	st, err := store.Open(path)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	added := 0
	for _, r := range requests {
		if r.stmt == nil {
			continue
		}
		in := base
		in.Source = r.doc
		entry, err := store.NewEntry(in, r.stmt.Text, r.stmt.Params)
		if err != nil {
			return added, err
		}
		_, inserted, err := st.Record(ctx, entry)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	return added, nil
}

// outputCompileResult outputs the batch result. Rejected requests make the
// command fail with exit code 1.
func outputCompileResult(formatter *OutputFormatter, result CompilationResult, journal string) error {
	failedMsg := fmt.Sprintf("%d of %d request(s) failed to compile", result.Failed, len(result.Requests))

	if formatter.Format == "json" {
		if result.Failed > 0 {
			if err := formatter.Failure(result.Requests[firstFailed(result.Requests)].Error.Code, failedMsg, result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, failedMsg)
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, r := range result.Requests {
		if r.Error != nil {
			fmt.Fprintf(w, "✗ %s\n", r.Source)
			fmt.Fprintf(w, "  %s: %s\n\n", r.Error.Code, r.Error.Message)
			continue
		}
		fmt.Fprintf(w, "✓ %s (%s)\n", r.Source, r.Shape)
		fmt.Fprintln(w, r.Text)
		params, err := canonical.Params(r.stmt.Params)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "params: %s\n", params)
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warning)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Compiled %d request(s), %d failed\n", result.Compiled, result.Failed)
	if journal != "" {
		fmt.Fprintf(w, "Journaled %d new statement(s) to %s\n", result.Journaled, journal)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, failedMsg)
	}
	return nil
}

func firstFailed(requests []CompiledRequest) int {
	for i, r := range requests {
		if r.Error != nil {
			return i
		}
	}
	return 0
}
