package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cypherc/internal/queryir"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/translate"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Query     string
	Operation string
	VarsFile  string
	Cypher    bool // also print the compiled statement
}

// Explanation is the planned form of one request.
type Explanation struct {
	Source   string   `json:"source"`
	Tree     string   `json:"tree"`
	Warnings []string `json:"warnings,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain [request-file]",
		Short: "Print the planned query tree of a request",
		Long: `Resolve a request against the model and print its query tree:
the matched entities, filters, authorization predicates and selections
the statement will be built from, followed by any structural warnings.

Examples:
  cypherc explain requests/posts.graphql --claims claims.yaml
  cypherc explain -q '{ movies(where: {title: "Up"}) { title } }' --cypher`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "inline request document")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation name to explain")
	cmd.Flags().StringVar(&opts.VarsFile, "vars", "", "request variables file (YAML or JSON)")
	cmd.Flags().BoolVar(&opts.Cypher, "cypher", false, "also print the compiled statement")

	return cmd
}

func runExplain(opts *ExplainOptions, args []string, cmd *cobra.Command) error {
	cfg := opts.config()
	formatter := opts.formatter(cmd)

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
	tr := translate.New(model, translate.WithLogger(opts.logger()))
	planned, warnings, err := tr.Plan(op, claims)
	if err != nil {
		return explainFailed(formatter, err)
	}

	result := Explanation{Source: in.Name, Tree: queryir.Print(planned), Warnings: warnings}
	if opts.Cypher {
		stmt, err := tr.Compile(op, claims)
		if err != nil {
			return explainFailed(formatter, err)
		}
		result.Text = stmt.Text
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprint(w, result.Tree)
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if result.Text != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, result.Text)
	}
	return nil
}

// explainFailed reports a rejected request with exit code 1.
func explainFailed(formatter *OutputFormatter, err error) error {
	ce := describeError(err)
	_ = formatter.Error(ce.Code, ce.Message, ce.Details)
	return WrapExitError(ExitFailure, "request rejected", err)
}
