package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cypherc/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// EntitySummary lists the root operations one entity exposes.
type EntitySummary struct {
	Name       string   `json:"name"`
	Labels     []string `json:"labels"`
	Operations []string `json:"operations"`
}

// ValidationResult holds the validation outcome.
type ValidationResult struct {
	Valid      bool                     `json:"valid"`
	Entities   []EntitySummary          `json:"entities"`
	Interfaces int                      `json:"interfaces"`
	Unions     int                      `json:"unions"`
	Errors     []schema.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [model-dir]",
		Short: "Validate the data model",
		Long: `Validate the CUE data model without compiling any request.

Reports every problem found: unknown relationship targets, bad rule
fields, duplicate type names and the like. The model directory defaults
to model.dir from the config.

Exit codes:
  0 - Model is valid
  1 - Model has validation errors
  2 - Command error (model not found, CUE does not load)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.config().Model.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(opts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	model, lerr := readModel(dir)
	if lerr != nil {
		return commandError(formatter, lerr.Code, lerr.Message, nil)
	}
	formatter.VerboseLog("Loaded %d source file(s) from %s", len(model.Sources), dir)

	result := ValidationResult{
		Entities:   summarizeEntities(model),
		Interfaces: len(model.Interfaces),
		Unions:     len(model.Unions),
		Errors:     schema.Validate(model),
	}
	result.Valid = len(result.Errors) == 0

	if formatter.Format == "json" {
		if !result.Valid {
			first := result.Errors[0]
			if err := formatter.Failure(first.Code, first.Message, result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("model has %d validation error(s)", len(result.Errors)))
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	if !result.Valid {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s %s: %s\n", e.Code, e.Field, e.Message)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("model has %d validation error(s)", len(result.Errors)))
	}

	fmt.Fprintf(w, "✓ Model valid: %d entity(ies), %d interface(s), %d union(s)\n\n",
		len(result.Entities), result.Interfaces, result.Unions)
	for _, e := range result.Entities {
		fmt.Fprintf(w, "  %s: %v\n", e.Name, e.Operations)
	}
	return nil
}

func summarizeEntities(model *schema.Model) []EntitySummary {
	out := make([]EntitySummary, 0, len(model.Entities))
	for _, e := range model.Entities {
		n := schema.NamesFor(e.Name)
		out = append(out, EntitySummary{
			Name:       e.Name,
			Labels:     e.NodeLabels(),
			Operations: []string{n.Plural, n.Connection, n.Aggregate, n.Create, n.Update, n.Delete},
		})
	}
	return out
}
