package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cypherc/internal/cypher"
	"github.com/roach88/cypherc/internal/request"
	"github.com/roach88/cypherc/internal/store"
	"github.com/roach88/cypherc/internal/translate"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	All bool // replay entries recorded under any model
}

// ReplayEntry is the replay outcome of one journal entry.
type ReplayEntry struct {
	ID        string `json:"id"`
	Seq       int64  `json:"seq"`
	Operation string `json:"operation,omitempty"`
	Status    string `json:"status"`
	Recorded  string `json:"recorded_fingerprint"`
	Replayed  string `json:"replayed_fingerprint,omitempty"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ReplayOutput holds the replay outcome.
type ReplayOutput struct {
	ModelHash  string        `json:"model_hash"`
	Journal    int64         `json:"journal_entries"`
	Entries    []ReplayEntry `json:"entries"`
	Matched    int           `json:"matched"`
	Mismatched int           `json:"mismatched"`
	Failed     int           `json:"failed"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompile journaled requests and verify determinism",
		Long: `Recompile every request recorded in the compile journal and compare
the result with the recorded statement. Text and canonical parameters
must match byte for byte.

By default only entries recorded under the current model are replayed;
--all replays every entry, which reports drift after a model change.

Exit codes:
  0 - Every entry recompiled to its recorded statement
  1 - One or more entries drifted or no longer compile
  2 - Command error (journal not found, model does not load)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "replay entries recorded under any model")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	cfg := opts.config()
	formatter := opts.formatter(cmd)

	path := cfg.Journal.Path
	if path == "" {
		return commandError(formatter, ErrCodeConfig, "no journal configured: pass --journal or set journal.path", nil)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return commandError(formatter, ErrCodeNotFound, fmt.Sprintf("journal not found: %s", path), nil)
	}

	model, modelHash, lerr := loadModel(cfg.Model.Dir)
	if lerr != nil {
		return commandError(formatter, lerr.Code, lerr.Message, lerr.Details)
	}

	st, err := store.Open(path)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("opening journal: %v", err), nil)
	}
	defer st.Close()

	total, err := st.Count(cmd.Context())
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	filter := modelHash
	if opts.All {
		filter = ""
	}
	formatter.VerboseLog("Replaying journal %s (%d entries, model %s)", path, total, shortHash(modelHash))

	tr := translate.New(model, translate.WithLogger(opts.logger()))
	report, err := st.Replay(cmd.Context(), filter, recompiler(tr))
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	out := ReplayOutput{
		ModelHash:  modelHash,
		Journal:    total,
		Entries:    make([]ReplayEntry, 0, len(report.Results)),
		Matched:    report.Matched,
		Mismatched: report.Mismatched,
		Failed:     report.Failed,
	}
	for _, r := range report.Results {
		e := ReplayEntry{
			ID:        r.Entry.ID,
			Seq:       r.Entry.Seq,
			Operation: r.Entry.Operation,
			Status:    r.Status.String(),
			Recorded:  r.Entry.Fingerprint,
			Replayed:  r.Fingerprint,
			Text:      r.Text,
		}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		out.Entries = append(out.Entries, e)
	}

	return outputReplayResult(formatter, out, report.Clean())
}

// recompiler compiles journal entries again with tr.
func recompiler(tr *translate.Translator) store.Recompiler {
	return func(_ context.Context, e store.Entry) (string, []cypher.NamedParam, error) {
		op, err := request.ParseOperation(e.Source, e.Operation, e.Variables)
		if err != nil {
			return "", nil, err
		}
		stmt, err := tr.Compile(op, request.Claims(e.Claims))
		if err != nil {
			return "", nil, err
		}
		return stmt.Text, stmt.Params, nil
	}
}

func outputReplayResult(formatter *OutputFormatter, out ReplayOutput, clean bool) error {
	failedMsg := fmt.Sprintf("replay found %d mismatch(es) and %d failure(s)", out.Mismatched, out.Failed)

	if formatter.Format == "json" {
		if !clean {
			if err := formatter.Failure("E_REPLAY_DRIFT", failedMsg, out); err != nil {
				return err
			}
			return NewExitError(ExitFailure, failedMsg)
		}
		return formatter.Success(out)
	}

	w := formatter.Writer
	if len(out.Entries) == 0 {
		fmt.Fprintf(w, "No journal entries for model %s (%d total).\n", shortHash(out.ModelHash), out.Journal)
		return nil
	}
	for _, e := range out.Entries {
		switch e.Status {
		case store.ReplayMatch.String():
			fmt.Fprintf(w, "✓ %d %s\n", e.Seq, e.ID)
		case store.ReplayMismatch.String():
			fmt.Fprintf(w, "✗ %d %s: statement changed\n", e.Seq, e.ID)
			fmt.Fprintf(w, "  recorded %s\n  replayed %s\n", shortHash(e.Recorded), shortHash(e.Replayed))
		default:
			fmt.Fprintf(w, "✗ %d %s: %s\n", e.Seq, e.ID, e.Error)
		}
	}
	fmt.Fprintf(w, "\nReplayed %d statement(s): %d matched, %d mismatched, %d failed\n",
		len(out.Entries), out.Matched, out.Mismatched, out.Failed)

	if !clean {
		return NewExitError(ExitFailure, failedMsg)
	}
	fmt.Fprintln(w, "✓ Compilation is deterministic")
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
