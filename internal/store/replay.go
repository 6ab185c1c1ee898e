package store

import (
	"context"
	"fmt"

	"github.com/roach88/cypherc/internal/canonical"
	"github.com/roach88/cypherc/internal/cypher"
)

// Recompiler compiles a journaled request again under the current model.
type Recompiler func(ctx context.Context, e Entry) (text string, params []cypher.NamedParam, err error)

// ReplayStatus is the outcome of replaying one entry.
type ReplayStatus int

const (
	ReplayMatch ReplayStatus = iota
	ReplayMismatch
	ReplayError
)

// String returns the status as a string.
func (s ReplayStatus) String() string {
	switch s {
	case ReplayMatch:
		return "match"
	case ReplayMismatch:
		return "mismatch"
	case ReplayError:
		return "error"
	default:
		return fmt.Sprintf("ReplayStatus(%d)", int(s))
	}
}

// ReplayResult is the outcome of recompiling one entry.
type ReplayResult struct {
	Entry       Entry
	Status      ReplayStatus
	Fingerprint string // fingerprint of the recompiled statement
	Text        string // recompiled text, set on mismatch
	Err         error
}

// ReplayReport summarizes a replay run.
type ReplayReport struct {
	Results    []ReplayResult
	Matched    int
	Mismatched int
	Failed     int
}

// Clean reports whether every entry recompiled to its recorded statement.
func (r ReplayReport) Clean() bool {
	return r.Mismatched == 0 && r.Failed == 0
}

// Replay recompiles every entry recorded for modelHash ("" for all) in
// journal order and compares fingerprints. Recompile failures are recorded
// per entry; only journal read errors abort the run.
func (s *Store) Replay(ctx context.Context, modelHash string, recompile Recompiler) (ReplayReport, error) {
	entries, err := s.Entries(ctx, modelHash)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay: %w", err)
	}

	var report ReplayReport
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := replayEntry(ctx, e, recompile)
		switch res.Status {
		case ReplayMatch:
			report.Matched++
		case ReplayMismatch:
			report.Mismatched++
		default:
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func replayEntry(ctx context.Context, e Entry, recompile Recompiler) ReplayResult {
	res := ReplayResult{Entry: e}
	text, params, err := recompile(ctx, e)
	if err != nil {
		res.Status = ReplayError
		res.Err = err
		return res
	}
	fp, err := canonical.StatementFingerprint(text, params)
	if err != nil {
		res.Status = ReplayError
		res.Err = err
		return res
	}
	res.Fingerprint = fp
	if fp != e.Fingerprint {
		res.Status = ReplayMismatch
		res.Text = text
		return res
	}
	res.Status = ReplayMatch
	return res
}
