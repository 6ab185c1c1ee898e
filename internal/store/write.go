package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/cypherc/internal/canonical"
	"github.com/roach88/cypherc/internal/cypher"
)

// Entry is one journaled compilation.
type Entry struct {
	ID          string
	Seq         int64
	RequestHash string
	ModelHash   string
	Source      string
	Operation   string
	Variables   map[string]any
	Claims      map[string]any // nil for unauthenticated requests
	Text        string
	Params      string // canonical JSON object keyed by parameter name
	Fingerprint string
}

// Record appends an entry, assigning its ID (UUIDv7) and the next seq.
// An entry whose request and model hashes are already journaled is not
// written again; the existing entry is returned with inserted false.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, bool, error) {
	vars, err := marshalObject(e.Variables, false)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record: variables: %w", err)
	}
	claims, err := marshalObject(e.Claims, true)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record: claims: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanEntry(tx.QueryRowContext(ctx, selectEntry+`
		WHERE request_hash = ? AND model_hash = ?
	`, e.RequestHash, e.ModelHash))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, fmt.Errorf("record: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM compilations`).Scan(&e.Seq); err != nil {
		return Entry{}, false, fmt.Errorf("record: next seq: %w", err)
	}
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO compilations
		(id, seq, request_hash, model_hash, source, operation, variables, claims, text, params, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Seq,
		e.RequestHash,
		e.ModelHash,
		e.Source,
		e.Operation,
		vars,
		claims,
		e.Text,
		e.Params,
		e.Fingerprint,
	)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, false, fmt.Errorf("record: commit: %w", err)
	}
	return e, true, nil
}

// Input identifies what was compiled.
type Input struct {
	Source    string
	Operation string
	Variables map[string]any
	Claims    map[string]any
	ModelHash string
}

// NewEntry builds an unrecorded entry for a compiled statement, computing
// its hashes and canonical parameters.
func NewEntry(in Input, text string, params []cypher.NamedParam) (Entry, error) {
	reqHash, err := canonical.RequestFingerprint(in.Source, in.Operation, in.Variables, in.Claims)
	if err != nil {
		return Entry{}, fmt.Errorf("new entry: %w", err)
	}
	p, err := canonical.Params(params)
	if err != nil {
		return Entry{}, fmt.Errorf("new entry: %w", err)
	}
	fp, err := canonical.StatementFingerprint(text, params)
	if err != nil {
		return Entry{}, fmt.Errorf("new entry: %w", err)
	}
	return Entry{
		RequestHash: reqHash,
		ModelHash:   in.ModelHash,
		Source:      in.Source,
		Operation:   in.Operation,
		Variables:   in.Variables,
		Claims:      in.Claims,
		Text:        text,
		Params:      string(p),
		Fingerprint: fp,
	}, nil
}
