package store

import (
	"context"
	"fmt"
)

const selectEntry = `
	SELECT id, seq, request_hash, model_hash, source, operation, variables, claims, text, params, fingerprint
	FROM compilations`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntry returns sql.ErrNoRows unwrapped so callers can test for it.
func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var vars, claims string
	if err := row.Scan(
		&e.ID, &e.Seq, &e.RequestHash, &e.ModelHash, &e.Source, &e.Operation,
		&vars, &claims, &e.Text, &e.Params, &e.Fingerprint,
	); err != nil {
		return Entry{}, err
	}

	var err error
	if e.Variables, err = unmarshalObject(vars); err != nil {
		return Entry{}, fmt.Errorf("entry %s: variables: %w", e.ID, err)
	}
	if e.Claims, err = unmarshalObject(claims); err != nil {
		return Entry{}, fmt.Errorf("entry %s: claims: %w", e.ID, err)
	}
	return e, nil
}

// Entries returns entries in journal order (seq ASC, id ASC). A non-empty
// modelHash restricts the result to one model.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) Entries(ctx context.Context, modelHash string) ([]Entry, error) {
	query := selectEntry + ` ORDER BY seq ASC, id COLLATE BINARY ASC`
	var args []any
	if modelHash != "" {
		query = selectEntry + ` WHERE model_hash = ? ORDER BY seq ASC, id COLLATE BINARY ASC`
		args = append(args, modelHash)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Entry retrieves a single entry by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) Entry(ctx context.Context, id string) (Entry, error) {
	return scanEntry(s.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id))
}
