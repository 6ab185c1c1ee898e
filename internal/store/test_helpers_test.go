package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/cypherc/internal/cypher"
)

// createTestStore creates a new journal in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry builds an entry for a one-parameter statement.
func createTestEntry(t *testing.T, source string, claims map[string]any, value any) Entry {
	t.Helper()
	e, err := NewEntry(Input{
		Source:    source,
		Claims:    claims,
		ModelHash: "model-1",
	}, "RETURN $param0", []cypher.NamedParam{{Name: "param0", Value: value}})
	if err != nil {
		t.Fatalf("NewEntry() failed: %v", err)
	}
	return e
}
