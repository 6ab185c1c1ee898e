package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	_, _, err = s1.Record(ctx, createTestEntry(t, "{ a }", nil, int64(1)))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecordAssignsIDAndSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, inserted, err := s.Record(ctx, createTestEntry(t, "{ a }", nil, int64(1)))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Len(t, first.ID, 36)
	assert.Equal(t, int64(1), first.Seq)

	second, inserted, err := s.Record(ctx, createTestEntry(t, "{ b }", nil, int64(1)))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(2), second.Seq)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRecordIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, _, err := s.Record(ctx, createTestEntry(t, "{ a }", nil, int64(1)))
	require.NoError(t, err)

	again, inserted, err := s.Record(ctx, createTestEntry(t, "{ a }", nil, int64(1)))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, again.ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecordDistinguishesClaims(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, inserted, err := s.Record(ctx, createTestEntry(t, "{ a }", nil, int64(1)))
	require.NoError(t, err)
	assert.True(t, inserted)
	_, inserted, err = s.Record(ctx, createTestEntry(t, "{ a }", map[string]any{"sub": "u1"}, int64(1)))
	require.NoError(t, err)
	assert.True(t, inserted, "authenticated request is a different input")
}

func TestEntryRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	in := createTestEntry(t, "query Q($n: Int) { movies(limit: $n) { title } }", map[string]any{
		"sub":   "u1",
		"roles": []any{"admin"},
		"level": int64(3),
		"score": 0.5,
	}, 2.0)
	in.Operation = "Q"
	in.Variables = map[string]any{"n": int64(10)}

	recorded, _, err := s.Record(ctx, in)
	require.NoError(t, err)

	got, err := s.Entry(ctx, recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, recorded, got)
	assert.IsType(t, int64(0), got.Claims["level"])
	assert.IsType(t, float64(0), got.Claims["score"])
	assert.Equal(t, `{"param0":2.0}`, got.Params)
}

func TestEntryUnauthenticatedClaimsStayNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	recorded, _, err := s.Record(ctx, createTestEntry(t, "{ a }", nil, int64(1)))
	require.NoError(t, err)

	got, err := s.Entry(ctx, recorded.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Claims)
	assert.Equal(t, map[string]any{}, got.Variables)
}

func TestEntryNotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Entry(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEntriesOrderAndFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.Entries(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, src := range []string{"{ c }", "{ a }", "{ b }"} {
		_, _, err := s.Record(ctx, createTestEntry(t, src, nil, int64(1)))
		require.NoError(t, err)
	}
	other := createTestEntry(t, "{ a }", nil, int64(1))
	other.ModelHash = "model-2"
	_, _, err = s.Record(ctx, other)
	require.NoError(t, err)

	all, err := s.Entries(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	var sources []string
	for _, e := range all {
		sources = append(sources, e.Source)
	}
	assert.Equal(t, []string{"{ c }", "{ a }", "{ b }", "{ a }"}, sources)

	m1, err := s.Entries(ctx, "model-1")
	require.NoError(t, err)
	assert.Len(t, m1, 3)
}
