package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cypherc/internal/cypher"
)

func TestReplay(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, src := range []string{"{ same }", "{ drift }", "{ broken }"} {
		_, _, err := s.Record(ctx, createTestEntry(t, src, nil, int64(1)))
		require.NoError(t, err)
	}

	recompile := func(_ context.Context, e Entry) (string, []cypher.NamedParam, error) {
		switch e.Source {
		case "{ drift }":
			return "RETURN $param0", []cypher.NamedParam{{Name: "param0", Value: 1.0}}, nil
		case "{ broken }":
			return "", nil, errors.New("unknown root field")
		default:
			return "RETURN $param0", []cypher.NamedParam{{Name: "param0", Value: int64(1)}}, nil
		}
	}

	report, err := s.Replay(ctx, "", recompile)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Mismatched)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, report.Results, 3)
	assert.Equal(t, ReplayMatch, report.Results[0].Status)
	assert.Equal(t, ReplayMismatch, report.Results[1].Status)
	assert.Equal(t, "RETURN $param0", report.Results[1].Text)
	assert.Equal(t, ReplayError, report.Results[2].Status)
	assert.EqualError(t, report.Results[2].Err, "unknown root field")
}

func TestReplayEmptyJournalIsClean(t *testing.T) {
	s := createTestStore(t)

	report, err := s.Replay(context.Background(), "", func(context.Context, Entry) (string, []cypher.NamedParam, error) {
		t.Fatal("no entries to recompile")
		return "", nil, nil
	})
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Empty(t, report.Results)
}

func TestReplayStatusString(t *testing.T) {
	assert.Equal(t, "match", ReplayMatch.String())
	assert.Equal(t, "mismatch", ReplayMismatch.String())
	assert.Equal(t, "error", ReplayError.String())
	assert.Equal(t, "ReplayStatus(9)", ReplayStatus(9).String())
}
