package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/consilium/internal/core"
)

func testIndex(t *testing.T) *DebateIndex {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestRecordAndGet(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Record(ctx, Entry{
		TaskID:              "debate_a",
		Task:                "pick a cache",
		Status:              "FULL_CONSENSUS",
		ConsensusPercentage: 1.0,
		TotalRounds:         1,
	}))

	entry, err := idx.Get(ctx, "debate_a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "pick a cache", entry.Task)
	assert.Equal(t, "FULL_CONSENSUS", entry.Status)
	assert.Equal(t, 1.0, entry.ConsensusPercentage)
}

func TestGet_Missing(t *testing.T) {
	entry, err := testIndex(t).Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRecord_Upsert(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Record(ctx, Entry{TaskID: "debate_a", Task: "t", Status: "RUNNING"}))
	require.NoError(t, idx.Record(ctx, Entry{
		TaskID: "debate_a", Task: "t", Status: "NO_CONSENSUS", TotalRounds: 5,
	}))

	entry, err := idx.Get(ctx, "debate_a")
	require.NoError(t, err)
	assert.Equal(t, "NO_CONSENSUS", entry.Status)
	assert.Equal(t, 5, entry.TotalRounds)

	entries, err := idx.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecordDossier(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	dossier := &core.FinalDossier{
		TaskID:              "debate_b",
		Status:              core.StatusPartialConsensus,
		ConsensusPercentage: 2.0 / 3.0,
		TotalRounds:         2,
	}
	require.NoError(t, idx.RecordDossier(ctx, "the task", dossier))

	entry, err := idx.Get(ctx, "debate_b")
	require.NoError(t, err)
	assert.Equal(t, "PARTIAL_CONSENSUS", entry.Status)
	assert.Equal(t, 2, entry.TotalRounds)
}

func TestListAndDelete(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	for _, id := range []string{"debate_a", "debate_b", "debate_c"} {
		require.NoError(t, idx.Record(ctx, Entry{TaskID: id, Task: "t", Status: "RUNNING"}))
	}

	entries, err := idx.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, idx.Delete(ctx, "debate_a"))
	entries, err = idx.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEqual(t, "debate_a", e.TaskID)
	}
}
