package history_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/morphdetect/morphdetect-api/internal/history"
)

func setupStore(t *testing.T) (*history.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	store, err := history.NewStore(path, zap.NewNop())
	require.NoError(t, err)
	return store, path
}

func record(i int) history.Record {
	return history.Record{
		ID:               fmt.Sprintf("analysis-%d", i),
		Timestamp:        time.Now().UTC(),
		Filename:         fmt.Sprintf("img-%d.jpg", i),
		ClassName:        "GENUINE",
		Confidence:       12.5,
		RiskLevel:        "LOW",
		ProcessingTimeMS: 42,
		ThumbnailURL:     fmt.Sprintf("/uploads/img-%d.jpg", i),
	}
}

func TestListOnMissingArtifact(t *testing.T) {
	store, _ := setupStore(t)
	assert.Empty(t, store.List())
}

func TestRecordPrependsNewestFirst(t *testing.T) {
	store, _ := setupStore(t)

	require.NoError(t, store.Record(record(1)))
	require.NoError(t, store.Record(record(2)))
	require.NoError(t, store.Record(record(3)))

	entries := store.List()
	require.Len(t, entries, 3)
	assert.Equal(t, "analysis-3", entries[0].ID)
	assert.Equal(t, "analysis-2", entries[1].ID)
	assert.Equal(t, "analysis-1", entries[2].ID)
}

func TestLogIsCappedAtOneHundred(t *testing.T) {
	store, _ := setupStore(t)

	for i := 1; i <= 150; i++ {
		require.NoError(t, store.Record(record(i)))
	}

	entries := store.List()
	require.Len(t, entries, history.MaxEntries)
	// The 100 most recent, newest first: 150 down to 51.
	assert.Equal(t, "analysis-150", entries[0].ID)
	assert.Equal(t, "analysis-51", entries[99].ID)
}

func TestCorruptArtifactReadsAsEmpty(t *testing.T) {
	store, path := setupStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json at all"), 0644))

	assert.Empty(t, store.List())
}

func TestRecordRecoversFromCorruptArtifact(t *testing.T) {
	store, path := setupStore(t)
	require.NoError(t, os.WriteFile(path, []byte("corrupt"), 0644))

	require.NoError(t, store.Record(record(7)))

	entries := store.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "analysis-7", entries[0].ID)

	// The rewritten artifact must be valid JSON again.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed []history.Record
	require.NoError(t, json.Unmarshal(data, &parsed))
}

func TestRegionsPersistAsEmptyArray(t *testing.T) {
	store, path := setupStore(t)
	require.NoError(t, store.Record(record(1)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"regions": []`)
}

func TestSurvivesRestart(t *testing.T) {
	store, path := setupStore(t)
	require.NoError(t, store.Record(record(1)))

	reopened, err := history.NewStore(path, zap.NewNop())
	require.NoError(t, err)

	entries := reopened.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "analysis-1", entries[0].ID)
}
