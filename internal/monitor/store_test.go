package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, 10)

	snapshot := baseSnapshot()
	changes := Detect(nil, snapshot)

	require.NoError(t, store.Persist(context.Background(), snapshot, changes))

	loaded, err := store.LoadSummary()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, snapshot.Username, loaded.Username)
	require.Equal(t, snapshot.Followers, loaded.Followers)
	require.Equal(t, changes.Entries, loaded.Changes.Entries)

	stats, err := store.LoadQuickStats()
	require.NoError(t, err)
	require.Equal(t, snapshot.Username, stats.Username)
	require.Equal(t, snapshot.Followers, stats.Followers)
	require.Equal(t, snapshot.Method, stats.Method)
}

func TestStoreLoadSummaryMissing(t *testing.T) {
	store := NewStore(t.TempDir(), 10)
	summary, err := store.LoadSummary()
	require.NoError(t, err)
	require.Nil(t, summary)
}

func TestStoreLoadSummaryMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SummaryFile), []byte("{truncated"), 0644))

	store := NewStore(dir, 10)
	summary, err := store.LoadSummary()
	require.NoError(t, err)
	require.Nil(t, summary)
}

func TestStoreHistoryRetention(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, 3)

	base := baseSnapshot()
	for i := 0; i < 4; i++ {
		snapshot := base
		snapshot.Followers = int64(1000 + i)
		snapshot.ObservedAt = base.ObservedAt.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Persist(context.Background(), snapshot, ChangeSet{}))
	}

	history, err := store.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history.Entries, 3)

	// the oldest entry was evicted, the newest three survive in order
	require.Equal(t, int64(1001), history.Entries[0].Followers)
	require.Equal(t, int64(1002), history.Entries[1].Followers)
	require.Equal(t, int64(1003), history.Entries[2].Followers)
	require.Equal(t, base.ObservedAt.Add(3*time.Hour), history.LastUpdated)

	// persisting again at the cap keeps the length stable
	snapshot := base
	snapshot.Followers = 1004
	require.NoError(t, store.Persist(context.Background(), snapshot, ChangeSet{}))
	history, err = store.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history.Entries, 3)
	require.Equal(t, int64(1004), history.Entries[2].Followers)
}

func TestStoreChangesLogOnlyOnChanges(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, 10)

	require.NoError(t, store.Persist(context.Background(), baseSnapshot(), ChangeSet{}))
	_, err := os.Stat(filepath.Join(dir, ChangesLogFile))
	require.True(t, os.IsNotExist(err))

	changes := ChangeSet{}
	changes.add("Bio changed")
	require.NoError(t, store.Persist(context.Background(), baseSnapshot(), changes))

	_, err = os.Stat(filepath.Join(dir, ChangesLogFile))
	require.NoError(t, err)
}

func TestStoreNoLeftoverTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, 10)
	require.NoError(t, store.Persist(context.Background(), baseSnapshot(), ChangeSet{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		require.NotContains(t, entry.Name(), ".tmp")
	}
}
