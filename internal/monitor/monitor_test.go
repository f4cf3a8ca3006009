package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errStub = fmt.Errorf("strategy unavailable")

func newTestMonitor(dir string, strategies ...Strategy) *Monitor {
	cfg := Config{OutputDir: dir, HistoryLimit: 10}.withDefaults()
	return &Monitor{
		cfg:    cfg,
		engine: newTestEngine(strategies...),
		store:  NewStore(cfg.OutputDir, cfg.HistoryLimit),
	}
}

func TestRunInvalidHandle(t *testing.T) {
	m := newTestMonitor(t.TempDir())
	_, err := m.Run(context.Background(), "@  ")
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestRunFirstThenChangedObservation(t *testing.T) {
	dir := t.TempDir()
	strategy := &stubStrategy{name: MethodAnonymous, snapshot: Snapshot{
		FullName:  "Wild Life",
		Biography: "daily animals",
		Followers: 1000,
		Following: 320,
		Posts:     87,
	}}
	m := newTestMonitor(dir, strategy)

	result, err := m.Run(context.Background(), "@WildLife")
	require.NoError(t, err)
	require.Equal(t, "wildlife", result.Snapshot.Username)
	require.Equal(t, MethodAnonymous, result.Snapshot.Method)
	require.Equal(t, []string{"First time monitoring this user"}, result.Changes.Entries)

	// second run against the persisted summary picks up the deltas
	strategy.snapshot.Followers = 1050
	m.engine.now = func() time.Time {
		return time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC)
	}

	result, err = m.Run(context.Background(), "wildlife")
	require.NoError(t, err)
	require.True(t, result.Changes.HasChanges)
	require.Equal(t, []string{"Followers: 1,000 → 1,050 (+50)"}, result.Changes.Entries)

	history, err := m.store.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history.Entries, 2)
	require.Equal(t, int64(1000), history.Entries[0].Followers)
	require.Equal(t, int64(1050), history.Entries[1].Followers)
}

func TestRunArchivesHdPictureVariant(t *testing.T) {
	var body atomic.Value
	body.Store([]byte("hd-image"))
	server := imageServer(t, &body)

	dir := t.TempDir()
	strategy := &stubStrategy{name: MethodAnonymous, snapshot: Snapshot{
		Followers: 1000,
		// the standard variant is unreachable on purpose: the tracker
		// must be handed the hd one
		ProfilePicUrl:   "http://127.0.0.1:1/p.jpg",
		ProfilePicUrlHd: server.URL,
	}}
	m := newTestMonitor(dir, strategy)
	m.pictures = newTestTracker(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	result, err := m.Run(context.Background(), "wildlife")
	require.NoError(t, err)
	require.True(t, result.Picture.Changed)
	require.Equal(t, PictureInitial, result.Picture.Kind)

	current, err := os.ReadFile(filepath.Join(dir, PictureDir, "wildlife_current.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("hd-image"), current)
}

func TestRunDegradesWithoutError(t *testing.T) {
	dir := t.TempDir()
	m := newTestMonitor(dir,
		&stubStrategy{name: MethodAuthenticated, err: errStub},
		&stubStrategy{name: MethodEmbed, err: errStub},
	)

	result, err := m.Run(context.Background(), "wildlife")
	require.NoError(t, err)
	require.True(t, result.Snapshot.Degraded())

	// the degraded snapshot is persisted like any other observation
	summary, err := m.store.LoadSummary()
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Equal(t, MethodFallback, summary.Method)
	require.Equal(t, "unable to access profile data", summary.Error)

	history, err := m.store.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history.Entries, 1)
	require.Equal(t, MethodFallback, history.Entries[0].Method)
}
