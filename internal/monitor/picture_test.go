package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// imageServer serves whatever bytes the pointer currently holds.
func imageServer(t *testing.T, body *atomic.Value) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "image/jpeg")
		w.Write(body.Load().([]byte))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestTracker(stamp time.Time) *PictureTracker {
	tracker := NewPictureTracker()
	tracker.now = func() time.Time { return stamp }
	return tracker
}

func TestPictureInitialDownload(t *testing.T) {
	var body atomic.Value
	body.Store([]byte("image-one"))
	server := imageServer(t, &body)

	dir := t.TempDir()
	stamp := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	tracker := newTestTracker(stamp)

	check, err := tracker.Check(context.Background(), "wildlife", server.URL, dir)
	require.NoError(t, err)
	require.True(t, check.Changed)
	require.Equal(t, PictureInitial, check.Kind)
	require.Equal(t, "Initial profile picture saved for wildlife", check.Message)

	picDir := filepath.Join(dir, PictureDir)
	current, err := os.ReadFile(filepath.Join(picDir, "wildlife_current.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("image-one"), current)

	archive, err := os.ReadFile(filepath.Join(picDir, "wildlife_20260830_120000.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("image-one"), archive)
}

func TestPictureUnchangedBytes(t *testing.T) {
	var body atomic.Value
	body.Store([]byte("image-one"))
	server := imageServer(t, &body)

	dir := t.TempDir()
	tracker := newTestTracker(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	_, err := tracker.Check(context.Background(), "wildlife", server.URL, dir)
	require.NoError(t, err)

	tracker.now = func() time.Time {
		return time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC)
	}
	check, err := tracker.Check(context.Background(), "wildlife", server.URL, dir)
	require.NoError(t, err)
	require.False(t, check.Changed)
	require.Equal(t, PictureNone, check.Kind)

	// the temp candidate is cleaned up, no second archive slot appears
	picDir := filepath.Join(dir, PictureDir)
	_, err = os.Stat(filepath.Join(picDir, "wildlife_new.jpg"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(picDir, "wildlife_20260830_130000.jpg"))
	require.True(t, os.IsNotExist(err))
}

func TestPictureChangedBytes(t *testing.T) {
	var body atomic.Value
	body.Store([]byte("image-one"))
	server := imageServer(t, &body)

	dir := t.TempDir()
	tracker := newTestTracker(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	_, err := tracker.Check(context.Background(), "wildlife", server.URL, dir)
	require.NoError(t, err)

	body.Store([]byte("image-two"))
	tracker.now = func() time.Time {
		return time.Date(2026, 8, 30, 14, 30, 5, 0, time.UTC)
	}
	check, err := tracker.Check(context.Background(), "wildlife", server.URL, dir)
	require.NoError(t, err)
	require.True(t, check.Changed)
	require.Equal(t, PictureUpdate, check.Kind)
	require.Equal(t, "Profile picture changed for wildlife", check.Message)

	picDir := filepath.Join(dir, PictureDir)

	current, err := os.ReadFile(filepath.Join(picDir, "wildlife_current.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("image-two"), current)

	// the replaced image survives under its timestamped slot
	old, err := os.ReadFile(filepath.Join(picDir, "wildlife_old_20260830_143005.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("image-one"), old)

	adopted, err := os.ReadFile(filepath.Join(picDir, "wildlife_20260830_143005.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("image-two"), adopted)
}

func TestPictureDownloadFailureLeavesArchive(t *testing.T) {
	var body atomic.Value
	body.Store([]byte("image-one"))
	server := imageServer(t, &body)

	dir := t.TempDir()
	tracker := newTestTracker(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	_, err := tracker.Check(context.Background(), "wildlife", server.URL, dir)
	require.NoError(t, err)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(failing.Close)

	_, err = tracker.Check(context.Background(), "wildlife", failing.URL, dir)
	require.Error(t, err)

	current, err := os.ReadFile(filepath.Join(dir, PictureDir, "wildlife_current.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("image-one"), current)
}

func TestPictureEmptyUrl(t *testing.T) {
	tracker := newTestTracker(time.Now())
	check, err := tracker.Check(context.Background(), "wildlife", "", t.TempDir())
	require.NoError(t, err)
	require.False(t, check.Changed)
	require.Equal(t, PictureNone, check.Kind)
}
