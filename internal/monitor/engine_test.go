package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gramwatch-backend/internal/scrapers/instagram"

	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	name     string
	snapshot Snapshot
	err      error
	calls    int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Fetch(ctx context.Context, handle string) (Snapshot, error) {
	s.calls++
	if s.err != nil {
		return Snapshot{}, s.err
	}
	return s.snapshot, nil
}

func newTestEngine(strategies ...Strategy) *Engine {
	engine := NewEngine(strategies)
	engine.now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}
	return engine
}

func TestEngineFirstSuccessWins(t *testing.T) {
	first := &stubStrategy{name: MethodAuthenticated, snapshot: Snapshot{Followers: 500}}
	second := &stubStrategy{name: MethodAnonymous, snapshot: Snapshot{Followers: 9999}}

	engine := newTestEngine(first, second)
	snapshot := engine.Acquire(context.Background(), "wildlife")

	require.Equal(t, int64(500), snapshot.Followers)
	require.Equal(t, MethodAuthenticated, snapshot.Method)
	require.Equal(t, 1, first.calls)
	require.Zero(t, second.calls, "later strategies must not run after a success")
}

func TestEngineCascadesPastFailures(t *testing.T) {
	failing := &stubStrategy{name: MethodAuthenticated, err: fmt.Errorf("login wall")}
	alsoFailing := &stubStrategy{name: MethodAnonymous, err: fmt.Errorf("429")}
	working := &stubStrategy{name: MethodMobile, snapshot: Snapshot{Followers: 42}}

	engine := newTestEngine(failing, alsoFailing, working)
	snapshot := engine.Acquire(context.Background(), "wildlife")

	require.Equal(t, 1, failing.calls)
	require.Equal(t, 1, alsoFailing.calls)
	require.Equal(t, MethodMobile, snapshot.Method)
	require.Equal(t, int64(42), snapshot.Followers)
}

func TestEngineDegradesOnExhaustion(t *testing.T) {
	engine := newTestEngine(
		&stubStrategy{name: MethodAuthenticated, err: fmt.Errorf("down")},
		&stubStrategy{name: MethodEmbed, err: fmt.Errorf("down")},
	)

	snapshot := engine.Acquire(context.Background(), "wildlife")
	require.True(t, snapshot.Degraded())
	require.Equal(t, "wildlife", snapshot.Username)
	require.Equal(t, engine.now(), snapshot.ObservedAt)
	require.Equal(t, "unable to access profile data", snapshot.Error)
}

func TestEngineFillsDerivedFields(t *testing.T) {
	strategy := &stubStrategy{
		name: MethodAnonymous,
		snapshot: Snapshot{
			Followers: 1000,
			recentPosts: []instagram.RecentPost{
				{TakenAt: 1721999000, Likes: 200, Comments: 20},
				{TakenAt: 1721900000, Likes: 100, Comments: 10},
			},
		},
	}

	engine := newTestEngine(strategy)
	snapshot := engine.Acquire(context.Background(), "wildlife")

	require.Equal(t, "wildlife", snapshot.Username)
	require.Equal(t, "https://instagram.com/wildlife", snapshot.ProfileUrl)
	require.Equal(t, engine.now(), snapshot.ObservedAt)

	require.NotNil(t, snapshot.LastPostAt)
	require.Equal(t, time.Unix(1721999000, 0).UTC(), *snapshot.LastPostAt)

	// mean interactions (220+110)/2=165 over 1000 followers
	require.InDelta(t, 16.5, snapshot.EngagementRate, 0.0001)
}

func TestEngineSkipsEngagementWithoutFollowers(t *testing.T) {
	strategy := &stubStrategy{
		name: MethodEmbed,
		snapshot: Snapshot{
			recentPosts: []instagram.RecentPost{{TakenAt: 1721999000, Likes: 5}},
		},
	}

	engine := newTestEngine(strategy)
	snapshot := engine.Acquire(context.Background(), "wildlife")
	require.Zero(t, snapshot.EngagementRate)
	require.NotNil(t, snapshot.LastPostAt)
}
