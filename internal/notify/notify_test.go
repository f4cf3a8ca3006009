package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gramwatch-backend/internal/monitor"

	"github.com/stretchr/testify/require"
)

func testResult() monitor.RunResult {
	changes := monitor.ChangeSet{
		HasChanges: true,
		Entries:    []string{"Followers: 1,000 → 1,050 (+50)", "Bio changed"},
		ObservedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	return monitor.RunResult{
		Snapshot: monitor.Snapshot{
			Username:   "wildlife",
			Followers:  1050,
			Following:  320,
			Posts:      87,
			Method:     monitor.MethodAnonymous,
			ObservedAt: changes.ObservedAt,
		},
		Changes: changes,
	}
}

func TestWebhookNotifier(t *testing.T) {
	var gotSecret string
	var gotPayload webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("x-gramwatch-secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	notifier := NewWebhookNotifier(WebhookConfig{Url: server.URL, Secret: "hunter2"})
	err := notifier.Notify(context.Background(), "wildlife", testResult())
	require.NoError(t, err)

	require.Equal(t, "hunter2", gotSecret)
	require.Equal(t, "wildlife", gotPayload.Handle)
	require.Equal(t, int64(1050), gotPayload.Snapshot.Followers)
	require.Len(t, gotPayload.Changes.Entries, 2)
}

func TestWebhookNotifierRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	notifier := NewWebhookNotifier(WebhookConfig{Url: server.URL})
	err := notifier.Notify(context.Background(), "wildlife", testResult())
	require.Error(t, err)
}

func TestChangeReport(t *testing.T) {
	report := changeReport("wildlife", testResult())
	require.Contains(t, report, "Changes detected for @wildlife")
	require.Contains(t, report, "- Followers: 1,000 → 1,050 (+50)")
	require.Contains(t, report, "- Bio changed")
	require.Contains(t, report, "1050 followers, 320 following, 87 posts (via anonymous_api)")

	htmlReport := changeReportHtml("wildlife", testResult())
	require.Contains(t, htmlReport, "<b>@wildlife</b>")
	require.Contains(t, htmlReport, "<li>Bio changed</li>")
}

type flakyNotifier struct {
	fail bool
}

func (n flakyNotifier) Notify(ctx context.Context, handle string, result monitor.RunResult) error {
	if n.fail {
		return fmt.Errorf("unreachable")
	}
	return nil
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	delivered := Broadcast(
		context.Background(),
		[]Notifier{flakyNotifier{fail: true}, flakyNotifier{}, flakyNotifier{}},
		"wildlife",
		testResult(),
	)
	require.Equal(t, 2, delivered)
}
