// store.go owns the on-disk artifacts for one handle's directory. every
// write goes through the atomic-replace discipline so readers (the
// dashboard poller) never observe a half-written file.

package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gramwatch-backend/lib/jsonfile"

	"go.opentelemetry.io/otel/codes"
)

const (
	SummaryFile    = "monitoring_summary.json"
	QuickStatsFile = "quick_stats.json"
	HistoryFile    = "monitoring_history.json"
	ChangesLogFile = "changes_log.json"
)

// changes_log.json keeps only the most recent change sets
const changesLogLimit = 50

// Summary is the full snapshot artifact with the run's change set
// embedded, the richest file a consumer can poll.
type Summary struct {
	Snapshot
	Changes ChangeSet `json:"changes"`
}

// QuickStats is the compact numeric projection for lightweight dashboard
// polling. verbose fields (bio, display name) are deliberately stripped.
type QuickStats struct {
	Username        string    `json:"username"`
	Followers       int64     `json:"followers"`
	Following       int64     `json:"following"`
	Posts           int64     `json:"posts"`
	LastUpdated     time.Time `json:"last_updated"`
	IsPrivate       bool      `json:"is_private"`
	IsVerified      bool      `json:"is_verified"`
	Method          string    `json:"method"`
	ProfilePicUrl   string    `json:"profile_pic_url,omitempty"`
	ProfilePicUrlHd string    `json:"profile_pic_url_hd,omitempty"`
}

// HistoryEntry is one compact observation in the bounded ledger.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Followers int64     `json:"followers"`
	Following int64     `json:"following"`
	Posts     int64     `json:"posts"`
	IsPrivate bool      `json:"is_private"`
	Method    string    `json:"method"`
}

// History is the append-bounded ledger artifact. entries are insertion
// ordered, oldest first, and never exceed the configured retention.
type History struct {
	Username    string         `json:"username"`
	LastUpdated time.Time      `json:"last_updated"`
	Entries     []HistoryEntry `json:"entries"`
}

type ChangesLog struct {
	Entries []ChangeSet `json:"entries"`
}

// Store exclusively owns the artifacts of one handle's directory. exactly
// one process is assumed to own a directory at a time; the deployment
// model (scheduled, non-overlapping runs) precludes concurrent writers.
type Store struct {
	dir          string
	historyLimit int
}

func NewStore(dir string, historyLimit int) Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return Store{dir: dir, historyLimit: historyLimit}
}

func (s Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// LoadSummary reads the previously persisted summary. (nil, nil) means no
// previous observation; a malformed file is reported the same way since
// the detector treats both as "first observation".
func (s Store) LoadSummary() (*Summary, error) {
	var summary Summary
	err := jsonfile.Read(s.path(SummaryFile), &summary)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		slog.Warn("failed to load previous summary, treating as first observation", "err", err)
		return nil, nil
	}
	return &summary, nil
}

func (s Store) LoadHistory() (History, error) {
	var history History
	err := jsonfile.Read(s.path(HistoryFile), &history)
	if os.IsNotExist(err) {
		return History{}, nil
	}
	if err != nil {
		slog.Warn("failed to load history ledger, starting fresh", "err", err)
		return History{}, nil
	}
	return history, nil
}

func (s Store) LoadQuickStats() (QuickStats, error) {
	var stats QuickStats
	err := jsonfile.Read(s.path(QuickStatsFile), &stats)
	return stats, err
}

// Persist writes the summary, quick stats and history artifacts for this
// run, plus the changes log when the run detected anything. each artifact
// write is atomic and failures are isolated per artifact: one failing
// write never aborts the others.
func (s Store) Persist(ctx context.Context, snapshot Snapshot, changes ChangeSet) error {
	ctx, span := tracer.Start(ctx, "store:Persist")
	defer span.End()

	err := os.MkdirAll(s.dir, 0755)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create output directory")
		return fmt.Errorf("create output dir: %w", err)
	}

	var errlist []error

	err = jsonfile.WriteAtomic(s.path(SummaryFile), Summary{
		Snapshot: snapshot,
		Changes:  changes,
	})
	if err != nil {
		slog.Warn("failed to persist summary", "err", err)
		errlist = append(errlist, err)
	}

	err = jsonfile.WriteAtomic(s.path(QuickStatsFile), QuickStats{
		Username:        snapshot.Username,
		Followers:       snapshot.Followers,
		Following:       snapshot.Following,
		Posts:           snapshot.Posts,
		LastUpdated:     snapshot.ObservedAt,
		IsPrivate:       snapshot.IsPrivate,
		IsVerified:      snapshot.IsVerified,
		Method:          snapshot.Method,
		ProfilePicUrl:   snapshot.ProfilePicUrl,
		ProfilePicUrlHd: snapshot.ProfilePicUrlHd,
	})
	if err != nil {
		slog.Warn("failed to persist quick stats", "err", err)
		errlist = append(errlist, err)
	}

	err = s.appendHistory(snapshot)
	if err != nil {
		slog.Warn("failed to persist history ledger", "err", err)
		errlist = append(errlist, err)
	}

	if changes.HasChanges {
		err = s.appendChangesLog(changes)
		if err != nil {
			slog.Warn("failed to persist changes log", "err", err)
			errlist = append(errlist, err)
		}
	}

	err = errors.Join(errlist...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "one or more artifacts failed to persist")
	}
	return err
}

// appendHistory loads the ledger, appends this run's entry, evicts the
// oldest entries beyond the retention cap and rewrites the whole file.
func (s Store) appendHistory(snapshot Snapshot) error {
	history, _ := s.LoadHistory()

	history.Username = snapshot.Username
	history.LastUpdated = snapshot.ObservedAt
	history.Entries = append(history.Entries, HistoryEntry{
		Timestamp: snapshot.ObservedAt,
		Followers: snapshot.Followers,
		Following: snapshot.Following,
		Posts:     snapshot.Posts,
		IsPrivate: snapshot.IsPrivate,
		Method:    snapshot.Method,
	})
	if len(history.Entries) > s.historyLimit {
		history.Entries = history.Entries[len(history.Entries)-s.historyLimit:]
	}

	return jsonfile.WriteAtomic(s.path(HistoryFile), history)
}

func (s Store) appendChangesLog(changes ChangeSet) error {
	var log ChangesLog
	err := jsonfile.Read(s.path(ChangesLogFile), &log)
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load changes log, starting fresh", "err", err)
	}

	log.Entries = append(log.Entries, changes)
	if len(log.Entries) > changesLogLimit {
		log.Entries = log.Entries[len(log.Entries)-changesLogLimit:]
	}

	return jsonfile.WriteAtomic(s.path(ChangesLogFile), log)
}
