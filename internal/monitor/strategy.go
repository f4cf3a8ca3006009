// strategy.go defines the acquisition strategy contract and the five
// adapters over the upstream surfaces. every strategy is a total mapping
// from a handle to either a snapshot or a typed failure; nothing here
// panics or leaks transport faults.

package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gramwatch-backend/internal/scrapers/instagram"
)

// Strategy is one self-contained way of obtaining a snapshot. Fetch
// returns the snapshot without method/time tags; the engine owns those.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, handle string) (Snapshot, error)
}

// StrategyFailure is the typed result a failing strategy yields. Reason
// carries the upstream classification so the orchestrator can log and
// fall through without string-matching.
type StrategyFailure struct {
	Strategy string
	Reason   instagram.Reason
	Err      error
}

func (f *StrategyFailure) Error() string {
	return fmt.Sprintf("strategy %s: %s: %s", f.Strategy, f.Reason, f.Err)
}

func (f *StrategyFailure) Unwrap() error {
	return f.Err
}

func failure(strategy string, err error) *StrategyFailure {
	return &StrategyFailure{
		Strategy: strategy,
		Reason:   instagram.ReasonOf(err),
		Err:      err,
	}
}

// DefaultStrategies builds the production cascade in priority order. the
// authenticated and anonymous strategies share the session client; the
// markup and embed strategies share the page client and its pacing.
func DefaultStrategies(cfg Config) ([]Strategy, error) {
	cfg = cfg.withDefaults()

	sessionClient, err := instagram.NewClient(instagram.ClientOptions{})
	if err != nil {
		return nil, err
	}
	mobileClient, err := instagram.NewMobileClient(instagram.MobileClientOptions{})
	if err != nil {
		return nil, err
	}
	pageClient, err := instagram.NewPageClient(instagram.PageClientOptions{})
	if err != nil {
		return nil, err
	}

	return []Strategy{
		&authenticatedStrategy{
			client:      sessionClient,
			credentials: cfg.Credentials,
			sessionDir:  cfg.SessionDir,
			ephemeral:   cfg.Ephemeral,
		},
		&anonymousStrategy{client: sessionClient},
		&mobileStrategy{client: mobileClient},
		&markupStrategy{client: pageClient},
		&embedStrategy{client: pageClient},
	}, nil
}

// authenticatedStrategy reuses a persisted session when one exists, logs
// in otherwise, and reads the profile through the session client. session
// state is only written back outside ephemeral environments.
type authenticatedStrategy struct {
	client      *instagram.Client
	credentials Credentials
	sessionDir  string
	ephemeral   bool
}

func (s *authenticatedStrategy) Name() string { return MethodAuthenticated }

func (s *authenticatedStrategy) sessionPath() string {
	return filepath.Join(s.sessionDir, fmt.Sprintf("session_%s.json", s.credentials.Username))
}

func (s *authenticatedStrategy) login(ctx context.Context) error {
	if s.client.LoggedIn() {
		return nil
	}

	err := s.client.LoadSession(s.sessionPath())
	if err == nil && s.client.LoggedIn() {
		slog.Debug("restored persisted session", "user", s.credentials.Username)
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to restore session file", "err", err)
	}

	err = s.client.Login(ctx, s.credentials.Username, s.credentials.Password)
	if err != nil {
		return err
	}

	if s.ephemeral {
		slog.Debug("ephemeral run, not persisting session state")
		return nil
	}
	err = s.client.SaveSession(s.sessionPath())
	if err != nil {
		slog.Warn("failed to persist session file", "err", err)
	}
	return nil
}

func (s *authenticatedStrategy) Fetch(ctx context.Context, handle string) (Snapshot, error) {
	if !s.credentials.Present() {
		return Snapshot{}, failure(s.Name(), &instagram.UpstreamError{
			Reason: instagram.ReasonAuthRequired,
			Op:     "session",
			Err:    fmt.Errorf("no session credentials configured"),
		})
	}
	err := s.login(ctx)
	if err != nil {
		return Snapshot{}, failure(s.Name(), err)
	}

	user, err := s.client.WebProfile(ctx, handle)
	if err != nil {
		return Snapshot{}, failure(s.Name(), err)
	}
	return snapshotFromWebProfile(handle, user), nil
}

// anonymousStrategy reads through the same session client without ever
// logging in. the upstream refuses some handles anonymously, which
// surfaces as auth-required and falls through.
type anonymousStrategy struct {
	client *instagram.Client
}

func (s *anonymousStrategy) Name() string { return MethodAnonymous }

func (s *anonymousStrategy) Fetch(ctx context.Context, handle string) (Snapshot, error) {
	user, err := s.client.WebProfile(ctx, handle)
	if err != nil {
		return Snapshot{}, failure(s.Name(), err)
	}
	return snapshotFromWebProfile(handle, user), nil
}

// mobileStrategy hits the lightweight json endpoint with an app identity.
type mobileStrategy struct {
	client *instagram.MobileClient
}

func (s *mobileStrategy) Name() string { return MethodMobile }

func (s *mobileStrategy) Fetch(ctx context.Context, handle string) (Snapshot, error) {
	user, err := s.client.Profile(ctx, handle)
	if err != nil {
		return Snapshot{}, failure(s.Name(), err)
	}
	return snapshotFromWebProfile(handle, user), nil
}

// markupStrategy scrapes the public profile page.
type markupStrategy struct {
	client *instagram.PageClient
}

func (s *markupStrategy) Name() string { return MethodWebScraping }

func (s *markupStrategy) Fetch(ctx context.Context, handle string) (Snapshot, error) {
	html, err := s.client.ProfilePage(ctx, handle)
	if err != nil {
		return Snapshot{}, failure(s.Name(), err)
	}
	profile, err := instagram.ExtractProfile(ctx, handle, html)
	if err != nil {
		return Snapshot{}, failure(s.Name(), err)
	}
	return snapshotFromMarkup(profile), nil
}

// embedStrategy parses the open-graph card of the public embed page, the
// last resort before giving up.
type embedStrategy struct {
	client *instagram.PageClient
}

func (s *embedStrategy) Name() string { return MethodEmbed }

func (s *embedStrategy) Fetch(ctx context.Context, handle string) (Snapshot, error) {
	profile, err := s.client.ProfileEmbed(ctx, handle)
	if err != nil {
		return Snapshot{}, failure(s.Name(), err)
	}
	return snapshotFromEmbed(profile), nil
}
