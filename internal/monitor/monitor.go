package monitor

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

// Monitor ties the acquisition engine, the change detector, the artifact
// store and the picture tracker together for a single output directory.
type Monitor struct {
	cfg      Config
	engine   *Engine
	store    Store
	pictures *PictureTracker
}

func New(cfg Config) (*Monitor, error) {
	cfg = cfg.withDefaults()

	strategies, err := DefaultStrategies(cfg)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		cfg:    cfg,
		engine: NewEngine(strategies),
		store:  NewStore(cfg.OutputDir, cfg.HistoryLimit),
	}
	if cfg.TrackPictures {
		m.pictures = NewPictureTracker()
	}
	return m, nil
}

// RunResult is what a single monitoring pass observed.
type RunResult struct {
	Snapshot Snapshot
	Changes  ChangeSet
	Picture  PictureCheck
}

// Run executes one monitoring pass for rawHandle. The only error it can
// return is ErrInvalidHandle: acquisition degrades to the fallback
// snapshot and persistence failures are logged, never fatal.
func (m *Monitor) Run(ctx context.Context, rawHandle string) (RunResult, error) {
	handle, err := NormalizeHandle(rawHandle)
	if err != nil {
		return RunResult{}, err
	}

	ctx, span := tracer.Start(ctx, "monitor:Run")
	defer span.End()
	span.SetAttributes(attribute.String("handle", handle))

	previous, err := m.store.LoadSummary()
	if err != nil {
		slog.Warn("could not load previous summary", "handle", handle, "err", err)
		previous = nil
	}
	var previousSnapshot *Snapshot
	if previous != nil {
		previousSnapshot = &previous.Snapshot
	}

	snapshot := m.engine.Acquire(ctx, handle)
	changes := Detect(previousSnapshot, snapshot)

	result := RunResult{Snapshot: snapshot}

	if m.pictures != nil {
		check, err := m.pictures.Check(ctx, handle, snapshot.PictureUrl(), m.cfg.OutputDir)
		if err != nil {
			slog.Warn("profile picture check failed", "handle", handle, "err", err)
		} else {
			result.Picture = check
			if check.Changed {
				changes.add(check.Message)
			}
		}
	}

	result.Changes = changes

	if err := m.store.Persist(ctx, snapshot, changes); err != nil {
		slog.Error("persisting artifacts failed", "handle", handle, "err", err)
	}

	return result, nil
}
