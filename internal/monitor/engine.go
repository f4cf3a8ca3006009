package monitor

import (
	"context"
	"log/slog"
	"time"

	"gramwatch-backend/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = telemetry.Tracer("gramwatch.internal.monitor")

// Engine sequences the acquisition strategies in priority order. Acquire
// is a total function: when every strategy fails it degrades to the
// deterministic fallback snapshot instead of returning an error.
type Engine struct {
	strategies []Strategy
	now        func() time.Time
}

func NewEngine(strategies []Strategy) *Engine {
	return &Engine{
		strategies: strategies,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) Acquire(ctx context.Context, handle string) Snapshot {
	ctx, span := tracer.Start(ctx, "engine:Acquire")
	defer span.End()
	span.SetAttributes(attribute.String("handle", handle))

	for _, strategy := range e.strategies {
		snapshot, err := strategy.Fetch(ctx, handle)
		if err != nil {
			slog.Warn(
				"acquisition strategy failed",
				"strategy", strategy.Name(),
				"handle", handle,
				"err", err,
			)
			span.AddEvent("strategy failed", trace.WithAttributes(
				attribute.String("strategy", strategy.Name()),
				attribute.String("err", err.Error()),
			))
			continue
		}

		span.AddEvent("strategy succeeded", trace.WithAttributes(
			attribute.String("strategy", strategy.Name()),
		))
		return e.finish(handle, strategy.Name(), snapshot)
	}

	slog.Warn("all acquisition strategies exhausted, degrading", "handle", handle)
	span.AddEvent("degraded to fallback snapshot")
	return FallbackSnapshot(handle, e.now())
}

// finish tags the snapshot and fills the derived fields that are
// independent of which strategy produced it.
func (e *Engine) finish(handle, method string, snapshot Snapshot) Snapshot {
	snapshot.Username = handle
	snapshot.Method = method
	snapshot.ObservedAt = e.now()
	snapshot.ProfileUrl = "https://instagram.com/" + handle

	if len(snapshot.recentPosts) > 0 {
		latest := snapshot.recentPosts[0].TakenAt
		var interactions int64
		for _, post := range snapshot.recentPosts {
			if post.TakenAt > latest {
				latest = post.TakenAt
			}
			interactions += post.Likes + post.Comments
		}
		if latest > 0 {
			at := time.Unix(latest, 0).UTC()
			snapshot.LastPostAt = &at
		}
		if snapshot.Followers > 0 {
			mean := float64(interactions) / float64(len(snapshot.recentPosts))
			snapshot.EngagementRate = mean / float64(snapshot.Followers) * 100
		}
	}

	return snapshot
}
