// Package notify fans a run's detected changes out to the configured
// channels. notification failures are reported to the caller but are
// never allowed to affect the monitoring artifacts.
package notify

import (
	"context"
	"log/slog"

	"gramwatch-backend/internal/monitor"
	"gramwatch-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("gramwatch.internal.notify")

type Notifier interface {
	// Notify delivers the change report for one handle's run.
	Notify(ctx context.Context, handle string, result monitor.RunResult) error
}

// Broadcast sends the result to every notifier, continuing past
// failures. it returns the number of successful deliveries.
func Broadcast(ctx context.Context, notifiers []Notifier, handle string, result monitor.RunResult) int {
	ctx, span := tracer.Start(ctx, "Broadcast")
	defer span.End()

	delivered := 0
	for _, notifier := range notifiers {
		err := notifier.Notify(ctx, handle, result)
		if err != nil {
			slog.Warn("notification failed", "handle", handle, "err", err)
			continue
		}
		delivered++
	}
	return delivered
}
