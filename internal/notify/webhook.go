package notify

import (
	"context"
	"fmt"
	"time"

	"gramwatch-backend/internal/monitor"
	"gramwatch-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

type WebhookConfig struct {
	Url string `json:"url"`
	// optional shared secret sent as the x-gramwatch-secret header
	Secret string `json:"secret"`
}

// WebhookNotifier posts the run's summary payload as json.
type WebhookNotifier struct {
	config WebhookConfig
	http   *resty.Client
}

func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	client := resty.New()
	client.SetTimeout(time.Second * 15)
	telemetry.InstrumentResty(client, "gramwatch.notify.webhook_http")

	return &WebhookNotifier{config: config, http: client}
}

type webhookPayload struct {
	Handle   string            `json:"handle"`
	Snapshot monitor.Snapshot  `json:"snapshot"`
	Changes  monitor.ChangeSet `json:"changes"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, handle string, result monitor.RunResult) error {
	_, span := tracer.Start(ctx, "WebhookNotifier:Notify")
	defer span.End()

	req := n.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(webhookPayload{
			Handle:   handle,
			Snapshot: result.Snapshot,
			Changes:  result.Changes,
		})
	if n.config.Secret != "" {
		req.SetHeader("x-gramwatch-secret", n.config.Secret)
	}

	res, err := req.Post(n.config.Url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook request failed")
		return err
	}
	if res.StatusCode() >= 400 {
		err = fmt.Errorf("webhook returned status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook rejected payload")
		return err
	}

	return nil
}
