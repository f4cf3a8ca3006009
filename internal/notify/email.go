package notify

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"gramwatch-backend/internal/monitor"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

// EmailNotifier mails a plain-text change report over smtp.
type EmailNotifier struct {
	config SmtpConfig
}

func NewEmailNotifier(config SmtpConfig) EmailNotifier {
	return EmailNotifier{config: config}
}

func (n EmailNotifier) Notify(ctx context.Context, handle string, result monitor.RunResult) error {
	_, span := tracer.Start(ctx, "EmailNotifier:Notify")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("GramWatch <%s>", n.config.EmailAddress)
	mail.To = n.config.Recipients
	mail.Subject = fmt.Sprintf("Instagram changes for @%s", handle)
	mail.Text = []byte(changeReport(handle, result))
	mail.HTML = []byte(changeReportHtml(handle, result))

	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}

	return nil
}

func changeReport(handle string, result monitor.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Changes detected for @%s at %s:\n\n", handle, result.Snapshot.ObservedAt.Format("2006-01-02 15:04:05 MST"))
	for _, entry := range result.Changes.Entries {
		fmt.Fprintf(&b, "  - %s\n", entry)
	}
	fmt.Fprintf(
		&b,
		"\nCurrent stats: %d followers, %d following, %d posts (via %s)\n",
		result.Snapshot.Followers,
		result.Snapshot.Following,
		result.Snapshot.Posts,
		result.Snapshot.Method,
	)
	return b.String()
}

func changeReportHtml(handle string, result monitor.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Changes detected for <b>@%s</b> at %s:</p>\n<ul>\n", html.EscapeString(handle), result.Snapshot.ObservedAt.Format("2006-01-02 15:04:05 MST"))
	for _, entry := range result.Changes.Entries {
		fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(entry))
	}
	fmt.Fprintf(
		&b,
		"</ul>\n<p>Current stats: %d followers, %d following, %d posts (via %s)</p>\n",
		result.Snapshot.Followers,
		result.Snapshot.Following,
		result.Snapshot.Posts,
		html.EscapeString(result.Snapshot.Method),
	)
	return b.String()
}
