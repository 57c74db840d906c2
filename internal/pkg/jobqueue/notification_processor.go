package jobqueue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MartinHaas/LokalMarkt/internal/pkg/mail"
)

// processNotificationJob delivers a queued notification via SMTP. The
// actual template rendering lives in the mail system; here we only pass
// the template key and context through as a simple HTML body.
func (q *Queue) processNotificationJob(job *Job) error {
	payload, err := job.NotificationPayload()
	if err != nil {
		return err
	}

	body := RenderNotificationBody(payload.TemplateKey, payload.Data)
	if err := mail.SendMail(payload.Recipient, payload.Subject, body); err != nil {
		return fmt.Errorf("notification delivery failed: %w", err)
	}
	return nil
}

// RenderNotificationBody produces a minimal HTML body carrying the
// template key and its context. The real template set is owned by the
// mail system; this keeps queued notifications deliverable without it.
func RenderNotificationBody(templateKey string, data map[string]string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<p>Benachrichtigung: %s</p>", templateKey))

	if len(data) > 0 {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("<ul>")
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("<li>%s: %s</li>", k, data[k]))
		}
		b.WriteString("</ul>")
	}

	return b.String()
}
