// Package notify is the thin trigger boundary in front of the external
// notification system. Sends are best effort: failures are logged and
// reported via the return value, never escalated.
package notify

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/MartinHaas/LokalMarkt/internal/pkg/jobqueue"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/mail"
)

// Notifier triggers a notification to a single recipient. Implementations
// must never block the caller on delivery.
type Notifier interface {
	Send(subject, templateKey, recipient string, data map[string]string) bool
}

// QueueNotifier hands notifications to the Redis job queue so SMTP
// latency never sits on the webhook response path.
type QueueNotifier struct {
	queue *jobqueue.Queue
}

// NewQueueNotifier creates a queue-backed notifier.
func NewQueueNotifier(q *jobqueue.Queue) *QueueNotifier {
	return &QueueNotifier{queue: q}
}

func (n *QueueNotifier) Send(subject, templateKey, recipient string, data map[string]string) bool {
	if recipient == "" {
		log.Warnf("[Notify] Dropping notification %s: empty recipient", templateKey)
		return false
	}

	payload := map[string]interface{}{
		"subject":      subject,
		"template_key": templateKey,
		"recipient":    recipient,
		"data":         data,
	}
	if _, err := n.queue.EnqueueJob(jobqueue.JobTypeNotification, payload); err != nil {
		log.Errorf("[Notify] Failed to enqueue notification %s for %s: %v", templateKey, recipient, err)
		return false
	}
	return true
}

// MailNotifier sends directly via SMTP in a background goroutine. Used in
// development when no Redis is available.
type MailNotifier struct{}

func NewMailNotifier() *MailNotifier {
	return &MailNotifier{}
}

func (n *MailNotifier) Send(subject, templateKey, recipient string, data map[string]string) bool {
	if recipient == "" {
		log.Warnf("[Notify] Dropping notification %s: empty recipient", templateKey)
		return false
	}

	go func() {
		body := jobqueue.RenderNotificationBody(templateKey, data)
		if err := mail.SendMail(recipient, subject, body); err != nil {
			log.Errorf("[Notify] Failed to send notification %s to %s: %v", templateKey, recipient, err)
		}
	}()
	return true
}
