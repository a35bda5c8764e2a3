package notify

import (
	"context"
	"log"
)

// Message is one outbound notification. HTMLBody is optional; when set it
// is sent as the alternative part alongside TextBody.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier is the fallback when no SMTP server is configured. It logs
// the subject and recipient so closing runs stay observable in dev.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("[notify] delivery skipped (SMTP not configured): to=%s subject=%q", msg.To, msg.Subject)
	return nil
}
