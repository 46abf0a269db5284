package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetly/internal/amqp"
	applog "budgetly/internal/log"
	"budgetly/internal/notify"
)

// NotifyWorker turns queued notification messages into e-mail.
type NotifyWorker struct {
	mailer notify.Mailer
}

func NewNotifyWorker(mailer notify.Mailer) *NotifyWorker {
	return &NotifyWorker{mailer: mailer}
}

// HandleNotificationMessage processes a single notification from AMQP.
// A message that cannot be composed is logged and dropped; a mail failure
// is returned so the broker redelivers it.
func (w *NotifyWorker) HandleNotificationMessage(ctx context.Context, msg *amqp.NotificationMessage) error {
	slog.InfoContext(ctx, "Processing notification message",
		applog.FieldComponent, applog.ComponentNotifyWorker,
		"kind", msg.Kind,
		"timestamp", msg.Timestamp)

	m, err := notify.Compose(notify.FromMessage(msg))
	if err != nil {
		slog.ErrorContext(ctx, "Dropping notification that cannot be composed",
			applog.FieldComponent, applog.ComponentNotifyWorker,
			"kind", msg.Kind,
			"error", err)
		return nil
	}

	if err := w.mailer.Mail(ctx, m); err != nil {
		return fmt.Errorf("mail %s notification: %w", msg.Kind, err)
	}

	slog.InfoContext(ctx, "Notification mailed",
		applog.FieldComponent, applog.ComponentNotifyWorker,
		"kind", msg.Kind)
	return nil
}
