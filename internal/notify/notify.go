// Package notify delivers account notifications: the API publishes them
// through a Sender and the notify worker turns them into e-mail via a Mailer.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetly/internal/amqp"
	applog "budgetly/internal/log"
)

type Kind string

const (
	KindPasswordReset  Kind = amqp.KindPasswordReset
	KindEmailChanged   Kind = amqp.KindEmailChanged
	KindAccountDeleted Kind = amqp.KindAccountDeleted
)

type Notification struct {
	Kind      Kind
	To        string
	Name      string
	Token     string
	Timestamp time.Time
}

// Sender hands a notification off for delivery. Callers log a failure and
// carry on; delivery problems never fail the request that caused them.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender only logs. It is used when no broker is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, n Notification) error {
	slog.InfoContext(ctx, "Notification (not delivered, no broker configured)",
		applog.FieldComponent, applog.ComponentNotify,
		"kind", n.Kind,
		"to", n.To)
	return nil
}

// Publisher is the part of amqp.Client the sender needs.
type Publisher interface {
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}

// AMQPSender publishes notifications to the broker for the worker.
type AMQPSender struct {
	pub Publisher
}

func NewAMQPSender(pub Publisher) *AMQPSender {
	return &AMQPSender{pub: pub}
}

func (s *AMQPSender) Send(ctx context.Context, n Notification) error {
	msg := amqp.NewNotificationMessage(string(n.Kind), n.To, n.Name, n.Token)
	if !n.Timestamp.IsZero() {
		msg.Timestamp = n.Timestamp
	}
	if err := s.pub.PublishNotification(ctx, msg); err != nil {
		return fmt.Errorf("send %s notification: %w", n.Kind, err)
	}
	return nil
}

// FromMessage converts a queue message back into a Notification.
func FromMessage(msg *amqp.NotificationMessage) Notification {
	return Notification{
		Kind:      Kind(msg.Kind),
		To:        msg.To,
		Name:      msg.Name,
		Token:     msg.Token,
		Timestamp: msg.Timestamp,
	}
}
