package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Notification kinds carried on the queue.
const (
	KindPasswordReset  = "password_reset"
	KindEmailChanged   = "email_changed"
	KindAccountDeleted = "account_deleted"
)

// NotificationMessage asks the worker to e-mail a single recipient.
// Token is only set for password resets.
type NotificationMessage struct {
	Kind      string    `json:"kind"`
	To        string    `json:"to"`
	Name      string    `json:"name,omitempty"`
	Token     string    `json:"token,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotificationMessage(kind, to, name, token string) *NotificationMessage {
	return &NotificationMessage{
		Kind:      kind,
		To:        to,
		Name:      name,
		Token:     token,
		Timestamp: time.Now(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes and checks a message body.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindPasswordReset, KindEmailChanged, KindAccountDeleted:
	default:
		return nil, fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
	if msg.To == "" {
		return nil, fmt.Errorf("notification %s has no recipient", msg.Kind)
	}
	return &msg, nil
}
