package notify

import (
	"fmt"
	"strings"
)

// Compose renders the plain-text e-mail for n.
func Compose(n Notification) (Message, error) {
	greeting := "Hello,"
	if name := strings.TrimSpace(n.Name); name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}

	var subject, body string
	switch n.Kind {
	case KindPasswordReset:
		if n.Token == "" {
			return Message{}, fmt.Errorf("password reset for %s has no token", n.To)
		}
		subject = "Reset your password"
		body = fmt.Sprintf("%s\n\nUse this code to reset your password:\n\n%s\n\nIf you did not ask for a reset, you can ignore this e-mail.\n", greeting, n.Token)
	case KindEmailChanged:
		subject = "Your e-mail address was changed"
		body = fmt.Sprintf("%s\n\nThe e-mail address on your account was changed. If you did not make this change, contact support.\n", greeting)
	case KindAccountDeleted:
		subject = "Your account was deleted"
		body = fmt.Sprintf("%s\n\nYour account and all of its data have been deleted.\n", greeting)
	default:
		return Message{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	return Message{To: n.To, Subject: subject, Body: body}, nil
}
