package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	applog "budgetly/internal/log"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Mail(ctx context.Context, m Message) error
}

// LogMailer writes mail to the log instead of sending it.
type LogMailer struct{}

func (LogMailer) Mail(ctx context.Context, m Message) error {
	slog.InfoContext(ctx, "Mail",
		applog.FieldComponent, applog.ComponentMailer,
		"to", m.To,
		"subject", m.Subject,
		"body", m.Body)
	return nil
}

type sesAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends plain-text mail through Amazon SES.
type SESMailer struct {
	client sesAPI
	from   string
}

// NewSESMailer loads AWS credentials from the default chain.
func NewSESMailer(ctx context.Context, region, from string) (*SESMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SESMailer{client: ses.NewFromConfig(cfg), from: from}, nil
}

func (s *SESMailer) Mail(ctx context.Context, m Message) error {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{m.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(m.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(m.Body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", m.To, err)
	}

	slog.InfoContext(ctx, "Mail sent", applog.FieldComponent, applog.ComponentMailer, "to", m.To, "message_id", aws.ToString(out.MessageId))
	return nil
}
