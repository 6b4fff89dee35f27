package auth

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	log "github.com/sirupsen/logrus"
)

const recoverySubject = "Ninja Training - password recovery"

type Mailer interface {
	SendPasswordRecovery(ctx context.Context, to, link string) error
}

type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESMailer struct {
	client sesSender
	sender string
}

func NewSESMailer(ctx context.Context, region, sender string) (*SESMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{
		client: ses.NewFromConfig(cfg),
		sender: sender,
	}, nil
}

func recoveryBody(link string) string {
	return fmt.Sprintf(
		"Someone asked to reset the password of your Ninja Training account.\n\n"+
			"Open the link below within an hour to choose a new one:\n%s\n\n"+
			"If it wasn't you, ignore this e-mail.",
		link,
	)
}

func (m *SESMailer) SendPasswordRecovery(ctx context.Context, to, link string) error {
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(recoverySubject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(recoveryBody(link)),
				},
			},
		},
		Source: aws.String(m.sender),
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}

// LogMailer only logs the messages, used when SES is not configured.
type LogMailer struct{}

func (LogMailer) SendPasswordRecovery(_ context.Context, to, link string) error {
	log.Infof("password recovery for [%s]: %s", to, link)
	return nil
}
