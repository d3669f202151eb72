package notify

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/logger"
)

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES v2.
type SESMailer struct {
	client sesAPI
	from   string
}

// NewSESMailer creates an SES mailer sending as "fromName <from>".
func NewSESMailer(cfg aws.Config, from, fromName string) *SESMailer {
	return newSESMailer(sesv2.NewFromConfig(cfg), from, fromName)
}

func newSESMailer(client sesAPI, from, fromName string) *SESMailer {
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, from)
	}
	return &SESMailer{client: client, from: from}
}

// Send delivers msg through SES.
func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if msg.Text != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}

	keys := make([]string, 0, len(msg.Tags))
	for k := range msg.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		input.EmailTags = append(input.EmailTags, types.MessageTag{Name: aws.String(k), Value: aws.String(msg.Tags[k])})
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return domain.Unavailable("ses send", err)
	}
	logger.Debug("email sent", "to", msg.To[0], "message_id", aws.ToString(out.MessageId))
	return nil
}
