// Package events publishes lead lifecycle events to SQS for downstream CRM
// sync. Publishing is fire-and-forget and never fails the caller.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/logger"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends lead events to an SQS queue.
type Publisher struct {
	client   sqsAPI
	queueURL string
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewPublisher creates an SQS publisher for queueURL.
func NewPublisher(cfg aws.Config, queueURL string) *Publisher {
	return newPublisher(sqs.NewFromConfig(cfg), queueURL)
}

func newPublisher(client sqsAPI, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL, timeout: 5 * time.Second}
}

// Publish enqueues evt on a detached goroutine.
func (p *Publisher) Publish(evt domain.LeadEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		logger.Error("marshal lead event", "type", string(evt.Type), "error", err)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"type": {DataType: aws.String("String"), StringValue: aws.String(string(evt.Type))},
			},
		})
		if err != nil {
			logger.Warn("publish lead event failed", "type", string(evt.Type), "email", evt.Email, "error", err)
			return
		}
		logger.Debug("lead event published", "type", string(evt.Type))
	}()
}

// Wait blocks until in-flight publishes finish. Call it only after every
// caller of Publish has stopped.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// NopPublisher discards events. Used when no queue is configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(domain.LeadEvent) {}

// Wait returns immediately.
func (NopPublisher) Wait() {}
