package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/equihome/launchpad/internal/domain"
)

type subscriberItem struct {
	Email        string `dynamodbav:"email"`
	SubscribedAt string `dynamodbav:"subscribedAt"`
}

// NewsletterRepo implements newsletter.Repository on DynamoDB.
type NewsletterRepo struct{ table }

// NewNewsletterRepo creates a DynamoDB-backed subscriber repository.
func NewNewsletterRepo(api API, prefix string) *NewsletterRepo {
	return &NewsletterRepo{table{api: api, name: TableName(prefix, NewsletterTable)}}
}

func (r *NewsletterRepo) Get(ctx context.Context, email string) (*domain.NewsletterSubscriber, error) {
	var it subscriberItem
	if err := r.get(ctx, stringKey("email", email), &it); err != nil {
		return nil, err
	}
	return &domain.NewsletterSubscriber{Email: it.Email, SubscribedAt: parseTime(it.SubscribedAt)}, nil
}

func (r *NewsletterRepo) Create(ctx context.Context, s *domain.NewsletterSubscriber) error {
	return r.put(ctx, subscriberItem{Email: s.Email, SubscribedAt: formatTime(s.SubscribedAt)}, "attribute_not_exists(email)")
}

func (r *NewsletterRepo) List(ctx context.Context) ([]domain.NewsletterSubscriber, error) {
	out := []domain.NewsletterSubscriber{}
	err := r.scan(ctx, func(item map[string]types.AttributeValue) error {
		var it subscriberItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return fmt.Errorf("unmarshal subscriber: %w", err)
		}
		out = append(out, domain.NewsletterSubscriber{Email: it.Email, SubscribedAt: parseTime(it.SubscribedAt)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
