package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/equihome/launchpad/internal/domain"
)

type visitItem struct {
	Page          string `dynamodbav:"page"`
	Timestamp     string `dynamodbav:"timestamp"`
	ScheduledDate string `dynamodbav:"scheduledDate,omitempty"`
}

// progressItem stores the tagged variant explicitly so a timestamp never
// reads back as a string.
type progressItem struct {
	Kind string `dynamodbav:"kind"`
	Bool bool   `dynamodbav:"bool"`
	Time string `dynamodbav:"time,omitempty"`
}

type activityItem struct {
	UserID       string                  `dynamodbav:"userId"`
	Email        string                  `dynamodbav:"email"`
	LastActive   string                  `dynamodbav:"lastActive"`
	LastSignIn   string                  `dynamodbav:"lastSignIn,omitempty"`
	VisitHistory []visitItem             `dynamodbav:"visitHistory"`
	Progress     map[string]progressItem `dynamodbav:"progress"`
	CreatedAt    string                  `dynamodbav:"createdAt"`
}

func toActivityItem(r *domain.ActivityRecord) activityItem {
	it := activityItem{
		UserID:       r.UserID,
		Email:        r.Email,
		LastActive:   formatTime(r.LastActive),
		LastSignIn:   formatTimePtr(r.LastSignIn),
		VisitHistory: make([]visitItem, 0, len(r.VisitHistory)),
		Progress:     make(map[string]progressItem, len(r.Progress)),
		CreatedAt:    formatTime(r.CreatedAt),
	}
	for _, v := range r.VisitHistory {
		it.VisitHistory = append(it.VisitHistory, visitItem{
			Page:          v.Page,
			Timestamp:     formatTime(v.Timestamp),
			ScheduledDate: formatTimePtr(v.ScheduledDate),
		})
	}
	for k, v := range r.Progress {
		it.Progress[k] = progressItem{Kind: string(v.Kind), Bool: v.Bool, Time: formatTime(v.Time)}
	}
	return it
}

func (it activityItem) toDomain() *domain.ActivityRecord {
	rec := &domain.ActivityRecord{
		UserID:       it.UserID,
		Email:        it.Email,
		LastActive:   parseTime(it.LastActive),
		LastSignIn:   parseTimePtr(it.LastSignIn),
		VisitHistory: make([]domain.Visit, 0, len(it.VisitHistory)),
		Progress:     make(domain.Progress, len(it.Progress)),
		CreatedAt:    parseTime(it.CreatedAt),
	}
	for _, v := range it.VisitHistory {
		rec.VisitHistory = append(rec.VisitHistory, domain.Visit{
			Page:          v.Page,
			Timestamp:     parseTime(v.Timestamp),
			ScheduledDate: parseTimePtr(v.ScheduledDate),
		})
	}
	for k, v := range it.Progress {
		if domain.ProgressKind(v.Kind) == domain.ProgressTime {
			rec.Progress[k] = domain.At(parseTime(v.Time))
		} else {
			rec.Progress[k] = domain.Flag(v.Bool)
		}
	}
	return rec
}

// ActivityRepo implements activity.Repository on DynamoDB.
type ActivityRepo struct{ table }

// NewActivityRepo creates a DynamoDB-backed activity repository.
func NewActivityRepo(api API, prefix string) *ActivityRepo {
	return &ActivityRepo{table{api: api, name: TableName(prefix, ActivityTable)}}
}

func (r *ActivityRepo) Get(ctx context.Context, userID string) (*domain.ActivityRecord, error) {
	var it activityItem
	if err := r.get(ctx, stringKey("userId", userID), &it); err != nil {
		return nil, err
	}
	return it.toDomain(), nil
}

// Put replaces the whole document. The last write wins.
func (r *ActivityRepo) Put(ctx context.Context, rec *domain.ActivityRecord) error {
	return r.put(ctx, toActivityItem(rec), "")
}

func (r *ActivityRepo) List(ctx context.Context) ([]domain.ActivityRecord, error) {
	out := []domain.ActivityRecord{}
	err := r.scan(ctx, func(item map[string]types.AttributeValue) error {
		var it activityItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return fmt.Errorf("unmarshal activity: %w", err)
		}
		out = append(out, *it.toDomain())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
