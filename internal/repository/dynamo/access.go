package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/equihome/launchpad/internal/domain"
)

type accessItem struct {
	ID          string `dynamodbav:"id"`
	EmailType   string `dynamodbav:"emailType"`
	Email       string `dynamodbav:"email"`
	Name        string `dynamodbav:"name"`
	RequestType string `dynamodbav:"requestType"`
	Status      string `dynamodbav:"status"`
	Timestamp   string `dynamodbav:"timestamp"`
	ApprovedAt  string `dynamodbav:"approvedAt,omitempty"`
	ApprovedBy  string `dynamodbav:"approvedBy,omitempty"`
	UpdatedAt   string `dynamodbav:"updatedAt"`
}

func emailTypeKey(email string, rt domain.RequestType) string {
	return email + "#" + string(rt)
}

func toAccessItem(r *domain.AccessRequest) accessItem {
	return accessItem{
		ID:          r.ID,
		EmailType:   emailTypeKey(r.Email, r.RequestType),
		Email:       r.Email,
		Name:        r.Name,
		RequestType: string(r.RequestType),
		Status:      string(r.Status),
		Timestamp:   formatTime(r.Timestamp),
		ApprovedAt:  formatTimePtr(r.ApprovedAt),
		ApprovedBy:  r.ApprovedBy,
		UpdatedAt:   formatTime(r.UpdatedAt),
	}
}

func (it accessItem) toDomain() *domain.AccessRequest {
	return &domain.AccessRequest{
		ID:          it.ID,
		Email:       it.Email,
		Name:        it.Name,
		RequestType: domain.RequestType(it.RequestType),
		Status:      domain.AccessStatus(it.Status),
		Timestamp:   parseTime(it.Timestamp),
		ApprovedAt:  parseTimePtr(it.ApprovedAt),
		ApprovedBy:  it.ApprovedBy,
		UpdatedAt:   parseTime(it.UpdatedAt),
	}
}

// AccessRepo implements access.Repository on DynamoDB.
type AccessRepo struct{ table }

// NewAccessRepo creates a DynamoDB-backed access repository.
func NewAccessRepo(api API, prefix string) *AccessRepo {
	return &AccessRepo{table{api: api, name: TableName(prefix, AccessTable)}}
}

func (r *AccessRepo) Get(ctx context.Context, id string) (*domain.AccessRequest, error) {
	if strings.HasPrefix(id, pairPrefix) {
		return nil, domain.ErrNotFound
	}
	var it accessItem
	if err := r.get(ctx, stringKey("id", id), &it); err != nil {
		return nil, err
	}
	return it.toDomain(), nil
}

// pairItem reserves an (email, requestType) pair for a single request.
// It lives in the access table under a "pair#" id so that creating a
// request and claiming its pair commit in one transaction.
type pairItem struct {
	ID        string `dynamodbav:"id"`
	RequestID string `dynamodbav:"requestId"`
}

const pairPrefix = "pair#"

func pairID(email string, rt domain.RequestType) string {
	return pairPrefix + emailTypeKey(email, rt)
}

// FindByEmailAndType resolves the pair item and then the request it points
// at. Both reads are strongly consistent.
func (r *AccessRepo) FindByEmailAndType(ctx context.Context, email string, rt domain.RequestType) (*domain.AccessRequest, error) {
	var pair pairItem
	if err := r.get(ctx, stringKey("id", pairID(email, rt)), &pair); err != nil {
		return nil, err
	}
	return r.Get(ctx, pair.RequestID)
}

// Create writes the request and claims its pair atomically. A second
// request for the same pair fails with domain.ErrConflict.
func (r *AccessRepo) Create(ctx context.Context, req *domain.AccessRequest) error {
	reqAV, err := attributevalue.MarshalMap(toAccessItem(req))
	if err != nil {
		return fmt.Errorf("marshal access request: %w", err)
	}
	pairAV, err := attributevalue.MarshalMap(pairItem{ID: pairID(req.Email, req.RequestType), RequestID: req.ID})
	if err != nil {
		return fmt.Errorf("marshal access pair: %w", err)
	}

	_, err = r.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.name),
				Item:                pairAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.name),
				Item:                reqAV,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
		},
	})
	return classify("create access request in "+r.name, err)
}

func (r *AccessRepo) Update(ctx context.Context, req *domain.AccessRequest) error {
	if strings.HasPrefix(req.ID, pairPrefix) {
		return domain.ErrNotFound
	}
	err := r.put(ctx, toAccessItem(req), "attribute_exists(id)")
	if errors.Is(err, domain.ErrConflict) {
		return domain.ErrNotFound
	}
	return err
}

func (r *AccessRepo) List(ctx context.Context) ([]domain.AccessRequest, error) {
	out := []domain.AccessRequest{}
	err := r.scan(ctx, func(item map[string]types.AttributeValue) error {
		if _, ok := item["requestId"]; ok {
			return nil
		}
		var it accessItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return fmt.Errorf("unmarshal access request: %w", err)
		}
		out = append(out, *it.toDomain())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
