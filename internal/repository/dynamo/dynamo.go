// Package dynamo implements the Launchpad repositories on DynamoDB.
//
// Each collection lives in its own table named <prefix><collection>.
// Items are marshalled with attributevalue; timestamps are stored as
// RFC 3339 strings so they sort lexically.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/equihome/launchpad/internal/domain"
)

// API is the subset of the DynamoDB client the repositories use.
// *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Table names relative to the configured prefix.
const (
	AccessTable     = "access_requests"
	ActivityTable   = "activity"
	NewsletterTable = "newsletter"
)

// TableName joins prefix and a table constant.
func TableName(prefix, table string) string {
	return prefix + table
}

type table struct {
	api  API
	name string
}

// Ping checks the table exists and is reachable.
func (t table) Ping(ctx context.Context) error {
	_, err := t.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.name)})
	if err != nil {
		return domain.Unavailable("describe table "+t.name, err)
	}
	return nil
}

func (t table) get(ctx context.Context, key map[string]types.AttributeValue, out any) error {
	res, err := t.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.name),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return classify("get item from "+t.name, err)
	}
	if len(res.Item) == 0 {
		return domain.ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item from %s: %w", t.name, err)
	}
	return nil
}

func (t table) put(ctx context.Context, item any, condition string) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item for %s: %w", t.name, err)
	}
	in := &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      av,
	}
	if condition != "" {
		in.ConditionExpression = aws.String(condition)
	}
	_, err = t.api.PutItem(ctx, in)
	return classify("put item to "+t.name, err)
}

// scan reads every item, following pagination.
func (t table) scan(ctx context.Context, each func(map[string]types.AttributeValue) error) error {
	p := dynamodb.NewScanPaginator(t.api, &dynamodb.ScanInput{TableName: aws.String(t.name)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return classify("scan "+t.name, err)
		}
		for _, item := range page.Items {
			if err := each(item); err != nil {
				return err
			}
		}
	}
	return nil
}

// classify maps SDK errors onto domain errors. A failed condition, alone
// or inside a cancelled transaction, is a conflict. Everything else from
// the service is treated as transient.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return fmt.Errorf("%s: %w", op, domain.ErrConflict)
			}
		}
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.Unavailable(op, err)
}

func stringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{name: &types.AttributeValueMemberS{Value: value}}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	if t.IsZero() {
		return nil
	}
	return &t
}
