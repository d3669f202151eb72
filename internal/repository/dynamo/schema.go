package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/equihome/launchpad/internal/pkg/logger"
)

// SchemaAPI is what EnsureTables needs from the DynamoDB client.
type SchemaAPI interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Tables returns the create-table inputs for every collection.
func Tables(prefix string) []*dynamodb.CreateTableInput {
	str := types.ScalarAttributeTypeS
	return []*dynamodb.CreateTableInput{
		{
			TableName:   aws.String(TableName(prefix, AccessTable)),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("id"), AttributeType: str},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			},
		},
		{
			TableName:   aws.String(TableName(prefix, ActivityTable)),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("userId"), AttributeType: str},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("userId"), KeyType: types.KeyTypeHash},
			},
		},
		{
			TableName:   aws.String(TableName(prefix, NewsletterTable)),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("email"), AttributeType: str},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("email"), KeyType: types.KeyTypeHash},
			},
		},
	}
}

// EnsureTables creates any missing table and waits for it to become active.
// Existing tables are left untouched.
func EnsureTables(ctx context.Context, api SchemaAPI, prefix string) error {
	waiter := dynamodb.NewTableExistsWaiter(api)
	for _, in := range Tables(prefix) {
		name := aws.ToString(in.TableName)
		_, err := api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: in.TableName})
		if err == nil {
			logger.Info("dynamodb table exists", "table", name)
			continue
		}
		var nf *types.ResourceNotFoundException
		if !errors.As(err, &nf) {
			return fmt.Errorf("describe %s: %w", name, err)
		}

		if _, err := api.CreateTable(ctx, in); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: in.TableName}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for %s: %w", name, err)
		}
		logger.Info("dynamodb table created", "table", name)
	}
	return nil
}
