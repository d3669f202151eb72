// Package storage bootstraps AWS clients and persists admin snapshot
// exports to S3.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/equihome/launchpad/internal/domain"
)

// AWSOptions selects region and credentials. Static keys win over the
// profile; with neither, the default chain (IAM role on ECS) is used.
type AWSOptions struct {
	Region    string
	Profile   string
	AccessKey string
	SecretKey string
}

// LoadAWSConfig loads an aws.Config for the given options.
func LoadAWSConfig(ctx context.Context, o AWSOptions) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	switch {
	case o.AccessKey != "" && o.SecretKey != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, ""),
		))
	case o.Profile != "":
		opts = append(opts, config.WithSharedConfigProfile(o.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// NewDynamoDBClient creates a DynamoDB client. A non-empty endpoint points
// it at DynamoDB Local or LocalStack.
func NewDynamoDBClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// s3API is the subset of the S3 client used for snapshots.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Snapshots stores snapshot exports in one bucket.
type S3Snapshots struct {
	client s3API
	bucket string
}

// NewS3Snapshots creates a snapshot store on bucket.
func NewS3Snapshots(cfg aws.Config, bucket string) *S3Snapshots {
	return &S3Snapshots{client: s3.NewFromConfig(cfg), bucket: bucket}
}

// PutSnapshot uploads body as a JSON object under key.
func (s *S3Snapshots) PutSnapshot(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return domain.Unavailable("put snapshot to s3://"+s.bucket+"/"+key, err)
	}
	return nil
}
