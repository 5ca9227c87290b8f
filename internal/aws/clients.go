package aws

import (
	"context"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// ClientOptions selects the region and an optional endpoint override (LocalStack, DynamoDB Local).
type ClientOptions struct {
	Region   string
	Endpoint string
}

// AWSClients bundles all service clients for convenience.
type AWSClients struct {
	DynamoDB   *dynamodb.Client
	SQS        SQSAPI
	CloudWatch CloudWatchAPI
}

// NewAWSClients loads AWS config and returns concrete service clients that implement our interfaces.
func NewAWSClients(ctx context.Context, opts ClientOptions) (*AWSClients, error) {
	cfg, err := LoadAWSConfig(ctx, opts.Region)
	if err != nil {
		return nil, err
	}

	var endpoint *string
	if opts.Endpoint != "" {
		endpoint = sdkaws.String(opts.Endpoint)
	}

	return &AWSClients{
		DynamoDB: dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = endpoint
		}),
		SQS: sqs.NewFromConfig(cfg, func(o *sqs.Options) {
			o.BaseEndpoint = endpoint
		}),
		CloudWatch: cloudwatch.NewFromConfig(cfg, func(o *cloudwatch.Options) {
			o.BaseEndpoint = endpoint
		}),
	}, nil
}
