package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-marketplace-api/internal/config"
)

func lambdaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Run the API as an AWS Lambda behind API Gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runLambda(cmd.Context(), cfg)
		},
	}
}

func runLambda(ctx context.Context, cfg *config.Config) error {
	a, _, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	adapter := ginadapter.New(a.Router())
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
	return nil
}
