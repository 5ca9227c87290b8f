package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-marketplace-api/internal/app"
	"github.com/imrishuroy/go-marketplace-api/internal/aws"
	"github.com/imrishuroy/go-marketplace-api/internal/config"
)

func createTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-tables",
		Short: "Create the DynamoDB tables if they do not exist",
		Long: `Creates the products, orders, users and transactions tables with
on-demand billing. Point AWS_ENDPOINT_OVERRIDE at DynamoDB Local or
LocalStack for development.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			clients, err := aws.NewAWSClients(cmd.Context(), aws.ClientOptions{Region: cfg.AWSRegion, Endpoint: cfg.AWSEndpoint})
			if err != nil {
				return fmt.Errorf("init aws clients: %w", err)
			}
			created, err := aws.EnsureTables(cmd.Context(), clients.DynamoDB, app.Tables(cfg))
			if err != nil {
				return err
			}
			if len(created) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "all tables already exist")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created:", strings.Join(created, ", "))
			return nil
		},
	}
}
