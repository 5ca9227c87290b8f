package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-marketplace-api/internal/app"
	"github.com/imrishuroy/go-marketplace-api/internal/config"
	"github.com/imrishuroy/go-marketplace-api/internal/logging"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marketplace",
		Short: "Marketplace API: catalogue, checkout and order management",
		Long: `Runs the marketplace API.

Without a subcommand the API runs as a local HTTP server when RUN_LOCAL=true
and as an AWS Lambda handler otherwise.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.RunLocal {
				return runServe(cmd.Context(), cfg)
			}
			return runLambda(cmd.Context(), cfg)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(lambdaCmd())
	cmd.AddCommand(createTablesCmd())
	return cmd
}

// build validates cfg and wires the API.
func build(ctx context.Context, cfg *config.Config) (*app.App, *slog.Logger, error) {
	log := logging.New(os.Stdout, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	a, err := app.New(ctx, cfg, app.Options{Log: log})
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}
