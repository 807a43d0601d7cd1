package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nick/por-s3/api/rest/server"
	"github.com/nick/por-s3/api/rest/v1/routes"
	"github.com/nick/por-s3/internal/compute"
	"github.com/nick/por-s3/internal/config"
	"github.com/nick/por-s3/internal/launcher"
	"github.com/nick/por-s3/internal/registry"
	"github.com/nick/por-s3/internal/repository"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the launch decision service",
	Long: `Consumes ledger upload notifications and launches one compute
instance per matching object. Runs as an AWS Lambda handler when
invoked inside the Lambda runtime, otherwise as an HTTP server
accepting the same S3 notification JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadLaunchConfig()
		logger := log.With("component", "launcher")

		// The launch client needs a region; validation of the full
		// mandatory set happens per event so a misconfigured handler
		// reports rather than crash-loops.
		region := cfg.Region
		if region == "" {
			region = config.DefaultRegion
		}
		ec2Launcher, err := compute.NewEC2Launcher(cmd.Context(), region)
		if err != nil {
			return err
		}

		var runs repository.ProofRunRepository
		if cfg.DatabaseDSN != "" {
			runs, err = repository.Open(cfg.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("open audit database: %w", err)
			}
		}

		var reg *registry.RunRegistry
		if cfg.RedisAddr != "" {
			reg = registry.New(cfg.RedisAddr)
		}

		svc := launcher.NewService(cfg, ec2Launcher, runs, reg, logger)

		if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
			logger.Info("starting lambda handler", "function", cfg.FunctionName)
			lambda.Start(func(ctx context.Context, event events.S3Event) (string, error) {
				launched, err := svc.HandleS3Event(ctx, event)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("launched %d instance(s): %v", len(launched), launched), nil
			})
			return nil
		}

		srv := server.NewServer(serveAddr, svc, runs)
		routes.RegisterRoutes(srv)
		logger.Info("starting HTTP event intake", "addr", serveAddr)
		return srv.Run()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address for HTTP mode")
	rootCmd.AddCommand(serveCmd)
}
