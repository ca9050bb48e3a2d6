package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/server"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/internal/telemetry"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/quote"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "quenty-carriers",
	Short:   "Quenty Carrier Bridge - Multi-carrier shipping integration service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	metrics := telemetry.NewMetrics()

	// Credential store, seeded from the environment
	store, err := initCredentialStore(cfg, logger)
	if err != nil {
		return err
	}

	// Carrier registry with limiter and breaker composed in
	registry := initCarrierRegistry(cfg, store, logger, tracer)

	// Quotation engine
	engine := quote.NewEngine(registry, logger,
		quote.WithTimeout(cfg.QuoteTimeout),
		quote.WithWeights(quote.Weights{
			Cost:        cfg.RecommendCost,
			Transit:     cfg.RecommendTransit,
			Reliability: cfg.RecommendReliable,
		}),
		quote.WithTracer(tracer),
	)

	// Webhook ingestion
	pipeline := initWebhookPipeline(registry, store, logger)

	logger.Info("Starting Quenty Carrier Bridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
	)

	// Start HTTP server
	srv := server.New(server.Config{
		Port:        cfg.Port,
		Environment: carrier.Environment(cfg.Environment),
	}, registry, engine, store, pipeline, metrics, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
