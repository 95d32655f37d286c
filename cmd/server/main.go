package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/api"
	"github.com/cobreops/invoice-triage/internal/batch"
	"github.com/cobreops/invoice-triage/internal/config"
	"github.com/cobreops/invoice-triage/internal/extract"
	"github.com/cobreops/invoice-triage/internal/models"
	"github.com/cobreops/invoice-triage/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice triage server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	metrics := &models.ProcessingMetrics{}
	extractor := extract.NewOpenAIExtractor(cfg.Extractor, logger)
	coordinator := batch.NewCoordinator(cfg.Policies, cfg.Processing, extractor, metrics, logger)

	server := api.NewServer(cfg.Server, coordinator, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
