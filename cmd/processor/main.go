package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/batch"
	"github.com/cobreops/invoice-triage/internal/config"
	"github.com/cobreops/invoice-triage/internal/extract"
	"github.com/cobreops/invoice-triage/internal/ingest"
	"github.com/cobreops/invoice-triage/internal/models"
	"github.com/cobreops/invoice-triage/internal/output"
	"github.com/cobreops/invoice-triage/internal/report"
	"github.com/cobreops/invoice-triage/internal/repository"
	"github.com/cobreops/invoice-triage/pkg/database"
	"github.com/cobreops/invoice-triage/pkg/utils"
)

// Options holds the processor command flags.
type Options struct {
	ConfigPath string
	File       string
	Start      int
	End        int
	OutputDir  string
	Quiet      bool
	NoAudit    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "processor [document files...]",
		Short: "Batch invoice triage processor",
		Long: "Processes invoice documents through extraction, validation, risk scoring\n" +
			"and approval routing, writing integration-ready results per invoice.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "configs/config.yaml", "path to configuration file")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "CSV dataset with 'id' and 'content' columns")
	cmd.Flags().IntVar(&opts.Start, "start", 0, "starting row index")
	cmd.Flags().IntVar(&opts.End, "end", -1, "ending row index (exclusive, -1 = all)")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "output directory (overrides config)")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress the summary printout")
	cmd.Flags().BoolVar(&opts.NoAudit, "no-audit", false, "skip writing records to the audit database")

	return cmd
}

func run(ctx context.Context, opts *Options, args []string) error {
	// Credentials may live in a local .env file
	_ = gotenv.Load()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.OutputDir != "" {
		cfg.Report.OutputDir = opts.OutputDir
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	docs, err := loadDocuments(opts, args, logger)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents to process")
	}

	metrics := &models.ProcessingMetrics{}
	extractor := extract.NewOpenAIExtractor(cfg.Extractor, logger)
	coordinator := batch.NewCoordinator(cfg.Policies, cfg.Processing, extractor, metrics, logger)

	// Ctrl-C aborts between invoices; completed records are still written.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, runErr := coordinator.ProcessBatch(ctx, docs)
	if runErr != nil {
		logger.Warn("Batch interrupted", zap.Int("completed", len(records)), zap.Error(runErr))
	}
	if len(records) == 0 {
		return fmt.Errorf("no invoices were processed")
	}

	if !opts.NoAudit {
		if err := persistRecords(cfg, records, logger); err != nil {
			logger.Error("Failed to persist audit records", zap.Error(err))
		}
	}

	integRecords := output.BuildAll(records)

	writer := report.NewJSONWriter(cfg.Report.OutputDir, logger)
	resultsPath, err := writer.Write(integRecords)
	if err != nil {
		return err
	}

	if cfg.Report.ExcelSummary {
		reporter := report.NewExcelReporter(cfg.Report.OutputDir, logger)
		if _, err := reporter.Write(integRecords, metrics.Summary()); err != nil {
			logger.Error("Failed to write Excel summary", zap.Error(err))
		}
	}

	if !opts.Quiet {
		printSummary(metrics.Summary(), resultsPath)
	}

	return nil
}

func loadDocuments(opts *Options, args []string, logger *zap.Logger) ([]batch.Document, error) {
	switch {
	case opts.File != "":
		return ingest.NewCSVLoader(logger).Load(opts.File, opts.Start, opts.End)
	case len(args) > 0:
		return ingest.NewFileLoader(logger).LoadFiles(args)
	default:
		return nil, fmt.Errorf("either --file or document file arguments are required")
	}
}

func persistRecords(cfg *config.Config, records []*models.ProcessingRecord, logger *zap.Logger) error {
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repository.NewRecordRepository(db.DB, logger)
	if err := repo.EnsureSchema(); err != nil {
		return err
	}
	return repo.SaveBatch(records)
}

func printSummary(s models.MetricsSummary, resultsPath string) {
	fmt.Println()
	fmt.Println("INVOICE TRIAGE SUMMARY")
	fmt.Println("======================")
	fmt.Printf("Total processed:    %d\n", s.TotalProcessed)
	fmt.Printf("Auto-approved:      %d (%.1f%%)\n", s.AutoApproved, s.AutoApprovedPct)
	fmt.Printf("Supervisor review:  %d (%.1f%%)\n", s.SupervisorReview, s.SupervisorReviewPct)
	fmt.Printf("Manager review:     %d (%.1f%%)\n", s.ManagerReview, s.ManagerReviewPct)
	fmt.Printf("Executive review:   %d (%.1f%%)\n", s.ExecutiveReview, s.ExecutiveReviewPct)
	fmt.Printf("Rejected:           %d (%.1f%%)\n", s.Rejected, s.RejectedPct)
	fmt.Println()
	fmt.Printf("Validation errors:  %d\n", s.ValidationErrors)
	fmt.Printf("Extraction calls:   %d (%d failed)\n", s.ExtractionCalls, s.ExtractionFailures)
	fmt.Printf("Cache hits:         %d\n", s.CacheHits)
	fmt.Printf("Avg time/invoice:   %.3fs\n", s.AvgProcessingSeconds)
	fmt.Println()
	fmt.Printf("Results file: %s\n", resultsPath)
}
