package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"porttariff/internal/config"
	"porttariff/internal/handler"
	"porttariff/internal/llm/providers"
	"porttariff/internal/logger"
	"porttariff/internal/notify/noop"
	sesnotify "porttariff/internal/notify/ses"
	"porttariff/internal/ocr"
	"porttariff/internal/pattern"
	"porttariff/internal/pdftext"
	"porttariff/internal/port"
	"porttariff/internal/quality"
	"porttariff/internal/repository/postgres"
	"porttariff/internal/router"
	"porttariff/internal/service"
	s3storage "porttariff/internal/storage/s3"
	"porttariff/internal/structuring"
	"porttariff/internal/textextract"
	"porttariff/internal/validator"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	maxBytes := cfg.Extraction.MaxFileSizeBytes()

	// Initialize repositories
	tariffRepo := postgres.NewTariffRepo(db)

	// Initialize storage
	var storage port.ObjectStorage
	if cfg.S3.Bucket != "" {
		storage, err = s3storage.NewS3Client(&cfg.S3, maxBytes)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	notifier, err := newNotifier(&cfg.Email, zl)
	if err != nil {
		return err
	}

	// Extraction
	reader := pdftext.NewReader(zl)
	var ocrExtractor port.OCRExtractor
	if cfg.OCR.Enabled {
		ocrExtractor = ocr.NewExtractor(cfg.OCR, nil, zl)
	}
	assessor := quality.NewAssessor(quality.Thresholds{
		Fair:      cfg.Extraction.FairThreshold,
		Good:      cfg.Extraction.GoodThreshold,
		Excellent: cfg.Extraction.ExcellentThreshold,
	})
	extractor := textextract.NewExtractor(reader, ocrExtractor, assessor, textextract.Config{
		PrimaryTimeout:      cfg.Extraction.PrimaryTimeout,
		OCRTimeout:          cfg.Extraction.OCRTimeout,
		OCRConfidenceFactor: cfg.Extraction.OCRConfidenceFactor,
	}, zl)

	// Structuring
	engine, completer, err := newEngine(cfg, zl)
	if err != nil {
		return err
	}
	if completer == nil {
		zl.Warn("no llm api key configured; structuring uses pattern extraction only")
	}
	coordinator := structuring.NewCoordinator(engine, cfg.Structuring.BatchWindow, zl)

	// Initialize services
	ingestionSvc := service.NewIngestionService(
		extractor, reader, engine,
		validator.New(cfg.Structuring.AutoImportThreshold),
		tariffRepo, storage, notifier,
		service.IngestionConfig{
			MaxFileSizeBytes:    maxBytes,
			AutoImportThreshold: cfg.Structuring.AutoImportThreshold,
			Bucket:              cfg.S3.Bucket,
			Archive:             cfg.S3.Archive && storage != nil,
		},
		zl,
	)

	// Initialize handlers
	healthH := handler.NewHealthHandler(db)
	tariffH := handler.NewTariffHandler(ingestionSvc, maxBytes)
	structureH := handler.NewStructureHandler(engine, coordinator)

	// Setup router
	r := router.Setup(zl, cfg.Server.CORSOrigins, healthH, tariffH, structureH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
			zap.Bool("llm_enabled", completer != nil),
			zap.Bool("ocr_enabled", cfg.OCR.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// newEngine builds the structuring engine over the configured completion
// chain. The returned completer is nil when no API key is configured.
func newEngine(cfg *config.Config, zl *zap.Logger) (*structuring.Engine, port.Completer, error) {
	completer, err := providers.NewFromConfig(&cfg.LLM, zl)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize llm backend: %w", err)
	}
	engine := structuring.NewEngine(completer, pattern.NewExtractor(), structuring.Config{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.Structuring.LLMTimeout,
	}, zl)
	return engine, completer, nil
}

func newNotifier(cfg *config.EmailConfig, zl *zap.Logger) (port.ReviewNotifier, error) {
	switch cfg.Provider {
	case "ses":
		n, err := sesnotify.NewSESNotifier(cfg.Region, cfg.FromAddress, cfg.FromName, cfg.FrontendURL, cfg.Reviewers)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES notifier: %w", err)
		}
		return n, nil
	default:
		return noop.NewNoopNotifier(zl), nil
	}
}
