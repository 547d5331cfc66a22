// Command extract runs the extraction and structuring pipeline on local PDF
// files without a database and prints the result as JSON or CSV.
//
// Usage: go run ./cmd/extract [--csv] [--validate] [--no-llm] [--no-ocr] FILE...
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"porttariff/internal/config"
	"porttariff/internal/domain"
	"porttariff/internal/export"
	"porttariff/internal/llm/providers"
	"porttariff/internal/logger"
	"porttariff/internal/ocr"
	"porttariff/internal/pattern"
	"porttariff/internal/pdftext"
	"porttariff/internal/port"
	"porttariff/internal/quality"
	"porttariff/internal/structuring"
	"porttariff/internal/textextract"
	"porttariff/internal/validator"
)

var (
	asCSV    bool
	validate bool
	noLLM    bool
	noOCR    bool
)

// fileReport is the JSON output for one input file.
type fileReport struct {
	File        string                    `json:"file"`
	Error       string                    `json:"error,omitempty"`
	Metadata    domain.DocumentMetadata   `json:"metadata"`
	Extraction  domain.ExtractionResult   `json:"extraction"`
	Structuring domain.StructuringResult  `json:"structuring"`
	Validation  []domain.ValidationResult `json:"validation,omitempty"`
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract FILE...",
		Short: "Extract and structure port tariffs from PDF files",
		Long: `Reads each PDF, extracts its text (escalating to OCR for scanned pages),
structures the tariff lines and prints the result.

Example:
  extract tariffs/singapore-2024.pdf
  extract --csv --no-llm tariffs/*.pdf > tariffs.csv`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         runExtract,
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "Print structured tariffs as CSV instead of JSON")
	cmd.Flags().BoolVar(&validate, "validate", false, "Attach a validation result to every tariff (JSON only)")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Skip the LLM backend and use pattern extraction only")
	cmd.Flags().BoolVar(&noOCR, "no-ocr", false, "Never escalate to OCR")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := pdftext.NewReader(zl)
	var ocrExtractor port.OCRExtractor
	if cfg.OCR.Enabled && !noOCR {
		ocrExtractor = ocr.NewExtractor(cfg.OCR, nil, zl)
	}
	extractor := textextract.NewExtractor(reader, ocrExtractor, quality.NewAssessor(quality.Thresholds{
		Fair:      cfg.Extraction.FairThreshold,
		Good:      cfg.Extraction.GoodThreshold,
		Excellent: cfg.Extraction.ExcellentThreshold,
	}), textextract.Config{
		PrimaryTimeout:      cfg.Extraction.PrimaryTimeout,
		OCRTimeout:          cfg.Extraction.OCRTimeout,
		OCRConfidenceFactor: cfg.Extraction.OCRConfidenceFactor,
	}, zl)

	engine, err := newEngine(cfg, noLLM, zl)
	if err != nil {
		return err
	}
	coordinator := structuring.NewCoordinator(engine, cfg.Structuring.BatchWindow, zl)

	reports := extractAll(ctx, extractor, reader, args, cfg.Extraction.MaxFileSizeBytes(), zl)
	structureAll(ctx, coordinator, reports)

	if validate {
		v := validator.New(cfg.Structuring.AutoImportThreshold)
		for i := range reports {
			for j := range reports[i].Structuring.Tariffs {
				reports[i].Validation = append(reports[i].Validation, v.Validate(&reports[i].Structuring.Tariffs[j]))
			}
		}
	}

	if asCSV {
		return writeCSV(cmd.OutOrStdout(), reports)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// newEngine builds the structuring engine. skipLLM leaves the completer unset
// so every document takes the pattern path.
func newEngine(cfg *config.Config, skipLLM bool, zl *zap.Logger) (*structuring.Engine, error) {
	var completer port.Completer
	if !skipLLM {
		c, err := providers.NewFromConfig(&cfg.LLM, zl)
		if err != nil {
			return nil, fmt.Errorf("initializing llm backend: %w", err)
		}
		completer = c
	}
	return structuring.NewEngine(completer, pattern.NewExtractor(), structuring.Config{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.Structuring.LLMTimeout,
	}, zl), nil
}

func extractAll(ctx context.Context, extractor *textextract.Extractor, reader *pdftext.Reader, paths []string, maxBytes int64, zl *zap.Logger) []fileReport {
	reports := make([]fileReport, len(paths))
	for i, path := range paths {
		reports[i] = fileReport{File: path, Structuring: domain.EmptyStructuringResult()}

		doc, err := textextract.LoadFile(path, maxBytes)
		if err != nil {
			zl.Warn("skipping file", zap.String("file", path), zap.Error(err))
			reports[i].Error = err.Error()
			continue
		}
		reports[i].Metadata = reader.ReadMetadata(doc.Content)
		reports[i].Extraction = extractor.Extract(ctx, doc)
		zl.Info("extracted",
			zap.String("file", filepath.Base(path)),
			zap.String("method", string(reports[i].Extraction.Method)),
			zap.String("quality_tier", string(reports[i].Extraction.QualityTier)),
			zap.Int("pages", reports[i].Extraction.PageCount),
		)
	}
	return reports
}

// structureAll structures every successfully loaded file. Batch ids are the
// report indexes so duplicate paths stay distinct.
func structureAll(ctx context.Context, coordinator *structuring.Coordinator, reports []fileReport) {
	docs := make([]domain.BatchDocument, 0, len(reports))
	for i := range reports {
		if reports[i].Error != "" {
			continue
		}
		docs = append(docs, domain.BatchDocument{ID: strconv.Itoa(i), Text: reports[i].Extraction.Text})
	}
	results := coordinator.StructureBatch(ctx, docs)
	for _, d := range docs {
		i, _ := strconv.Atoi(d.ID)
		reports[i].Structuring = results[d.ID]
	}
}

func writeCSV(out io.Writer, reports []fileReport) error {
	w := export.NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	for i := range reports {
		if err := w.WriteStructured(reports[i].Structuring.Tariffs); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
