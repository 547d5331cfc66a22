// Package ocr recognises text in scanned PDFs by rasterizing pages with
// pdftoppm and running tesseract on each page image.
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"porttariff/internal/config"
	"porttariff/internal/logger"
	"porttariff/internal/port"
)

// pageBreak separates per-page OCR output. Form feeds are not used because
// the quality assessor counts them as unreadable.
const pageBreak = "\n\n"

// Extractor implements port.OCRExtractor.
type Extractor struct {
	cfg    config.OCRConfig
	runner Runner
	logger *zap.Logger
}

// NewExtractor creates an OCR extractor. A nil runner uses ExecRunner.
func NewExtractor(cfg config.OCRConfig, runner Runner, log *zap.Logger) *Extractor {
	log = logger.OrNop(log).Named("ocr")
	if runner == nil {
		runner = ExecRunner{Logger: log}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: runner, logger: log}
}

// ExtractText renders every page and concatenates the recognised text.
// Pages that fail to OCR are skipped; the call fails only when nothing
// could be rendered.
func (e *Extractor) ExtractText(ctx context.Context, content []byte) (port.TextResult, error) {
	tmpDir, err := os.MkdirTemp("", "porttariff-ocr-*")
	if err != nil {
		return port.TextResult{}, fmt.Errorf("ocr.ExtractText: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("failed to remove temp dir", zap.String("dir", tmpDir), zap.Error(rmErr))
		}
	}()

	in := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(in, content, 0o600); err != nil {
		return port.TextResult{}, fmt.Errorf("ocr.ExtractText: %w", err)
	}

	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, in, prefix)
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return port.TextResult{}, fmt.Errorf("ocr.ExtractText: pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	pages, _ := filepath.Glob(prefix + "-*.png")
	sortPages(pages)
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}
	if len(pages) == 0 {
		return port.TextResult{}, fmt.Errorf("ocr.ExtractText: pdftoppm produced no images")
	}

	texts := make([]string, 0, len(pages))
	for _, img := range pages {
		if err := ctx.Err(); err != nil {
			return port.TextResult{}, fmt.Errorf("ocr.ExtractText: %w", err)
		}
		txt, err := e.recognise(ctx, img)
		if err != nil {
			e.logger.Warn("page OCR failed", zap.String("page", filepath.Base(img)), zap.Error(err))
			continue
		}
		texts = append(texts, strings.TrimRight(strings.ReplaceAll(txt, "\f", "\n"), "\n "))
	}

	return port.TextResult{Text: strings.Join(texts, pageBreak), Pages: len(pages)}, nil
}

func (e *Extractor) recognise(ctx context.Context, img string) (string, error) {
	// tesseract <file> stdout -l <lang>
	args := []string{img, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// sortPages orders page-N.png files by page number.
func sortPages(pages []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		n, _ := strconv.Atoi(base[strings.LastIndex(base, "-")+1:])
		return n
	}
	sort.Slice(pages, func(i, j int) bool { return num(pages[i]) < num(pages[j]) })
}
