package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/claims-tracker/constants"
	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/runner"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
}

type ExtractionResult struct {
	Text     string
	Pages    int
	Format   constants.DocumentFormat
	Method   string // "pdf-text" | "image-ocr"
	Language string
	Duration time.Duration
	Warnings []string
}

// PageCounter reports the page count of a PDF on disk.
type PageCounter func(path string) (int, error)

type Extractor struct {
	cfg        Config
	runner     runner.Runner
	countPages PageCounter
	logger     *slog.Logger
}

func NewExtractor(cfg Config, r runner.Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = runner.Exec{}
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &Extractor{cfg: cfg, runner: r, countPages: api.PageCountFile, logger: logger}
}

// ExtractFile inspects path and extracts its text.
func (e *Extractor) ExtractFile(ctx context.Context, path, originalName, mime string) (InspectionReport, ExtractionResult, error) {
	report, err := InspectFile(path, originalName, mime)
	if err != nil {
		return InspectionReport{}, ExtractionResult{}, common.NewExtractionError("cannot read uploaded file", err)
	}
	res, err := e.Extract(ctx, path, report)
	return report, res, err
}

// Extract produces trimmed, non-empty text for the branch chosen by report.
func (e *Extractor) Extract(ctx context.Context, path string, report InspectionReport) (ExtractionResult, error) {
	start := time.Now()
	format := report.Format()
	e.logger.Debug("ocr.extract.start", "path", path, "format", format, "size_bytes", report.SizeBytes)

	var (
		res ExtractionResult
		err error
	)
	switch format {
	case constants.FormatPDF:
		res, err = e.extractPDF(ctx, path)
	case constants.FormatImage:
		res, err = e.extractImage(ctx, path)
	default:
		e.logger.Error("ocr.extract.unsupported", "extension", report.Extension, "mime_type", report.MimeType)
		return ExtractionResult{Format: format}, common.NewExtractionError("Unsupported file type", nil)
	}
	res.Format = format
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	e.logger.Info("ocr.extract.ok",
		"method", res.Method,
		"pages", res.Pages,
		"chars", len([]rune(res.Text)),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: "pdf-text"}

	pages, perr := e.countPages(path)
	if perr != nil {
		e.logger.Warn("ocr.pdf.structure_check_failed", "path", path, "error", perr)
		res.Warnings = append(res.Warnings, "pdf structure check: "+perr.Error())
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.logger, nil, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return res, common.NewExtractionError("PDF extraction failed", stderrCause(err, errb))
	}
	raw := string(out)
	if perr != nil || pages == 0 {
		// pdftotext terminates every page with a form feed
		pages = max(1, strings.Count(raw, "\f"))
	}
	res.Pages = pages
	res.Text = Normalize(raw)
	if res.Text == "" {
		return res, common.NewExtractionError("PDF parsed but text is empty", nil)
	}
	return res, nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: "image-ocr", Pages: 1, Language: e.cfg.TesseractLang}

	// tesseract <img> stdout -l eng [--tessdata-dir DIR]
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	out, errb, err := e.runner.Run(ctx, e.logger, nil, e.cfg.Tesseract, args...)
	if err != nil {
		return res, common.NewExtractionError("Image OCR failed", stderrCause(err, errb))
	}
	res.Text = Normalize(string(out))
	if res.Text == "" {
		return res, common.NewExtractionError("Image OCR extracted empty text", nil)
	}
	return res, nil
}

func stderrCause(err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, runner.Truncate(msg, 512))
}
