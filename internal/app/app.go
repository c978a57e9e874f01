// Package app wires configuration into a ready pipeline for the command-line tools and the daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/entity"
	"github.com/joseph-ayodele/claims-tracker/internal/llm"
	"github.com/joseph-ayodele/claims-tracker/internal/llm/gemini"
	"github.com/joseph-ayodele/claims-tracker/internal/llm/openrouter"
	"github.com/joseph-ayodele/claims-tracker/internal/ocr"
	"github.com/joseph-ayodele/claims-tracker/internal/pipeline"
	"github.com/joseph-ayodele/claims-tracker/internal/repository"
	"github.com/joseph-ayodele/claims-tracker/internal/runner"
	"github.com/joseph-ayodele/claims-tracker/internal/scoring"
)

// App holds the long-lived collaborators built from a Config.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Processor *pipeline.Processor
	Runs      repository.RunRepository // nil when opened without a store

	closers []func()
}

type Options struct {
	// WithStore opens the run log and records every run.
	WithStore bool
	// Recorder, when set, also receives every run.
	Recorder pipeline.RunRecorder
}

// New builds the pipeline. Providers are only wired when their credentials are set.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger}

	exec := runner.Exec{}
	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
	}, exec, logger)

	fields, err := a.fieldExtractor(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	scorer := scoring.NewProcessScorer(scoring.Config{
		Command:    cfg.Scoring.PythonBin,
		ScriptPath: cfg.Scoring.ScriptPath,
		Timeout:    cfg.Scoring.Timeout,
	}, exec, logger)

	var recorders []pipeline.RunRecorder
	if opts.WithStore {
		runs, closeStore, err := OpenStore(ctx, cfg.Database, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Runs = runs
		a.closers = append(a.closers, closeStore)
		recorders = append(recorders, runs)
	}
	if opts.Recorder != nil {
		recorders = append(recorders, opts.Recorder)
	}

	a.Processor = pipeline.NewProcessor(logger, extractor, fields, scorer, teeRecorder(recorders))
	return a, nil
}

// Close releases the store and provider clients.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) fieldExtractor(ctx context.Context) (*llm.Orchestrator, error) {
	c := a.Config.LLM
	var (
		direct  llm.Completer
		gateway llm.ModelCompleter
	)
	if c.GeminiAPIKey != "" {
		gcfg := gemini.Config{
			APIKey:      c.GeminiAPIKey,
			BaseURL:     c.GeminiBaseURL,
			Model:       c.GeminiModel,
			Temperature: c.Temperature,
			Timeout:     c.Timeout,
		}
		switch c.GeminiTransport {
		case common.TransportSDK:
			sdk, err := gemini.NewSDKClient(ctx, gcfg, a.Logger)
			if err != nil {
				return nil, common.NewAppError(common.CodeConfig, "create gemini sdk client", err)
			}
			a.closers = append(a.closers, func() {
				if err := sdk.Close(); err != nil {
					a.Logger.Warn("llm.genai.close_failed", "error", err)
				}
			})
			direct = sdk
		default:
			direct = gemini.NewClient(gcfg, a.Logger)
		}
	}
	if c.OpenRouterAPIKey != "" {
		gateway = openrouter.NewClient(openrouter.Config{
			APIKey:      c.OpenRouterAPIKey,
			BaseURL:     c.OpenRouterBaseURL,
			Temperature: c.Temperature,
			Timeout:     c.Timeout,
		}, a.Logger)
	}
	if direct == nil && gateway == nil {
		a.Logger.Warn("llm.providers.none", "hint", "set GEMINI_API_KEY or OPENROUTER_API_KEY")
	}
	return llm.NewOrchestrator(llm.OrchestratorConfig{
		DirectModel:    c.GeminiModel,
		GatewayModels:  []string{c.OpenRouterModel, c.OpenRouterFallbackModel},
		MaxPromptChars: c.MaxPromptChars,
		AttemptTimeout: c.Timeout,
	}, direct, gateway, a.Logger), nil
}

// OpenStore opens Postgres when a DSN is configured, otherwise the embedded SQLite file,
// and makes sure the run_log table exists.
func OpenStore(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (repository.RunRepository, func(), error) {
	if cfg.DSN != "" {
		pool, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
			DialTimeout:     cfg.DialTimeout,
		}, logger)
		if err != nil {
			return nil, nil, common.NewAppError(common.CodeRecording, "open database", err)
		}
		if err := repository.HealthCheck(ctx, pool, cfg.DialTimeout, logger); err != nil {
			repository.Close(pool, logger)
			return nil, nil, common.NewAppError(common.CodeRecording, "ping database", err)
		}
		runs := repository.NewPostgresRunRepository(pool, logger)
		if err := runs.Migrate(ctx); err != nil {
			repository.Close(pool, logger)
			return nil, nil, err
		}
		return runs, func() { repository.Close(pool, logger) }, nil
	}

	db, err := repository.OpenSQLite(ctx, cfg.SQLitePath, logger)
	if err != nil {
		return nil, nil, common.NewAppError(common.CodeRecording, "open sqlite", err)
	}
	runs := repository.NewSQLiteRunRepository(db, logger)
	if err := runs.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return runs, func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close sqlite database", "error", err)
		}
	}, nil
}

type multiRecorder []pipeline.RunRecorder

func teeRecorder(rs []pipeline.RunRecorder) pipeline.RunRecorder {
	switch len(rs) {
	case 0:
		return nil
	case 1:
		return rs[0]
	}
	return multiRecorder(rs)
}

func (m multiRecorder) Record(ctx context.Context, run entity.RunRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger. format is "json" or "text".
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(level)))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}
