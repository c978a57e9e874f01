package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/claims-tracker/internal/common"
)

var (
	errEmptyContent = errors.New("missing message content")
	errNonJSON      = errors.New("returned non-JSON output")
)

// OrchestratorConfig fixes the attempt order and prompt limits.
type OrchestratorConfig struct {
	DirectModel    string        // identifier suffix for the direct attempt
	GatewayModels  []string      // tried in order after the direct attempt
	MaxPromptChars int           // default 50000
	AttemptTimeout time.Duration // default 120s
}

// Orchestrator tries the direct provider, then each gateway model, and returns the first usable JSON.
type Orchestrator struct {
	cfg     OrchestratorConfig
	direct  Completer
	gateway ModelCompleter
	logger  *slog.Logger
}

// NewOrchestrator wires the providers that have credentials. Pass nil for an unconfigured provider.
func NewOrchestrator(cfg OrchestratorConfig, direct Completer, gateway ModelCompleter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = 50000
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 120 * time.Second
	}
	cfg.GatewayModels = DedupeModels(cfg.GatewayModels...)
	return &Orchestrator{cfg: cfg, direct: direct, gateway: gateway, logger: logger}
}

// Candidates returns the enumerated attempts in order.
func (o *Orchestrator) Candidates() []Candidate {
	var out []Candidate
	if o.direct != nil {
		direct := o.direct
		out = append(out, Candidate{
			ID: fmt.Sprintf("gemini-direct(%s)", o.cfg.DirectModel),
			Invoke: func(ctx context.Context, prompt string) (string, error) {
				return direct.Complete(ctx, SystemInstruction, prompt)
			},
		})
	}
	if o.gateway != nil {
		gateway := o.gateway
		for _, model := range o.cfg.GatewayModels {
			out = append(out, Candidate{
				ID: model,
				Invoke: func(ctx context.Context, prompt string) (string, error) {
					return gateway.CompleteModel(ctx, model, SystemInstruction, prompt)
				},
			})
		}
	}
	return out
}

// Extract turns raw document text into the model's JSON object.
func (o *Orchestrator) Extract(ctx context.Context, rawText string) (Extraction, error) {
	candidates := o.Candidates()
	if len(candidates) == 0 {
		o.logger.Error("llm.extract.not_configured")
		return Extraction{}, common.NewConfigError("Set GEMINI_API_KEY or OPENROUTER_API_KEY")
	}
	text := strings.TrimSpace(rawText)
	if text == "" {
		return Extraction{}, common.NewExtractionError("raw_text is empty", nil)
	}

	truncated := TruncateRunes(text, o.cfg.MaxPromptChars)
	start := time.Now()
	o.logger.Info("llm.extract.start",
		"candidates", len(candidates),
		"text_chars", len([]rune(text)),
		"truncated", truncated != text,
	)

	res, err := FirstJSON(ctx, candidates, BuildDirective(truncated), o.cfg.AttemptTimeout, o.logger)
	if err != nil {
		var agg *AggregateError
		if errors.As(err, &agg) {
			o.logger.Error("llm.extract.all_failed", "attempts", len(agg.Failures), "elapsed_ms", time.Since(start).Milliseconds())
			return res, common.NewUpstreamError("all LLM attempts failed", agg)
		}
		return res, err
	}

	if verr := claimShape().ValidateValue(res.Fields); verr != nil {
		o.logger.Warn("llm.extract.schema_mismatch", "source", res.Source, "error", verr)
	}
	o.logger.Info("llm.extract.ok",
		"source", res.Source,
		"failed_attempts", len(res.Failures),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
