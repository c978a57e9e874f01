package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/claims-tracker/internal/claims"
	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/runner"
)

// Prediction is the scorer verdict.
type Prediction struct {
	Label       string  `json:"prediction"`
	Probability float64 `json:"probability"`
}

// IsFraudulent reports whether the label is the fraud literal.
func (p Prediction) IsFraudulent() bool { return p.Label == LabelFraud }

// Scorer is the interface the pipeline depends on.
type Scorer interface {
	Score(ctx context.Context, instance claims.FraudModelInstance) (Prediction, error)
}

type Config struct {
	Command    string        // interpreter, default "python"
	ScriptPath string        // default machine/predict_api.py, resolved against the working directory
	Timeout    time.Duration // default 60s
}

// ProcessScorer starts one scorer process per request and talks JSON over stdio.
type ProcessScorer struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

func NewProcessScorer(cfg Config, r runner.Runner, logger *slog.Logger) *ProcessScorer {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = runner.Exec{}
	}
	if cfg.Command == "" {
		cfg.Command = "python"
	}
	if cfg.ScriptPath == "" {
		cfg.ScriptPath = filepath.Join("machine", "predict_api.py")
	}
	if abs, err := filepath.Abs(cfg.ScriptPath); err == nil {
		cfg.ScriptPath = abs
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &ProcessScorer{cfg: cfg, runner: r, logger: logger}
}

type exitCoder interface {
	ExitCode() int
}

// Score writes {"instance": ...} to the scorer's stdin and parses its single JSON reply.
func (s *ProcessScorer) Score(ctx context.Context, instance claims.FraudModelInstance) (Prediction, error) {
	start := time.Now()

	body, err := json.Marshal(map[string]any{"instance": instance})
	if err != nil {
		return Prediction{}, common.NewScoringError("encode instance", err)
	}
	if err := validateInstance(instance); err != nil {
		return Prediction{}, common.NewScoringError("invalid feature vector", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	stdout, stderr, err := s.runner.Run(ctx, s.logger, body, s.cfg.Command, s.cfg.ScriptPath)
	if err != nil {
		return Prediction{}, s.processError(ctx, err, stderr)
	}

	p, err := ParseVerdict(stdout)
	if err != nil {
		s.logger.Error("scoring.parse_failed", "error", err, "stdout", runner.Truncate(string(stdout), 512))
		return Prediction{}, err
	}
	s.logger.Info("scoring.ok",
		"prediction", p.Label,
		"probability", p.Probability,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return p, nil
}

func (s *ProcessScorer) processError(ctx context.Context, err error, stderr []byte) error {
	if ctx.Err() != nil {
		return common.NewScoringError(fmt.Sprintf("ML process timed out after %s", s.cfg.Timeout), ctx.Err())
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = "unknown error"
		}
		return common.NewScoringError(fmt.Sprintf("ML process exited with code %d: %s", ec.ExitCode(), runner.Truncate(msg, 2048)), nil)
	}
	return common.NewScoringError("Failed to start ML process", err)
}

// ParseVerdict validates the scorer's trimmed stdout.
func ParseVerdict(stdout []byte) (Prediction, error) {
	var doc any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(stdout))), &doc); err != nil {
		return Prediction{}, common.NewScoringError("Failed to parse ML output", err)
	}
	if err := verdictSchema().ValidateValue(doc); err != nil {
		return Prediction{}, common.NewScoringError("Invalid prediction payload from ML service", err)
	}
	m := doc.(map[string]any)

	prob, ok := probability(m["probability"])
	if !ok {
		return Prediction{}, common.NewScoringError("Invalid probability from ML service", nil)
	}
	return Prediction{Label: m["prediction"].(string), Probability: prob}, nil
}

func probability(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 1 {
		return 0, false
	}
	return f, true
}

func validateInstance(instance claims.FraudModelInstance) error {
	b, err := json.Marshal(instance)
	if err != nil {
		return err
	}
	return instanceSchema().Validate(b)
}
