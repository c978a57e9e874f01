package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// AggregateError lists every failed attempt in the order tried.
type AggregateError struct {
	Failures []AttemptFailure
}

func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.ID+": "+f.Reason)
	}
	return strings.Join(parts, " | ")
}

// FirstJSON invokes candidates in order and returns the first response that parses to a JSON object.
// Each invocation gets its own timeout; transport, timeout and parse failures move on to the next candidate.
func FirstJSON(ctx context.Context, candidates []Candidate, prompt string, timeout time.Duration, logger *slog.Logger) (Extraction, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var failures []AttemptFailure
	for i, c := range candidates {
		start := time.Now()
		fields, err := invoke(ctx, c, prompt, timeout)
		if err != nil {
			logger.Warn("llm.attempt.failed",
				"attempt", i+1,
				"candidate", c.ID,
				"error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			failures = append(failures, AttemptFailure{ID: c.ID, Reason: err.Error()})
			continue
		}
		logger.Info("llm.attempt.ok",
			"attempt", i+1,
			"candidate", c.ID,
			"fields", len(fields),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Extraction{Fields: fields, Source: c.ID, Failures: failures}, nil
	}
	return Extraction{Failures: failures}, &AggregateError{Failures: failures}
}

func invoke(ctx context.Context, c Candidate, prompt string, timeout time.Duration) (map[string]any, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	text, err := c.Invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errEmptyContent
	}
	fields, err := ExtractJSONObject(text)
	if err != nil {
		return nil, errNonJSON
	}
	return fields, nil
}
