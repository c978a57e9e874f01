package llm

import "context"

// Completer is a provider bound to a single model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ModelCompleter is a provider that routes each call to a named model.
type ModelCompleter interface {
	CompleteModel(ctx context.Context, model, system, prompt string) (string, error)
}

// Candidate is one enumerated provider attempt.
type Candidate struct {
	ID     string
	Invoke func(ctx context.Context, prompt string) (string, error)
}

// AttemptFailure records why a candidate was skipped.
type AttemptFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Extraction is the first usable JSON object produced by a candidate.
type Extraction struct {
	Fields   map[string]any
	Source   string
	Failures []AttemptFailure
}

// FieldExtractor is the interface the pipeline depends on.
type FieldExtractor interface {
	Extract(ctx context.Context, rawText string) (Extraction, error)
}
