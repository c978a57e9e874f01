package async

import (
	"context"
	"time"
)

// Job is one document waiting for a pipeline run.
type Job struct {
	Path        string
	Name        string // original name; defaults to the base of Path
	Mime        string // declared content type; guessed from Path when empty
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler runs one job to completion.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }
