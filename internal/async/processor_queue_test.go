package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-tracker/internal/common"
)

func TestProcessorQueue_DrainsOnShutdown(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	h := HandlerFunc(func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.Path)
		return nil
	})
	q := NewProcessorQueue(h, nil, WithWorkers(2), WithQueueSize(8))

	for _, p := range []string{"a.pdf", "b.png", "c.jpg"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	assert.ElementsMatch(t, []string{"a.pdf", "b.png", "c.jpg"}, seen)
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "late.pdf"}), ErrQueueClosed)
}

func TestProcessorQueue_HandlerErrorsDoNotStopWorkers(t *testing.T) {
	var n atomic.Int32
	h := HandlerFunc(func(context.Context, Job) error {
		n.Add(1)
		return errors.New("boom")
	})
	q := NewProcessorQueue(h, nil, WithWorkers(1))
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: "x.pdf"}))
	}
	q.Shutdown(context.Background())
	assert.EqualValues(t, 3, n.Load())
}

func TestProcessorQueue_PropagatesTraceAndTimeout(t *testing.T) {
	got := make(chan string, 1)
	h := HandlerFunc(func(ctx context.Context, _ Job) error {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			return errors.New("no deadline")
		}
		got <- common.RequestIDFromContext(ctx)
		return nil
	})
	q := NewProcessorQueue(h, nil, WithWorkers(1), WithProcessTimeout(time.Second))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "x.pdf", TraceID: "trace-7"}))
	q.Shutdown(context.Background())

	select {
	case id := <-got:
		assert.Equal(t, "trace-7", id)
	default:
		t.Fatal("handler did not run")
	}
}

func TestProcessorQueue_EnqueueRespectsContextWhenFull(t *testing.T) {
	release := make(chan struct{})
	h := HandlerFunc(func(context.Context, Job) error {
		<-release
		return nil
	})
	q := NewProcessorQueue(h, nil, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(release)
		q.Shutdown(context.Background())
	}()

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1"}))
	// the worker may or may not have taken job 1 yet; fill until blocked
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = q.Enqueue(ctx, Job{Path: "n"})
	}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
