package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-tracker/internal/async"
	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/entity"
	"github.com/joseph-ayodele/claims-tracker/internal/pipeline"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", "json")
	require.NoError(t, err)
	logger.Debug("pipeline.run.start", "run_id", "x")
	assert.Contains(t, buf.String(), `"msg":"pipeline.run.start"`)

	_, err = NewLogger(&buf, "loud", "json")
	require.Error(t, err)
	_, err = NewLogger(&buf, "info", "xml")
	require.Error(t, err)
}

func TestNew_WithSQLiteStore(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.Database.DSN = ""
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "runs.db")
	cfg.LLM.GeminiAPIKey = ""
	cfg.LLM.OpenRouterAPIKey = ""
	collector := &Collector{}

	a, err := New(context.Background(), cfg, nil, Options{WithStore: true, Recorder: collector})
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Runs)

	// unsupported documents fail before any external tool runs
	u, err := pipeline.StageUpload(t.TempDir(), "notes.txt", "text/plain", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	_, err = a.Processor.Process(context.Background(), u)
	require.Error(t, err)

	rows, err := a.Runs.ListRecent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "FAILED", rows[0].Status)
	assert.Len(t, collector.Runs(), 1)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.LLM.GeminiTransport = "carrier-pigeon"
	_, err := New(context.Background(), cfg, nil, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

type recorderFunc func(context.Context, entity.RunRecord) error

func (f recorderFunc) Record(ctx context.Context, r entity.RunRecord) error { return f(ctx, r) }

func TestTeeRecorder(t *testing.T) {
	assert.Nil(t, teeRecorder(nil))

	var n atomic.Int32
	ok := recorderFunc(func(context.Context, entity.RunRecord) error { n.Add(1); return nil })
	bad := recorderFunc(func(context.Context, entity.RunRecord) error { n.Add(1); return errors.New("down") })

	err := teeRecorder([]pipeline.RunRecorder{bad, ok}).Record(context.Background(), entity.RunRecord{ID: uuid.New()})
	require.Error(t, err)
	assert.EqualValues(t, 2, n.Load())
}

func TestCollector_SortsByFileName(t *testing.T) {
	c := &Collector{}
	_ = c.Record(context.Background(), entity.RunRecord{FileName: "b.pdf"})
	_ = c.Record(context.Background(), entity.RunRecord{FileName: "a.pdf"})
	runs := c.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, "a.pdf", runs[0].FileName)
}

type docsFunc func(context.Context, *pipeline.Upload) (pipeline.Result, error)

func (f docsFunc) Process(ctx context.Context, u *pipeline.Upload) (pipeline.Result, error) {
	return f(ctx, u)
}

func TestProcessHandler_StagesCopyAndSkipsRepeats(t *testing.T) {
	inbox := t.TempDir()
	src := filepath.Join(inbox, "claim.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.4"), 0o600))

	var (
		calls  int
		staged string
	)
	docs := docsFunc(func(_ context.Context, u *pipeline.Upload) (pipeline.Result, error) {
		calls++
		staged = u.Path
		assert.Equal(t, "claim.pdf", u.OriginalName)
		return pipeline.Result{}, u.Remove()
	})
	h := ProcessHandler(docs, t.TempDir())

	require.NoError(t, h.Handle(context.Background(), async.Job{Path: src}))
	require.NoError(t, h.Handle(context.Background(), async.Job{Path: src}))
	assert.Equal(t, 1, calls)
	assert.NotEqual(t, src, staged)
	assert.FileExists(t, src)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(src, later, later))
	require.NoError(t, h.Handle(context.Background(), async.Job{Path: src}))
	assert.Equal(t, 2, calls)

	err := h.Handle(context.Background(), async.Job{Path: filepath.Join(inbox, "gone.pdf")})
	require.Error(t, err)
}
