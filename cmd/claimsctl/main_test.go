package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("UPLOAD_DIR", t.TempDir())
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "runs.db"))
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestInspectCommand(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "claim.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("%PDF-1.7\n"), 0o600))

	out, err := runCLI(t, "--no-store", "inspect", doc)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, true, report["is_pdf"])
	assert.Equal(t, ".pdf", report["extension"])
	assert.FileExists(t, doc)
}

func TestProcessCommand_UnsupportedRecordsRun(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(doc, []byte("hello"), 0o600))

	_, err := runCLI(t, "process", doc)
	require.Error(t, err)

	var buf bytes.Buffer
	writeFailure(&buf, err)
	var f failure
	require.NoError(t, json.Unmarshal(buf.Bytes(), &f))
	assert.Equal(t, "validate_document", f.Step)
	assert.Equal(t, "external", f.Class)
	assert.Equal(t, 502, f.HTTPStatus)
}

func TestBatchCommand_RequiresDir(t *testing.T) {
	_, err := runCLI(t, "--no-store", "batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--dir is required")
}

func TestBatchCommand_WritesReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("skip"), 0o600))
	out := filepath.Join(t.TempDir(), "report.xlsx")

	stdout, err := runCLI(t, "--no-store", "batch", "--dir", dir, "--out", out, "--workers", "2")
	require.NoError(t, err)

	var s batchSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &s))
	assert.Zero(t, s.Matched)
	assert.FileExists(t, out)
}

func TestRunsCommand_RejectsNoStore(t *testing.T) {
	_, err := runCLI(t, "--no-store", "runs")
	require.Error(t, err)
}
