package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_RequestShape(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "k-1", r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":1}"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k-1", BaseURL: srv.URL}, nil)
	text, err := c.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
	assert.Equal(t, DefaultModel, c.Model())
	require.Len(t, got.SystemInstruction.Parts, 1)
	assert.Equal(t, "sys", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "prompt", got.Contents[0].Parts[0].Text)
	assert.InDelta(t, 0.1, got.GenerationConfig.Temperature, 1e-6)
}

func TestComplete_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "missing message content"},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":" "}]}}]}`, "missing message content"},
		{"bad json", http.StatusOK, `<html>`, "decode gemini response"},
		{"quota", http.StatusTooManyRequests, `{"error":"quota"}`, "non-2xx status: 429"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
			_, err := c.Complete(context.Background(), "s", "p")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
