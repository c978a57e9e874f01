package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/llm"
	"github.com/joseph-ayodele/claims-tracker/internal/llm/gemini"
	"github.com/joseph-ayodele/claims-tracker/internal/llm/openrouter"
)

type chatReq struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return string(b)
}

func geminiReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}}},
	})
	return string(b)
}

// gatewayServer answers per model; unknown models get a 500.
func gatewayServer(t *testing.T, replies map[string]string, seen *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*seen = append(*seen, req.Model)
		reply, ok := replies[req.Model]
		if !ok {
			http.Error(w, "model overloaded", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(chatReply(reply)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOrchestrator_NoCredentials(t *testing.T) {
	o := llm.NewOrchestrator(llm.OrchestratorConfig{GatewayModels: []string{"m1"}}, nil, nil, nil)
	_, err := o.Extract(context.Background(), "claim text")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfiguration)
	assert.Contains(t, err.Error(), "Set GEMINI_API_KEY or OPENROUTER_API_KEY")
	assert.Empty(t, o.Candidates())
}

func TestOrchestrator_EmptyText(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { atomic.AddInt32(&hits, 1) }))
	defer srv.Close()
	gw := openrouter.NewClient(openrouter.Config{APIKey: "k", BaseURL: srv.URL}, nil)
	o := llm.NewOrchestrator(llm.OrchestratorConfig{GatewayModels: []string{"m1"}}, nil, gw, nil)

	_, err := o.Extract(context.Background(), " \n\t")
	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestOrchestrator_GatewayFallback(t *testing.T) {
	var seen []string
	srv := gatewayServer(t, map[string]string{
		"fallback/model": "```json\n{\"Patient_ID\":\"P-9\",\"Claim_Amount\":\"$1,200\"}\n```",
	}, &seen)
	gw := openrouter.NewClient(openrouter.Config{APIKey: "k", BaseURL: srv.URL}, nil)
	o := llm.NewOrchestrator(llm.OrchestratorConfig{
		GatewayModels: []string{"primary/model", "fallback/model", "primary/model"},
	}, nil, gw, nil)

	res, err := o.Extract(context.Background(), "Patient P-9 billed $1,200")
	require.NoError(t, err)
	assert.Equal(t, "fallback/model", res.Source)
	assert.Equal(t, "P-9", res.Fields["Patient_ID"])
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "primary/model", res.Failures[0].ID)
	assert.Contains(t, res.Failures[0].Reason, "500")
	assert.Equal(t, []string{"primary/model", "fallback/model"}, seen)
}

func TestOrchestrator_DirectWinsFirst(t *testing.T) {
	var gatewayHits []string
	gwSrv := gatewayServer(t, map[string]string{"m1": `{"x":1}`}, &gatewayHits)

	var gotKey, gotPath string
	var body map[string]any
	directSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(geminiReply(`{"Diagnosis_Code":"J18.9"}`)))
	}))
	defer directSrv.Close()

	direct := gemini.NewClient(gemini.Config{APIKey: "secret", BaseURL: directSrv.URL, Model: "gemini-2.0-flash"}, nil)
	gw := openrouter.NewClient(openrouter.Config{APIKey: "k", BaseURL: gwSrv.URL}, nil)
	o := llm.NewOrchestrator(llm.OrchestratorConfig{DirectModel: direct.Model(), GatewayModels: []string{"m1"}}, direct, gw, nil)

	res, err := o.Extract(context.Background(), "pneumonia")
	require.NoError(t, err)
	assert.Equal(t, "gemini-direct(gemini-2.0-flash)", res.Source)
	assert.Equal(t, "J18.9", res.Fields["Diagnosis_Code"])
	assert.Empty(t, res.Failures)
	assert.Empty(t, gatewayHits)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	gen, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.1, gen["temperature"], 1e-6)
}

func TestOrchestrator_AllFail(t *testing.T) {
	directSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geminiReply("I cannot help with that.")))
	}))
	defer directSrv.Close()
	var seen []string
	gwSrv := gatewayServer(t, map[string]string{"m2": "still not json"}, &seen)

	direct := gemini.NewClient(gemini.Config{APIKey: "k", BaseURL: directSrv.URL, Model: "g"}, nil)
	gw := openrouter.NewClient(openrouter.Config{APIKey: "k", BaseURL: gwSrv.URL}, nil)
	o := llm.NewOrchestrator(llm.OrchestratorConfig{DirectModel: "g", GatewayModels: []string{"m1", "m2"}}, direct, gw, nil)

	_, err := o.Extract(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstreamProvider)

	var agg *llm.AggregateError
	require.ErrorAs(t, err, &agg)
	ids := make([]string, 0, len(agg.Failures))
	for _, f := range agg.Failures {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"gemini-direct(g)", "m1", "m2"}, ids)
	msg := agg.Error()
	assert.True(t, strings.Index(msg, "gemini-direct(g)") < strings.Index(msg, "m1: "))
	assert.Contains(t, msg, "m2: returned non-JSON output")
	assert.Equal(t, common.FailureExternal, common.Classify(err))
}

func TestOrchestrator_TruncatesPrompt(t *testing.T) {
	var user string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, llm.SystemInstruction, req.Messages[0].Content)
			user = req.Messages[1].Content
		}
		_, _ = w.Write([]byte(chatReply(`{}`)))
	}))
	defer srv.Close()
	gw := openrouter.NewClient(openrouter.Config{APIKey: "k", BaseURL: srv.URL}, nil)
	o := llm.NewOrchestrator(llm.OrchestratorConfig{GatewayModels: []string{"m"}, MaxPromptChars: 5}, nil, gw, nil)

	_, err := o.Extract(context.Background(), "ABCDEFGHIJ")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(user, "INPUT TEXT:\nABCDE"))
}
