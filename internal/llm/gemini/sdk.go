package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// SDKClient is the direct provider over the generative-ai-go client.
type SDKClient struct {
	cfg    Config
	client *genai.Client
	logger *slog.Logger
}

func NewSDKClient(ctx context.Context, cfg Config, logger *slog.Logger) (*SDKClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	cfg = cfg.withDefaults()
	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &SDKClient{cfg: cfg, client: cl, logger: logger}, nil
}

// Model is the model every call is bound to.
func (c *SDKClient) Model() string { return c.cfg.Model }

// Complete implements llm.Completer.
func (c *SDKClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	m := c.client.GenerativeModel(c.cfg.Model)
	m.SetTemperature(c.cfg.Temperature)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.logger.Error("llm.genai.error", "model", c.cfg.Model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	c.logger.Info("llm.genai.response", "model", c.cfg.Model, "elapsed_ms", time.Since(start).Milliseconds())

	text := firstText(resp)
	if text == "" {
		return "", errors.New("missing message content")
	}
	return text, nil
}

// Close releases the underlying connection.
func (c *SDKClient) Close() error {
	return c.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
