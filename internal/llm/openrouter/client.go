package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/claims-tracker/internal/llm"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Config for the OpenRouter gateway.
type Config struct {
	APIKey      string
	BaseURL     string        // default DefaultBaseURL
	Temperature float32       // zero means the default 0.1
	Timeout     time.Duration // http client timeout, default 120s
}

// Client calls the chat/completions endpoint for any model the gateway routes.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Temperature float32   `json:"temperature"`
	Messages    []message `json:"messages"`
}

// CompleteModel implements llm.ModelCompleter.
func (c *Client) CompleteModel(ctx context.Context, model, system, prompt string) (string, error) {
	body := chatRequest{
		Model:       model,
		Temperature: c.cfg.Temperature,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, err := llm.PostJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openrouter response: %w", err)
	}
	if len(cc.Choices) == 0 || strings.TrimSpace(cc.Choices[0].Message.Content) == "" {
		return "", errors.New("missing message content")
	}
	return cc.Choices[0].Message.Content, nil
}
