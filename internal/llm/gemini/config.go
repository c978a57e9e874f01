package gemini

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
)

// Config for the direct Gemini provider.
type Config struct {
	APIKey      string
	BaseURL     string        // default DefaultBaseURL
	Model       string        // default DefaultModel
	Temperature float32       // 0.1 keeps extraction deterministic; zero means the default
	Timeout     time.Duration // http client timeout
}

// Client calls the generateContent REST endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.1
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	return c
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Model is the model every call is bound to.
func (c *Client) Model() string { return c.cfg.Model }
