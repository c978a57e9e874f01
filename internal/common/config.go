package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Scoring  ScoringConfig  `yaml:"scoring"`
}

// DatabaseConfig holds run-log storage configuration. DSN selects Postgres; otherwise SQLitePath is used.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	SQLitePath      string        `yaml:"sqlite_path"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds daemon configuration
type ServerConfig struct {
	GRPCAddr  string `yaml:"grpc_addr"`
	InboxDir  string `yaml:"inbox_dir"`
	UploadDir string `yaml:"upload_dir"`
	Workers   int    `yaml:"workers"`
}

// OCRConfig holds text extraction configuration
type OCRConfig struct {
	Pdftotext     string `yaml:"pdftotext"`
	Tesseract     string `yaml:"tesseract"`
	TesseractLang string `yaml:"tesseract_lang"`
	TessdataDir   string `yaml:"tessdata_dir"`
}

// LLMConfig holds provider credentials and model selection
type LLMConfig struct {
	GeminiAPIKey            string        `yaml:"gemini_api_key"`
	GeminiModel             string        `yaml:"gemini_model"`
	GeminiBaseURL           string        `yaml:"gemini_base_url"`
	GeminiTransport         string        `yaml:"gemini_transport"`
	OpenRouterAPIKey        string        `yaml:"openrouter_api_key"`
	OpenRouterModel         string        `yaml:"openrouter_model"`
	OpenRouterFallbackModel string        `yaml:"openrouter_fallback_model"`
	OpenRouterBaseURL       string        `yaml:"openrouter_base_url"`
	Temperature             float32       `yaml:"temperature"`
	Timeout                 time.Duration `yaml:"timeout"`
	MaxPromptChars          int           `yaml:"max_prompt_chars"`
}

// ScoringConfig locates the external fraud scorer
type ScoringConfig struct {
	PythonBin  string        `yaml:"python_bin"`
	ScriptPath string        `yaml:"script_path"`
	Timeout    time.Duration `yaml:"timeout"`
}

const (
	TransportREST = "rest"
	TransportSDK  = "sdk"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", "claims.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr:  getEnv("GRPC_ADDR", ":8080"),
			InboxDir:  getEnv("INBOX_DIR", "./inbox"),
			UploadDir: getEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "claims-uploads")),
			Workers:   getEnvAsInt("WORKERS", 4),
		},
		OCR: OCRConfig{
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
		},
		LLM: LLMConfig{
			GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
			GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			GeminiBaseURL:           getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			GeminiTransport:         getEnv("GEMINI_TRANSPORT", TransportREST),
			OpenRouterAPIKey:        getEnv("OPENROUTER_API_KEY", ""),
			OpenRouterModel:         getEnv("OPENROUTER_MODEL", "mistralai/mistral-7b-instruct"),
			OpenRouterFallbackModel: getEnv("OPENROUTER_FALLBACK_MODEL", "google/gemini-2.0-flash-001"),
			OpenRouterBaseURL:       getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Temperature:             getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			Timeout:                 getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
			MaxPromptChars:          getEnvAsInt("MAX_PROMPT_CHARS", 50000),
		},
		Scoring: ScoringConfig{
			PythonBin:  getEnv("PYTHON_BIN", "python"),
			ScriptPath: getEnv("ML_PREDICT_SCRIPT_PATH", filepath.Join("machine", "predict_api.py")),
			Timeout:    getEnvAsDuration("ML_TIMEOUT", 60*time.Second),
		},
	}
}

// LoadConfigFile loads env configuration and overlays the YAML file at path.
// Values present in the file win over the environment.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %s", path), err)
	}
	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration for malformed values.
// Missing provider keys are reported by the orchestrator at call time.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("MAX_PROMPT_CHARS", c.LLM.MaxPromptChars, Positive).
		Field("LLM_TIMEOUT", c.LLM.Timeout, Positive).
		Field("GEMINI_TRANSPORT", c.LLM.GeminiTransport, OneOf(TransportREST, TransportSDK)).
		Field("PYTHON_BIN", c.Scoring.PythonBin, Required).
		Field("ML_PREDICT_SCRIPT_PATH", c.Scoring.ScriptPath, Required).
		Field("WORKERS", c.Server.Workers, Positive)
	if v.HasErrors() {
		return NewConfigError(v.ErrorMessage())
	}
	return nil
}
