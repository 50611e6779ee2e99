package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"docextract/internal/logger"
)

// Supported OCR engine names.
const (
	EngineTesseract  = "tesseract"
	EngineVision     = "vision"
	EngineDocumentAI = "documentai"
)

type Config struct {
	// HTTP Server Configuration
	HTTPAddr           string
	MaxUploadBytes     int64
	CORSAllowedOrigins []string

	// Extraction Configuration
	OCREngine         string
	OCRLanguage       string
	TextLayerMinChars int
	RenderDPI         float64
	TessdataPrefix    string

	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// OpenAI Configuration
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	OpenAITemperature    float32
	OpenAIEmbeddingModel string

	// Upload Client Configuration
	APIBaseURL    string
	UploadTimeout time.Duration

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		HTTPAddr:                   getEnv("HTTP_ADDR", ":8000"),
		MaxUploadBytes:             getInt64Env("MAX_UPLOAD_BYTES", 20*1024*1024),
		CORSAllowedOrigins:         splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		OCREngine:                  strings.ToLower(getEnv("OCR_ENGINE", EngineTesseract)),
		OCRLanguage:                getEnv("OCR_LANGUAGE", "eng"),
		TextLayerMinChars:          getIntEnv("TEXT_LAYER_MIN_CHARS", 20),
		RenderDPI:                  getFloatEnv("RENDER_DPI", 144),
		TessdataPrefix:             getEnv("TESSDATA_PREFIX", ""),
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:              getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:                getEnv("OPENAI_MODEL", "gpt-4.1-nano"),
		OpenAITemperature:          float32(getFloatEnv("OPENAI_TEMPERATURE", 0.7)),
		OpenAIEmbeddingModel:       getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		APIBaseURL:                 getEnv("API_BASE_URL", "http://localhost:8000"),
		UploadTimeout:              time.Duration(getIntEnv("UPLOAD_TIMEOUT_SECONDS", 120)) * time.Second,
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.OCRLanguage == "" {
		return fmt.Errorf("OCR_LANGUAGE must not be empty")
	}
	if c.TextLayerMinChars <= 0 {
		return fmt.Errorf("TEXT_LAYER_MIN_CHARS must be positive, got %d", c.TextLayerMinChars)
	}
	if c.RenderDPI <= 0 {
		return fmt.Errorf("RENDER_DPI must be positive, got %v", c.RenderDPI)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.UploadTimeout <= 0 {
		return fmt.Errorf("UPLOAD_TIMEOUT_SECONDS must be positive")
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2, got %v", c.OpenAITemperature)
	}
	for _, origin := range c.CORSAllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS entry %q must be * or start with http:// or https://", origin)
		}
	}
	return nil
}

// ValidateEngine checks that name is a supported OCR engine and that the
// settings it needs are present. It runs only for commands that build an
// extraction pipeline.
func (c *Config) ValidateEngine(name string) error {
	switch strings.ToLower(name) {
	case EngineTesseract, EngineVision:
		return nil
	case EngineDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for OCR engine %s", EngineDocumentAI)
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for OCR engine %s", EngineDocumentAI)
		}
		return nil
	default:
		return fmt.Errorf("unknown OCR engine %q (want %s, %s or %s)", name, EngineTesseract, EngineVision, EngineDocumentAI)
	}
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
