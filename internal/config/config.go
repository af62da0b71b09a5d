// Package config provides centralized configuration management for csvdxf.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
//
// The loaded Config is process-wide; each pipeline run receives an explicit
// copy of the values it needs, so concurrent runs never read ambient state.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Input     InputConfig
	Mapping   MappingConfig
	Inference InferenceConfig
	Drawing   DrawingConfig
	Run       RunConfig
	Store     StoreConfig
	Server    ServerConfig
	Logging   LoggingConfig
}

// InputConfig holds CSV reading settings.
type InputConfig struct {
	// Delimiter is the single field separator (default: ",")
	Delimiter string `env:"CSV_DELIMITER" default:","`

	// Encoding is a WHATWG encoding label: utf-8, windows-1252, shift_jis... (default: utf-8)
	Encoding string `env:"CSV_ENCODING" default:"utf-8"`

	// DecimalSeparator is ".", "," or "auto" (default: auto)
	DecimalSeparator string `env:"CSV_DECIMAL_SEPARATOR" default:"auto"`

	// Sheet selects the worksheet for .xlsx inputs (default: first sheet)
	Sheet string `env:"XLSX_SHEET"`
}

// MappingConfig holds mapping validation thresholds.
type MappingConfig struct {
	// NumericThreshold is the minimum numeric ratio for X, Y and Z columns (default: 0.9)
	NumericThreshold float64 `env:"MAPPING_NUMERIC_THRESHOLD" default:"0.9"`

	// ConfirmConfidence is the confidence below which assignments are flagged (default: 0.5)
	ConfirmConfidence float64 `env:"MAPPING_CONFIRM_CONFIDENCE" default:"0.5"`

	// SampleSize is the number of sample values collected per column (default: 5)
	SampleSize int `env:"PROFILE_SAMPLE_SIZE" default:"5"`
}

// InferenceConfig holds settings for the column-role inference capability.
type InferenceConfig struct {
	// Engine selects the capability: ollama, heuristic or none (default: ollama)
	Engine string `env:"INFERENCE_ENGINE" default:"ollama"`

	// URL is the base URL of the local model server (default: http://localhost:11434)
	URL string `env:"INFERENCE_URL" envAlt:"OLLAMA_HOST" default:"http://localhost:11434"`

	// Model is the model name sent with each request (default: gpt-oss:20b)
	Model string `env:"INFERENCE_MODEL" default:"gpt-oss:20b"`

	// Timeout bounds a single inference attempt (default: 5s)
	Timeout time.Duration `env:"INFERENCE_TIMEOUT" default:"5s"`
}

// DrawingConfig holds geometry and DXF output settings.
type DrawingConfig struct {
	// FlipY negates the vertical axis (default: false)
	FlipY bool `env:"DXF_FLIP_Y" default:"false"`

	// Scale is the uniform scale factor applied to all coordinates (default: 1)
	Scale float64 `env:"DXF_SCALE" default:"1"`

	// DefaultLayer receives entities without a layer value (default: 0)
	DefaultLayer string `env:"DXF_DEFAULT_LAYER" default:"0"`

	// Geometry is "point" or "polyline" (default: point)
	Geometry string `env:"DXF_GEOMETRY" default:"point"`

	// TextHeight is the height of label TEXT entities (default: 2.5)
	TextHeight float64 `env:"DXF_TEXT_HEIGHT" default:"2.5"`
}

// RunConfig holds limits for concurrent conversions.
type RunConfig struct {
	// MaxConcurrent is the maximum number of parallel conversions (default: 4)
	MaxConcurrent int `env:"RUN_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `env:"RUN_MAX_WAIT_TIME" default:"30s"`

	// MaxFileSize is the maximum accepted upload size in bytes (default: 50MB)
	MaxFileSize int64 `env:"RUN_MAX_FILE_SIZE" default:"52428800"`

	// WorkDir holds uploaded files while their run awaits confirmation (default: system temp)
	WorkDir string `env:"RUN_WORK_DIR"`
}

// StoreConfig selects where suspended runs are kept.
type StoreConfig struct {
	// Driver is memory, sqlite or postgres (default: sqlite)
	Driver string `env:"STORE_DRIVER" default:"sqlite"`

	// SQLitePath is the database file for the sqlite driver (default: ./csvdxf.db)
	SQLitePath string `env:"STORE_SQLITE_PATH" default:"./csvdxf.db"`

	// DatabaseURL is the PostgreSQL connection string for the postgres driver
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
