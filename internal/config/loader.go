package config

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated from the struct tag defaults only,
// ignoring the environment. Tests and library callers use it as a baseline.
func Default() *Config {
	cfg := &Config{}
	// Defaults are static and known to parse.
	_ = loadDefaults(reflect.ValueOf(cfg).Elem())
	return cfg
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// loadDefaults populates fields from their default tags only.
func loadDefaults(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if field.Type.Kind() == reflect.Struct {
			if err := loadDefaults(fieldVal); err != nil {
				return err
			}
			continue
		}
		if def := field.Tag.Get("default"); def != "" {
			if err := setField(fieldVal, def); err != nil {
				return fmt.Errorf("default for %s: %w", field.Name, err)
			}
		}
	}
	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Input validation
	if utf8.RuneCountInString(c.Input.Delimiter) != 1 {
		errs = append(errs, fmt.Sprintf("CSV_DELIMITER (%q) must be a single character", c.Input.Delimiter))
	} else if r, _ := utf8.DecodeRuneInString(c.Input.Delimiter); r == '"' || r == '\r' || r == '\n' {
		errs = append(errs, fmt.Sprintf("CSV_DELIMITER (%q) cannot be a quote or newline", c.Input.Delimiter))
	}
	if strings.TrimSpace(c.Input.Encoding) == "" {
		errs = append(errs, "CSV_ENCODING is required")
	}
	switch c.Input.DecimalSeparator {
	case ".", ",", "auto":
	default:
		errs = append(errs, fmt.Sprintf("CSV_DECIMAL_SEPARATOR (%q) must be one of: ., \",\", auto", c.Input.DecimalSeparator))
	}

	// Mapping validation
	if c.Mapping.NumericThreshold <= 0 || c.Mapping.NumericThreshold > 1 {
		errs = append(errs, fmt.Sprintf("MAPPING_NUMERIC_THRESHOLD (%g) must be in (0, 1]", c.Mapping.NumericThreshold))
	}
	if c.Mapping.ConfirmConfidence < 0 || c.Mapping.ConfirmConfidence > 1 {
		errs = append(errs, fmt.Sprintf("MAPPING_CONFIRM_CONFIDENCE (%g) must be in [0, 1]", c.Mapping.ConfirmConfidence))
	}
	if c.Mapping.SampleSize <= 0 {
		errs = append(errs, "PROFILE_SAMPLE_SIZE must be positive")
	}

	// Inference validation
	validEngines := map[string]bool{"ollama": true, "heuristic": true, "none": true}
	if !validEngines[strings.ToLower(c.Inference.Engine)] {
		errs = append(errs, fmt.Sprintf("INFERENCE_ENGINE (%q) must be one of: ollama, heuristic, none", c.Inference.Engine))
	}
	if strings.EqualFold(c.Inference.Engine, "ollama") && c.Inference.URL == "" {
		errs = append(errs, "INFERENCE_URL is required for the ollama engine")
	}
	if c.Inference.Timeout <= 0 {
		errs = append(errs, "INFERENCE_TIMEOUT must be positive")
	}

	// Drawing validation
	if c.Drawing.Scale <= 0 || math.IsInf(c.Drawing.Scale, 0) || math.IsNaN(c.Drawing.Scale) {
		errs = append(errs, "DXF_SCALE must be a positive number")
	}
	if strings.TrimSpace(c.Drawing.DefaultLayer) == "" {
		errs = append(errs, "DXF_DEFAULT_LAYER is required")
	}
	validGeometry := map[string]bool{"point": true, "polyline": true}
	if !validGeometry[strings.ToLower(c.Drawing.Geometry)] {
		errs = append(errs, fmt.Sprintf("DXF_GEOMETRY (%q) must be one of: point, polyline", c.Drawing.Geometry))
	}
	if c.Drawing.TextHeight <= 0 {
		errs = append(errs, "DXF_TEXT_HEIGHT must be positive")
	}

	// Run validation
	if c.Run.MaxConcurrent <= 0 {
		errs = append(errs, "RUN_MAX_CONCURRENT must be positive")
	}
	if c.Run.MaxWaitTime <= 0 {
		errs = append(errs, "RUN_MAX_WAIT_TIME must be positive")
	}
	if c.Run.MaxFileSize <= 0 {
		errs = append(errs, "RUN_MAX_FILE_SIZE must be positive")
	}

	// Store validation
	switch strings.ToLower(c.Store.Driver) {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "STORE_SQLITE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER (%q) must be one of: memory, sqlite, postgres", c.Store.Driver))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Input: {Delimiter: %q, Encoding: %q, DecimalSeparator: %q}, ",
		c.Input.Delimiter, c.Input.Encoding, c.Input.DecimalSeparator))
	b.WriteString(fmt.Sprintf("Mapping: {NumericThreshold: %g, ConfirmConfidence: %g}, ",
		c.Mapping.NumericThreshold, c.Mapping.ConfirmConfidence))
	b.WriteString(fmt.Sprintf("Inference: {Engine: %q, URL: %q, Model: %q, Timeout: %s}, ",
		c.Inference.Engine, c.Inference.URL, c.Inference.Model, c.Inference.Timeout))
	b.WriteString(fmt.Sprintf("Drawing: {FlipY: %v, Scale: %g, DefaultLayer: %q, Geometry: %q}, ",
		c.Drawing.FlipY, c.Drawing.Scale, c.Drawing.DefaultLayer, c.Drawing.Geometry))
	dbURL := ""
	if c.Store.DatabaseURL != "" {
		dbURL = "[MASKED]"
	}
	b.WriteString(fmt.Sprintf("Store: {Driver: %q, SQLitePath: %q, DatabaseURL: %s}, ",
		c.Store.Driver, c.Store.SQLitePath, dbURL))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
