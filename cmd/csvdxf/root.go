package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/csvdxf/internal/config"
	"github.com/JonMunkholm/csvdxf/internal/core"
	"github.com/JonMunkholm/csvdxf/internal/logging"
	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/pipeline"
	"github.com/JonMunkholm/csvdxf/internal/runstore"
)

// app is the per-invocation state shared by subcommands.
type app struct {
	cfg   *config.Config
	flags runFlags
}

// runFlags override configuration for one invocation.
type runFlags struct {
	engine     string
	model      string
	url        string
	timeout    time.Duration
	delimiter  string
	encoding   string
	decimal    string
	sheet      string
	threshold  float64
	flipY      bool
	scale      float64
	layer      string
	geometry   string
	textHeight float64
	store      string
	storePath  string
	logLevel   string
	envFile    string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "csvdxf",
		Short:         "Convert CSV and XLSX point tables to DXF drawings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Flags())
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.envFile, "env-file", ".env", "Environment file to load")
	f.StringVar(&a.flags.engine, "engine", "", "Inference engine: ollama, heuristic, none")
	f.StringVar(&a.flags.model, "model", "", "Model name for the ollama engine")
	f.StringVar(&a.flags.url, "inference-url", "", "Base URL of the model server")
	f.DurationVar(&a.flags.timeout, "timeout", 0, "Per-attempt inference timeout")
	f.StringVarP(&a.flags.delimiter, "delimiter", "d", "", "Field delimiter")
	f.StringVar(&a.flags.encoding, "encoding", "", "Input encoding (utf-8, windows-1252, ...)")
	f.StringVar(&a.flags.decimal, "decimal", "", `Decimal separator: ".", "," or auto`)
	f.StringVar(&a.flags.sheet, "sheet", "", "Worksheet for .xlsx inputs")
	f.Float64Var(&a.flags.threshold, "numeric-threshold", 0, "Minimum numeric ratio for coordinate columns")
	f.BoolVar(&a.flags.flipY, "flip-y", false, "Negate the Y axis")
	f.Float64Var(&a.flags.scale, "scale", 0, "Uniform coordinate scale")
	f.StringVar(&a.flags.layer, "layer", "", "Default layer name")
	f.StringVar(&a.flags.geometry, "geometry", "", "Entity geometry: point or polyline")
	f.Float64Var(&a.flags.textHeight, "text-height", 0, "Label text height")
	f.StringVar(&a.flags.store, "store", "", "Run store driver: memory, sqlite, postgres")
	f.StringVar(&a.flags.storePath, "store-path", "", "SQLite run store file")
	f.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newProfileCmd(a),
		newAnalyzeCmd(a),
		newConfirmCmd(a),
		newConvertCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads the environment, applies flag overrides and validates.
func (a *app) setup(flags *pflag.FlagSet) error {
	if err := godotenv.Overload(a.flags.envFile); err != nil && flags.Changed("env-file") {
		return &usageError{fmt.Errorf("load %s: %w", a.flags.envFile, err)}
	}

	cfg, err := config.Load()
	if err != nil {
		return &usageError{err}
	}

	overrides := []struct {
		flag  string
		apply func()
	}{
		{"engine", func() { cfg.Inference.Engine = a.flags.engine }},
		{"model", func() { cfg.Inference.Model = a.flags.model }},
		{"inference-url", func() { cfg.Inference.URL = a.flags.url }},
		{"timeout", func() { cfg.Inference.Timeout = a.flags.timeout }},
		{"delimiter", func() { cfg.Input.Delimiter = unescapeDelimiter(a.flags.delimiter) }},
		{"encoding", func() { cfg.Input.Encoding = a.flags.encoding }},
		{"decimal", func() { cfg.Input.DecimalSeparator = a.flags.decimal }},
		{"sheet", func() { cfg.Input.Sheet = a.flags.sheet }},
		{"numeric-threshold", func() { cfg.Mapping.NumericThreshold = a.flags.threshold }},
		{"flip-y", func() { cfg.Drawing.FlipY = a.flags.flipY }},
		{"scale", func() { cfg.Drawing.Scale = a.flags.scale }},
		{"layer", func() { cfg.Drawing.DefaultLayer = a.flags.layer }},
		{"geometry", func() { cfg.Drawing.Geometry = a.flags.geometry }},
		{"text-height", func() { cfg.Drawing.TextHeight = a.flags.textHeight }},
		{"store", func() { cfg.Store.Driver = a.flags.store }},
		{"store-path", func() { cfg.Store.SQLitePath = a.flags.storePath }},
		{"log-level", func() { cfg.Logging.Level = a.flags.logLevel }},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			o.apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return &usageError{err}
	}

	// stdout may carry DXF output.
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	a.cfg = cfg
	return nil
}

// unescapeDelimiter lets users type \t for a tab.
func unescapeDelimiter(s string) string {
	if s == `\t` || strings.EqualFold(s, "tab") {
		return "\t"
	}
	return s
}

// options returns the run options for this invocation.
func (a *app) options() (pipeline.Options, error) {
	opts, err := pipeline.NewOptions(a.cfg)
	if err != nil {
		return pipeline.Options{}, &usageError{err}
	}
	return opts, nil
}

// withService opens the run store and builds the service for fn.
func (a *app) withService(ctx context.Context, fn func(*core.Service) error) error {
	opts, err := a.options()
	if err != nil {
		return err
	}
	p, err := pipeline.New(opts)
	if err != nil {
		return &usageError{err}
	}

	store, err := runstore.Open(ctx, a.cfg.Store)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()

	return fn(core.NewService(p, store, a.cfg.Run))
}

// overrideFlags reads repeated --set col=ROLE flags.
func overrideFlags(pairs []string) (map[string]mapping.Role, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides, err := pipeline.ParseOverrides(pairs)
	if err != nil {
		return nil, &usageError{err}
	}
	return overrides, nil
}

// defaultOutput replaces the input extension with .dxf.
func defaultOutput(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".dxf"
}

// writeOutput runs fn against path, or stdout for "-". A failed write
// leaves no partial file behind.
func writeOutput(path string, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	err = fn(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
