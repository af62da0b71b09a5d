package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/csvdxf/internal/config"
	"github.com/JonMunkholm/csvdxf/internal/dxf"
	"github.com/JonMunkholm/csvdxf/internal/inference"
	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/profile"
	"github.com/JonMunkholm/csvdxf/internal/table"
)

// Inference engines.
const (
	EngineOllama    = "ollama"
	EngineHeuristic = "heuristic"
	EngineNone      = "none"
)

// InferenceOptions selects and tunes the inference capability.
type InferenceOptions struct {
	Engine  string
	URL     string
	Model   string
	Timeout time.Duration
}

// Options is everything one run needs. It is passed by value so concurrent
// runs never share configuration state.
type Options struct {
	Table     table.Options
	Profile   profile.Options
	Validator mapping.Validator
	Inference InferenceOptions
	Drawing   dxf.Options
}

// DefaultOptions uses the Ollama engine with package defaults elsewhere.
func DefaultOptions() Options {
	return Options{
		Table:   table.DefaultOptions(),
		Profile: profile.Options{SampleSize: profile.DefaultSampleSize},
		Validator: mapping.Validator{
			NumericThreshold: mapping.DefaultNumericThreshold,
			ConfirmThreshold: mapping.DefaultConfirmThreshold,
		},
		Inference: InferenceOptions{
			Engine:  EngineOllama,
			URL:     inference.DefaultOllamaURL,
			Model:   inference.DefaultModel,
			Timeout: inference.DefaultTimeout,
		},
		Drawing: dxf.DefaultOptions(),
	}
}

// NewOptions converts validated configuration into run options.
func NewOptions(cfg *config.Config) (Options, error) {
	var errs []error

	delim, size := utf8.DecodeRuneInString(cfg.Input.Delimiter)
	if size == 0 || size != len(cfg.Input.Delimiter) {
		errs = append(errs, fmt.Errorf("delimiter %q must be a single character", cfg.Input.Delimiter))
	}

	decimal, err := table.ParseDecimalSeparator(cfg.Input.DecimalSeparator)
	if err != nil {
		errs = append(errs, err)
	}

	geometry, err := dxf.ParseGeometry(cfg.Drawing.Geometry)
	if err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return Options{}, err
	}

	return Options{
		Table: table.Options{
			Delimiter:        delim,
			Encoding:         cfg.Input.Encoding,
			DecimalSeparator: decimal,
			Sheet:            cfg.Input.Sheet,
		},
		Profile: profile.Options{SampleSize: cfg.Mapping.SampleSize},
		Validator: mapping.Validator{
			NumericThreshold: cfg.Mapping.NumericThreshold,
			ConfirmThreshold: cfg.Mapping.ConfirmConfidence,
		},
		Inference: InferenceOptions{
			Engine:  strings.ToLower(cfg.Inference.Engine),
			URL:     cfg.Inference.URL,
			Model:   cfg.Inference.Model,
			Timeout: cfg.Inference.Timeout,
		},
		Drawing: dxf.Options{
			FlipY:        cfg.Drawing.FlipY,
			Scale:        cfg.Drawing.Scale,
			DefaultLayer: cfg.Drawing.DefaultLayer,
			Geometry:     geometry,
			TextHeight:   cfg.Drawing.TextHeight,
		},
	}, nil
}

// capability builds the configured inference capability; nil means
// inference is disabled and every run starts as a manual draft.
func (o Options) capability() (inference.Capability, error) {
	switch o.Inference.Engine {
	case EngineOllama, "":
		return inference.NewOllamaClient(o.Inference.URL, o.Inference.Model), nil
	case EngineHeuristic:
		return inference.Heuristic{NumericThreshold: o.Validator.NumericThreshold}, nil
	case EngineNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown inference engine %q", o.Inference.Engine)
	}
}
