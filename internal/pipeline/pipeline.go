// Package pipeline runs a conversion from a table file to a drawing. A run
// stops at human confirmation: Start returns a Draft and Resume finishes
// the run once a Decision arrives.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvdxf/internal/dxf"
	"github.com/JonMunkholm/csvdxf/internal/inference"
	"github.com/JonMunkholm/csvdxf/internal/logging"
	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/profile"
	"github.com/JonMunkholm/csvdxf/internal/table"
)

// Pipeline holds the per-run options and the inference engine. It keeps no
// per-run state and is safe for concurrent use.
type Pipeline struct {
	opts   Options
	engine *inference.Engine
}

// New builds a pipeline with the capability named in opts.
func New(opts Options) (*Pipeline, error) {
	c, err := opts.capability()
	if err != nil {
		return nil, err
	}
	return NewWithCapability(opts, c), nil
}

// NewWithCapability builds a pipeline around c. A nil c disables inference.
func NewWithCapability(opts Options, c inference.Capability) *Pipeline {
	p := &Pipeline{opts: opts}
	if c != nil {
		p.engine = inference.NewEngine(c, inference.WithTimeout(opts.Inference.Timeout))
	}
	return p
}

// Result is a finished run.
type Result struct {
	RunID    uuid.UUID
	Mapping  []mapping.Assignment
	Drawing  *dxf.Drawing
	Rows     int
	Skipped  int
	Warnings []dxf.RowWarning
}

// Start loads and profiles path, asks for role candidates and validates
// them into a draft.
//
// If inference fails, Start returns a manual draft together with the
// inference error so the caller can offer manual mapping. Input errors and
// NoViableMappingError return a nil draft.
func (p *Pipeline) Start(ctx context.Context, path string) (*Draft, error) {
	return p.start(ctx, path, true)
}

// StartManual is Start without inference.
func (p *Pipeline) StartManual(ctx context.Context, path string) (*Draft, error) {
	return p.start(ctx, path, false)
}

func (p *Pipeline) start(ctx context.Context, path string, infer bool) (*Draft, error) {
	id := uuid.New()
	ctx = logging.ContextWithRunID(ctx, id.String())
	log := logging.WithFields(ctx, "source", path)

	t, digest, err := p.load(path, p.opts.Table)
	if err != nil {
		return nil, err
	}
	profiles := profile.Profile(t, p.opts.Profile)

	now := time.Now().UTC()
	d := &Draft{
		RunID:     id,
		Source:    path,
		Digest:    digest,
		Input:     p.opts.Table,
		Columns:   t.Columns,
		Rows:      len(t.Rows),
		Profiles:  profiles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	log.Info("table loaded", "columns", len(t.Columns), "rows", len(t.Rows))

	var inferErr error
	if infer && p.engine != nil {
		d.Inferences++
		d.Candidates, inferErr = p.engine.Infer(ctx, profiles)
		if inferErr != nil {
			d.InferenceError = inferErr.Error()
			log.Warn("inference failed; falling back to manual mapping", "error", inferErr)
		}
	}

	d.Mapping, err = p.opts.Validator.Validate(d.Candidates, profiles)
	if err != nil {
		log.Warn("no viable mapping", "error", err)
		return nil, err
	}

	log.Info("draft ready", "manual", d.Manual(), "warnings", len(d.Mapping.Warnings))
	return d, inferErr
}

// Reinfer asks the capability again for an existing draft. On inference
// failure the previous draft is returned unchanged with the error.
func (p *Pipeline) Reinfer(ctx context.Context, d *Draft) (*Draft, error) {
	ctx = logging.ContextWithRunID(ctx, d.RunID.String())

	if p.engine == nil {
		return d, &inference.UnavailableError{Err: fmt.Errorf("inference is disabled")}
	}

	if _, err := p.reload(d); err != nil {
		return nil, err
	}

	candidates, err := p.engine.Infer(ctx, d.Profiles)
	if err != nil {
		logging.FromContext(ctx).Warn("re-inference failed", "error", err)
		return d, err
	}

	m, err := p.opts.Validator.Validate(candidates, d.Profiles)
	if err != nil {
		return d, err
	}

	next := *d
	next.Candidates = candidates
	next.Mapping = m
	next.InferenceError = ""
	next.Inferences = d.Inferences + 1
	next.UpdatedAt = time.Now().UTC()
	return &next, nil
}

// Resume confirms the draft with dec and builds the drawing. The source is
// read again and must be unchanged.
func (p *Pipeline) Resume(ctx context.Context, d *Draft, dec Decision) (*Result, error) {
	ctx = logging.ContextWithRunID(ctx, d.RunID.String())
	log := logging.WithFields(ctx, "source", d.Source)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := p.reload(d)
	if err != nil {
		return nil, err
	}

	confirmed, err := d.Mapping.Confirm(dec.Overrides)
	if err != nil {
		log.Warn("decision rejected", "error", err)
		return nil, err
	}

	built, err := dxf.NewBuilder(p.opts.Drawing).Build(confirmed, t)
	if err != nil {
		return nil, err
	}

	log.Info("drawing built",
		"entities", built.Drawing.EntityCount(),
		"layers", len(built.Drawing.Layers),
		"skipped", built.Skipped,
	)

	return &Result{
		RunID:    d.RunID,
		Mapping:  confirmed.Assignments(),
		Drawing:  built.Drawing,
		Rows:     built.Rows,
		Skipped:  built.Skipped,
		Warnings: built.Warnings,
	}, nil
}

// reload reads the draft's source again with the options it was analysed
// with and checks its digest.
func (p *Pipeline) reload(d *Draft) (*table.Table, error) {
	t, digest, err := p.load(d.Source, d.Input)
	if err != nil {
		return nil, err
	}
	if digest != d.Digest {
		return nil, &SourceChangedError{Path: d.Source, Want: d.Digest, Got: digest}
	}
	return t, nil
}

func (p *Pipeline) load(path string, opts table.Options) (*table.Table, string, error) {
	digest, err := FileDigest(path)
	if err != nil {
		return nil, "", err
	}
	t, err := table.Load(path, opts)
	if err != nil {
		return nil, "", err
	}
	return t, digest, nil
}

// FileDigest returns the hex SHA-256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
