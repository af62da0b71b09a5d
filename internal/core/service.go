package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/csvdxf/internal/config"
	"github.com/JonMunkholm/csvdxf/internal/dxf"
	"github.com/JonMunkholm/csvdxf/internal/logging"
	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/pipeline"
	"github.com/JonMunkholm/csvdxf/internal/runstore"
)

// Service runs conversions and keeps drafts awaiting confirmation in a
// run store.
type Service struct {
	pipeline *pipeline.Pipeline
	store    runstore.Store
	limiter  *Limiter
}

// NewService creates a Service. Limits come from cfg.Run.
func NewService(p *pipeline.Pipeline, store runstore.Store, cfg config.RunConfig) *Service {
	return &Service{
		pipeline: p,
		store:    store,
		limiter:  NewLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
	}
}

// Analyze starts a run for path and stores its draft.
//
// When inference fails the stored manual draft is returned together with
// the inference error. Input errors and NoViableMappingError store nothing.
func (s *Service) Analyze(ctx context.Context, path string) (*pipeline.Draft, error) {
	return s.analyze(ctx, path, s.pipeline.Start)
}

// AnalyzeManual is Analyze without inference.
func (s *Service) AnalyzeManual(ctx context.Context, path string) (*pipeline.Draft, error) {
	return s.analyze(ctx, path, s.pipeline.StartManual)
}

func (s *Service) analyze(ctx context.Context, path string, start func(context.Context, string) (*pipeline.Draft, error)) (*pipeline.Draft, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	d, err := start(ctx, path)
	if d == nil {
		return nil, err
	}

	if serr := s.store.Save(ctx, d); serr != nil {
		return nil, fmt.Errorf("save draft: %w", serr)
	}
	return d, err
}

// Draft returns the stored draft for id.
func (s *Service) Draft(ctx context.Context, id uuid.UUID) (*pipeline.Draft, error) {
	return s.store.Get(ctx, id)
}

// Reinfer asks the inference capability again for a stored draft. On
// failure the stored draft is left unchanged and returned with the error.
func (s *Service) Reinfer(ctx context.Context, id uuid.UUID) (*pipeline.Draft, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	next, err := s.pipeline.Reinfer(ctx, d)
	if err != nil {
		return next, err
	}

	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return next, nil
}

// Confirm applies dec to the stored draft, writes the drawing to out and
// removes the draft. A rejected decision leaves the draft in place so the
// user can try again.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, dec pipeline.Decision, out io.Writer) (*pipeline.Result, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	res, err := s.pipeline.Resume(ctx, d, dec)
	if err != nil {
		return nil, err
	}

	if err := dxf.Write(out, res.Drawing); err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, runstore.ErrNotFound) {
		logging.FromContext(logging.ContextWithRunID(ctx, id.String())).
			Warn("failed to delete confirmed draft", "error", err)
	}
	return res, nil
}

// ConvertOptions controls a non-interactive conversion.
type ConvertOptions struct {
	// Manual skips inference; Overrides must then name X and Y.
	Manual    bool
	Overrides map[string]mapping.Role
}

// Convert runs a file to a drawing without pausing for confirmation. The
// draft is accepted with opts.Overrides applied and is not stored.
//
// If inference failed and the manual draft cannot be confirmed, the
// returned error wraps both causes.
func (s *Service) Convert(ctx context.Context, path string, opts ConvertOptions, out io.Writer) (*pipeline.Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := s.pipeline.Start
	if opts.Manual {
		start = s.pipeline.StartManual
	}

	d, inferErr := start(ctx, path)
	if d == nil {
		return nil, inferErr
	}

	res, err := s.pipeline.Resume(ctx, d, pipeline.Decision{Overrides: opts.Overrides})
	if err != nil {
		if inferErr != nil {
			return nil, fmt.Errorf("%w (after %w)", inferErr, err)
		}
		return nil, err
	}

	if err := dxf.Write(out, res.Drawing); err != nil {
		return nil, err
	}
	return res, nil
}

// BatchItem is the outcome of one file in ConvertBatch.
type BatchItem struct {
	Path   string
	Output string
	Result *pipeline.Result
	Err    error
}

// ConvertBatch converts every path into outDir, running as many files in
// parallel as the limiter allows. A failing file does not stop the others;
// each item carries its own error. The returned error is non-nil only when
// ctx ends or outDir cannot be created.
func (s *Service) ConvertBatch(ctx context.Context, paths []string, outDir string, opts ConvertOptions) ([]BatchItem, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	items := make([]BatchItem, len(paths))
	for i, name := range outputNames(paths) {
		items[i] = BatchItem{Path: paths[i], Output: filepath.Join(outDir, name)}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limiter.MaxConcurrent())

	for i := range items {
		item := &items[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item.Result, item.Err = s.convertFile(gctx, item.Path, item.Output, opts)
			if item.Err != nil {
				logging.FromContext(ctx).Warn("batch item failed", "path", item.Path, "error", item.Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return items, err
	}
	return items, ctx.Err()
}

func (s *Service) convertFile(ctx context.Context, path, output string, opts ConvertOptions) (*pipeline.Result, error) {
	f, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", output, err)
	}

	res, err := s.Convert(ctx, path, opts, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(output)
		return nil, err
	}
	return res, nil
}

// outputNames derives a .dxf file name per input, suffixing repeats so two
// inputs never share an output.
func outputNames(paths []string) []string {
	names := make([]string, len(paths))
	seen := make(map[string]int, len(paths))
	for i, p := range paths {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		key := strings.ToLower(base)
		seen[key]++
		if n := seen[key]; n > 1 {
			base += "_" + strconv.Itoa(n)
		}
		names[i] = base + ".dxf"
	}
	return names
}

// LimiterStatus returns the conversion limiter state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until running conversions finish or ctx is done.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
