package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/JonMunkholm/csvdxf/internal/logging"
	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/profile"
)

const (
	DefaultTimeout    = 5 * time.Second
	DefaultConfidence = 0.3
	defaultAttempts   = 2
)

// Capability answers a role request. Implementations return *TransportError
// for failures worth retrying and *MalformedReplyError for answers that
// arrived but cannot be parsed.
type Capability interface {
	Complete(ctx context.Context, req Request) (Reply, error)
}

// Engine owns the retry, timeout and confidence policy around a Capability.
type Engine struct {
	capability        Capability
	timeout           time.Duration
	attempts          int
	defaultConfidence float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithDefaultConfidence sets the confidence given to unscored answers.
func WithDefaultConfidence(c float64) Option {
	return func(e *Engine) {
		if c >= 0 && c <= 1 {
			e.defaultConfidence = c
		}
	}
}

// NewEngine wraps capability. Transport failures are retried once.
func NewEngine(capability Capability, opts ...Option) *Engine {
	e := &Engine{
		capability:        capability,
		timeout:           DefaultTimeout,
		attempts:          defaultAttempts,
		defaultConfidence: DefaultConfidence,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Infer sends one request describing profiles and returns a candidate for
// every column in header order.
func (e *Engine) Infer(ctx context.Context, profiles []profile.ColumnProfile) ([]mapping.RoleCandidate, error) {
	req := NewRequest(profiles)
	log := logging.FromContext(ctx).With("request_hash", req.Hash()[:12])

	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		start := time.Now()
		reply, err := e.complete(ctx, req)
		if err == nil {
			log.Debug("inference reply received", "attempt", attempt, "duration", time.Since(start))
			return e.parse(req, reply)
		}

		var malformed *MalformedReplyError
		if errors.As(err, &malformed) {
			log.Warn("inference reply malformed", "attempt", attempt, "error", err)
			return nil, err
		}

		lastErr = err
		log.Warn("inference attempt failed", "attempt", attempt, "duration", time.Since(start), "error", err)

		if ctx.Err() != nil || !retryable(err) {
			return nil, &UnavailableError{Attempts: attempt, Err: err}
		}
	}
	return nil, &UnavailableError{Attempts: e.attempts, Err: lastErr}
}

func (e *Engine) complete(ctx context.Context, req Request) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reply, err := e.capability.Complete(ctx, req)
	if err != nil && ctx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return reply, err
}

func retryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

// parse checks that reply names every requested column exactly once with a
// known role and a confidence in [0,1].
func (e *Engine) parse(req Request, reply Reply) ([]mapping.RoleCandidate, error) {
	want := make(map[string]int, len(req.Columns))
	for i, c := range req.Columns {
		want[c.Name] = i
	}

	out := make([]mapping.RoleCandidate, len(req.Columns))
	seen := make([]bool, len(req.Columns))

	for _, cr := range reply.Columns {
		i, ok := want[cr.Name]
		if !ok {
			return nil, &MalformedReplyError{Column: cr.Name, Reason: "column is not in the table"}
		}
		if seen[i] {
			return nil, &MalformedReplyError{Column: cr.Name, Reason: "column answered more than once"}
		}
		seen[i] = true

		role, err := mapping.ParseRole(cr.Role)
		if err != nil {
			return nil, &MalformedReplyError{Column: cr.Name, Reason: err.Error()}
		}

		c := mapping.RoleCandidate{
			Column:     cr.Name,
			Role:       role,
			Confidence: e.defaultConfidence,
			Rationale:  cr.Rationale,
		}
		if cr.Confidence != nil {
			v := *cr.Confidence
			if math.IsNaN(v) || v < 0 || v > 1 {
				return nil, &MalformedReplyError{Column: cr.Name, Reason: fmt.Sprintf("confidence %v is outside [0,1]", v)}
			}
			c.Confidence = v
			c.Scored = true
		}
		out[i] = c
	}

	for i, ok := range seen {
		if !ok {
			return nil, &MalformedReplyError{Column: req.Columns[i].Name, Reason: "column missing from reply"}
		}
	}
	return out, nil
}
