package inference

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Stub is a deterministic Capability that answers from replies registered by
// request hash. It is used in tests and for offline demos.
type Stub struct {
	mu      sync.Mutex
	replies map[string]Reply
	errs    map[string][]error
	delay   time.Duration
	calls   int
}

func NewStub() *Stub {
	return &Stub{
		replies: make(map[string]Reply),
		errs:    make(map[string][]error),
	}
}

// Reply registers the answer for req.
func (s *Stub) Reply(req Request, reply Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[req.Hash()] = reply
}

// Fail queues errors returned, one per call, before any registered reply.
func (s *Stub) Fail(req Request, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := req.Hash()
	s.errs[h] = append(s.errs[h], errs...)
}

// Delay makes every call wait d or until the context ends.
func (s *Stub) Delay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls returns how many times Complete ran.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Stub) Complete(ctx context.Context, req Request) (Reply, error) {
	h := req.Hash()

	s.mu.Lock()
	s.calls++
	delay := s.delay
	var queued error
	if errs := s.errs[h]; len(errs) > 0 {
		queued, s.errs[h] = errs[0], errs[1:]
	}
	reply, ok := s.replies[h]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if queued != nil {
		return Reply{}, queued
	}
	if !ok {
		return Reply{}, &TransportError{Err: errors.New("no stubbed reply for request " + h[:12])}
	}
	return reply, nil
}
