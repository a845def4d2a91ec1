package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jobsift/jobsift/internal/ai"
)

// Pacer enforces a minimum delay between consecutive LLM calls. One instance
// is shared by every batch of a run, so parallel batches still reach the
// backend at the configured pace.
type Pacer struct {
	mu       sync.Mutex
	last     time.Time
	minDelay time.Duration
}

// NewPacer creates a pacer enforcing minDelay between consecutive acquires.
// A zero minDelay disables pacing entirely.
func NewPacer(minDelay time.Duration) *Pacer {
	return &Pacer{minDelay: minDelay}
}

// Acquire blocks until at least minDelay has passed since the previous
// successful acquire, then claims the slot. Returns an error if the context
// is cancelled while waiting. Concurrent callers are granted slots one at a
// time, each spaced minDelay apart.
func (p *Pacer) Acquire(ctx context.Context) error {
	if p.minDelay <= 0 {
		return nil
	}

	for {
		p.mu.Lock()
		now := time.Now()
		if p.last.IsZero() || now.Sub(p.last) >= p.minDelay {
			p.last = now
			p.mu.Unlock()
			return nil
		}
		remaining := p.minDelay - now.Sub(p.last)
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("pacer wait: %w", ctx.Err())
		case <-time.After(remaining):
		}
		// Another goroutine may have claimed the slot while we slept; re-check.
	}
}

// PacedBackend is a decorator that paces calls to the wrapped Backend.
// All backends sharing a rate budget should share the same pacer instance.
type PacedBackend struct {
	inner ai.Backend
	pacer *Pacer
}

// NewPacedBackend wraps a Backend with call pacing.
func NewPacedBackend(inner ai.Backend, pacer *Pacer) *PacedBackend {
	return &PacedBackend{
		inner: inner,
		pacer: pacer,
	}
}

// Complete waits for the pacer to grant a slot, then delegates to the
// wrapped backend.
func (b *PacedBackend) Complete(ctx context.Context, req ai.Request) (string, error) {
	if err := b.pacer.Acquire(ctx); err != nil {
		return "", err
	}
	return b.inner.Complete(ctx, req)
}
