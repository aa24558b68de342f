package portalclient

import (
	"context"
	"sync"
	"time"
)

const DefaultDebounce = 300 * time.Millisecond

// FetchFunc loads one result for q. It must return promptly once ctx is
// cancelled.
type FetchFunc[T any] func(ctx context.Context, q Query) (T, error)

// Refetcher debounces filter changes into list fetches. Each new fetch
// cancels the one in flight, and only the result of the latest trigger is
// ever delivered, so an older response can never overwrite a newer one.
type Refetcher[T any] struct {
	fetch   FetchFunc[T]
	deliver func(T, error)
	delay   time.Duration

	mu       sync.Mutex
	seq      uint64
	timer    *time.Timer
	cancel   context.CancelFunc
	closed   bool
	inflight sync.WaitGroup

	// serialises deliver so results arrive in trigger order
	deliverMu sync.Mutex
}

type RefetchOption func(*refetchConfig)

type refetchConfig struct {
	delay time.Duration
}

// WithDebounce changes the quiet period between the last trigger and the
// fetch. Zero fetches on the next tick.
func WithDebounce(d time.Duration) RefetchOption {
	return func(c *refetchConfig) { c.delay = d }
}

func NewRefetcher[T any](fetch FetchFunc[T], deliver func(T, error), opts ...RefetchOption) *Refetcher[T] {
	cfg := refetchConfig{delay: DefaultDebounce}
	for _, o := range opts {
		o(&cfg)
	}
	return &Refetcher[T]{fetch: fetch, deliver: deliver, delay: cfg.delay}
}

// Trigger schedules a fetch for q after the debounce period. Triggers inside
// the period collapse into one fetch of the last q.
func (r *Refetcher[T]) Trigger(q Query) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.seq++
	seq := r.seq
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.delay, func() { r.run(seq, q) })
}

// Refresh fetches q immediately, skipping the debounce. Used after a
// mutation when the list must catch up at once.
func (r *Refetcher[T]) Refresh(q Query) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.seq++
	seq := r.seq
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()
	r.run(seq, q)
}

func (r *Refetcher[T]) run(seq uint64, q Query) {
	r.mu.Lock()
	if r.closed || seq != r.seq {
		r.mu.Unlock()
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.inflight.Add(1)
	r.mu.Unlock()

	defer r.inflight.Done()
	defer cancel()

	res, err := r.fetch(ctx, q)

	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()
	if !r.current(seq) {
		return
	}
	r.deliver(res, err)
}

func (r *Refetcher[T]) current(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && seq == r.seq
}

// Close stops pending timers, cancels the fetch in flight and waits for it
// to return. Nothing is delivered after Close.
func (r *Refetcher[T]) Close() {
	r.mu.Lock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.inflight.Wait()
}
