// Package changefeed announces admin mutations so that derived state (chart
// caches, other instances) can be refreshed.
package changefeed

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionImported = "imported"
)

// Change is one committed mutation.
type Change struct {
	Resource string    `json:"resource"`
	Action   string    `json:"action"`
	ID       uint      `json:"id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher announces committed changes.
type Publisher interface {
	Publish(ctx context.Context, ch Change) error
}

// Feed is a Publisher that can also deliver changes to local handlers.
type Feed interface {
	Publisher
	Subscribe(fn func(Change))
	Close() error
}

// Local fans changes out to in-process subscribers synchronously.
type Local struct {
	mu   sync.RWMutex
	subs []func(Change)
}

func NewLocal() *Local { return &Local{} }

func (l *Local) Subscribe(fn func(Change)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

func (l *Local) Publish(_ context.Context, ch Change) error {
	if ch.At.IsZero() {
		ch.At = time.Now().UTC()
	}
	l.dispatch(ch)
	return nil
}

func (l *Local) dispatch(ch Change) {
	l.mu.RLock()
	subs := make([]func(Change), len(l.subs))
	copy(subs, l.subs)
	l.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("❌ change subscriber panicked on %s/%s: %v", ch.Resource, ch.Action, r)
				}
			}()
			fn(ch)
		}()
	}
}

func (l *Local) Close() error { return nil }
