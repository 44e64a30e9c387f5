package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Store defines the interface for session persistence
type Store interface {
	// Get returns the record for id. A missing or expired record is reported
	// as (nil, nil) or ErrNotFound. Any other error fails the request.
	Get(ctx context.Context, id string) (*Data, error)

	// Set upserts the record for id.
	Set(ctx context.Context, id string, data *Data) error

	// Destroy removes the record for id. Removing a missing record is not an error.
	Destroy(ctx context.Context, id string) error
}

// Toucher is implemented by stores that can extend a record's lifetime
// without rewriting its values.
type Toucher interface {
	Touch(ctx context.Context, id string, data *Data) error
}

// Lister is implemented by stores that can enumerate their records.
type Lister interface {
	All(ctx context.Context) (map[string]*Data, error)
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Readier is implemented by stores whose backend can go away. While Ready
// reports false the middleware serves requests without a session.
type Readier interface {
	Ready() bool
}

// Notifier is implemented by stores that publish readiness changes.
type Notifier interface {
	Subscribe(fn func(ready bool))
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Readiness is an embeddable readiness flag. The zero value is ready.
type Readiness struct {
	down atomic.Bool

	mu   sync.Mutex
	subs []func(ready bool)
}

// Ready reports whether the backend is connected.
func (r *Readiness) Ready() bool {
	return !r.down.Load()
}

// Connect marks the backend as connected and notifies subscribers on change.
func (r *Readiness) Connect() {
	if r.down.Swap(false) {
		r.emit(true)
	}
}

// Disconnect marks the backend as disconnected and notifies subscribers on change.
func (r *Readiness) Disconnect() {
	if !r.down.Swap(true) {
		r.emit(false)
	}
}

// Subscribe registers fn for readiness changes.
func (r *Readiness) Subscribe(fn func(ready bool)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

func (r *Readiness) emit(ready bool) {
	r.mu.Lock()
	subs := make([]func(bool), len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()

	for _, fn := range subs {
		fn(ready)
	}
}

// Monitor runs check every interval and flips r accordingly. It blocks until
// ctx is done, so callers usually start it in its own goroutine.
func Monitor(ctx context.Context, r *Readiness, interval time.Duration, check func(context.Context) error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	probe := func() {
		cctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := check(cctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.Disconnect()
			return
		}
		r.Connect()
	}

	probe()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}
